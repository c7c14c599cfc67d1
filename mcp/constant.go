package mcp

import "time"

// Connection pool defaults (overridable via configuration)
const (
	DefaultPoolMin       = 2
	DefaultPoolMax       = 10
	DefaultPoolIncrement = 1
	DBPingTimeout        = 5 * time.Second
)

// Query defaults
const (
	DefaultMaxRowsDisplay = 100
	DefaultPageSize       = 50
	MaxCSVRows            = 100000
)

// Import defaults
const (
	ImportSampleRows = 5
	MaxMockRows      = 1000
)

// Query log capacity
const (
	QueryLogCapacity = 100
	QueryLogSQLLimit = 200
)

// Identifier validation
const MaxIdentifierLength = 128

// blockedKeywords is scanned as a case-insensitive substring match over
// the full statement text. It is a coarse safety net, not a parser: a
// keyword inside a string literal false-positives, and a keyword split
// by a comment slips through. Both are accepted trade-offs.
var blockedKeywords = []string{
	"DROP DATABASE",
	"DROP TABLESPACE",
	"SHUTDOWN",
	"ALTER SYSTEM",
}
