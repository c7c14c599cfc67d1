package mcp

import (
	"regexp"
	"strings"
)

// identifierPattern accepts schema-qualified Oracle identifiers: a
// leading letter followed by letters, digits, _, $, # or the schema
// separator.
var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#.]*$`)

// isSafeIdentifier validates a name before it is interpolated into a
// statement.
func isSafeIdentifier(name string) bool {
	return len(name) <= MaxIdentifierLength && identifierPattern.MatchString(name)
}

// findBlockedKeyword scans the statement for deny-listed keywords and
// returns the first match. The scan is a case-insensitive substring
// match, not a tokenizer; see the deny-list comment for the accepted
// trade-offs.
func findBlockedKeyword(statement string) (string, bool) {
	upper := strings.ToUpper(statement)
	for _, keyword := range blockedKeywords {
		if strings.Contains(upper, keyword) {
			return keyword, true
		}
	}
	return "", false
}

// StatementKind routes a statement to the read or mutation executor.
type StatementKind int

const (
	StatementRead StatementKind = iota
	StatementWrite
)

// classifyStatement returns Read only when the trimmed statement begins
// with a SELECT or WITH token; everything else is Write.
func classifyStatement(statement string) StatementKind {
	trimmed := strings.TrimSpace(statement)
	for _, prefix := range []string{"SELECT", "WITH"} {
		if len(trimmed) < len(prefix) {
			continue
		}
		if !strings.EqualFold(trimmed[:len(prefix)], prefix) {
			continue
		}
		rest := trimmed[len(prefix):]
		if rest == "" || !isWordChar(rest[0]) {
			return StatementRead
		}
	}
	return StatementWrite
}

func isWordChar(c byte) bool {
	return c == '_' || c == '$' || c == '#' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
