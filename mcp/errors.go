package mcp

import (
	"errors"
	"fmt"
	"strings"
)

// Argument errors
var (
	ErrInvalidArguments  = errors.New("invalid arguments")
	ErrQueryRequired     = errors.New("sql_query is required")
	ErrTableRequired     = errors.New("table_name is required")
	ErrObjectRequired    = errors.New("object_name is required")
	ErrFileRequired      = errors.New("file_path is required")
	ErrMappingRequired   = errors.New("column_mapping is required")
	ErrFilenameRequired  = errors.New("filename is required")
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// Validation errors
var (
	ErrOnlySelectAllowed  = errors.New("only SELECT or WITH queries are allowed")
	ErrSelectNotAllowed   = errors.New("for SELECT queries, use run_read_only_query instead")
	ErrDropBlocked        = errors.New("DROP operations are blocked")
	ErrPageOutOfRange     = errors.New("page number must be >= 1")
	ErrRowCountOutOfRange = errors.New("row_count must be between 1 and 1000")
)

// Serialization errors
var (
	ErrSerializingJSON = errors.New("error serializing JSON")
)

// ConfigurationError reports a logical database name that cannot be
// resolved against the configured profiles.
type ConfigurationError struct {
	Name  string
	Known []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("database '%s' not defined in configuration. Available: [%s]",
		e.Name, strings.Join(e.Known, ", "))
}

// ConnectionError reports a pool or connection acquisition failure for
// one logical database.
type ConnectionError struct {
	Database string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error (DB: %s): %v", e.Database, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ValidationError reports input rejected before reaching the database.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ExecutionError reports a statement the backend rejected.
type ExecutionError struct {
	Database string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed (DB: %s): %v", e.Database, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ImportError reports a failure in the file-to-table import pipeline.
type ImportError struct {
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("import error: %s", e.Reason)
}

func (e *ImportError) Unwrap() error { return e.Err }
