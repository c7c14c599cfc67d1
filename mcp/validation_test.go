package mcp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSafeIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		want       bool
	}{
		{"simple table", "EMPLOYEES", true},
		{"lowercase", "employees", true},
		{"schema qualified", "HR.EMPLOYEES", true},
		{"oracle special chars", "EMP_2$#", true},
		{"single letter", "T", true},
		{"max length", "A" + strings.Repeat("B", MaxIdentifierLength-1), true},
		{"too long", "A" + strings.Repeat("B", MaxIdentifierLength), false},
		{"empty", "", false},
		{"leading digit", "1TABLE", false},
		{"leading underscore", "_TABLE", false},
		{"embedded space", "DROP TABLE", false},
		{"semicolon injection", "T;DELETE", false},
		{"quote injection", "T'--", false},
		{"parenthesis", "T()", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSafeIdentifier(tt.identifier))
		})
	}
}

func TestClassifyStatement(t *testing.T) {
	tests := []struct {
		name      string
		statement string
		want      StatementKind
	}{
		{"plain select", "SELECT * FROM employees", StatementRead},
		{"lowercase select", "select 1 from dual", StatementRead},
		{"leading whitespace", "  \n\tSELECT 1 FROM DUAL", StatementRead},
		{"cte", "WITH t AS (SELECT 1 FROM DUAL) SELECT * FROM t", StatementRead},
		{"bare select", "SELECT", StatementRead},
		{"select prefix word", "SELECTED_VALUES", StatementWrite},
		{"with prefix word", "WITH_GRANT_OPTION", StatementWrite},
		{"insert", "INSERT INTO t VALUES (1)", StatementWrite},
		{"update", "UPDATE t SET c = 1", StatementWrite},
		{"delete", "DELETE FROM t", StatementWrite},
		{"ddl", "CREATE TABLE t (c NUMBER)", StatementWrite},
		{"empty", "", StatementWrite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStatement(tt.statement))
		})
	}
}

func TestFindBlockedKeyword(t *testing.T) {
	keyword, found := findBlockedKeyword("alter system set sga_target = 0")
	assert.True(t, found)
	assert.Equal(t, "ALTER SYSTEM", keyword)

	_, found = findBlockedKeyword("SELECT * FROM employees")
	assert.False(t, found)

	// The scan is substring-based, so a column named like a blocked
	// keyword also trips it. Accepted behavior.
	_, found = findBlockedKeyword("SELECT shutdown_time FROM maintenance_log")
	assert.True(t, found)

	_, found = findBlockedKeyword("DROP   DATABASE x")
	assert.False(t, found, "multiple spaces do not match the fixed phrase")

	_, found = findBlockedKeyword("drop tablespace users")
	assert.True(t, found)
}
