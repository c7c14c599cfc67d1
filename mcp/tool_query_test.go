package mcp

import (
	"context"
	"database/sql"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestServer backs the tool surface with an in-memory engine so the
// handlers run against real connections.
func newTestServer(t *testing.T) (*OracleMCP, *sql.DB) {
	t.Helper()
	db := openTestDB(t)

	cfg := newTestConfig("default", testProfile("default"))
	cfg.Global.ExportDirectory = t.TempDir()

	logger := zap.NewNop()
	registry := NewRegistry(cfg, logger)
	registry.newStrategy = func(p *DatabaseProfile, g GlobalSettings) (connStrategy, error) {
		return &pooledStrategy{db: db}, nil
	}

	return &OracleMCP{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		queryLog: NewQueryLog(logger, QueryLogCapacity),
	}, db
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestPageMath(t *testing.T) {
	assert.Equal(t, 0, pageOffset(1, 50))
	assert.Equal(t, 100, pageOffset(3, 50))
	assert.Equal(t, 3, totalPages(120, 50))
	assert.Equal(t, 1, totalPages(50, 50))
	assert.Equal(t, 0, totalPages(0, 50))
	assert.Equal(t, 1, totalPages(1, 50))
}

func TestRunReadOnlyQueryFromDual(t *testing.T) {
	s, db := newTestServer(t)
	_, err := db.Exec("CREATE TABLE DUAL (DUMMY TEXT)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO DUAL VALUES ('X')")
	require.NoError(t, err)

	res := callTool(t, s.handleRunReadOnlyQuery, map[string]interface{}{
		"sql_query": "SELECT 1 FROM DUAL",
	})
	require.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "DB: Default")
	assert.Contains(t, text, "1\n---\n1")

	entries := s.queryLog.Recent(1)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
}

func TestRunReadOnlyQueryNoResults(t *testing.T) {
	s, db := newTestServer(t)
	_, err := db.Exec("CREATE TABLE items (id INTEGER)")
	require.NoError(t, err)

	res := callTool(t, s.handleRunReadOnlyQuery, map[string]interface{}{
		"sql_query": "SELECT id FROM items",
	})
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "no results")
}

func TestRunReadOnlyQueryRejectsWrites(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s.handleRunReadOnlyQuery, map[string]interface{}{
		"sql_query": "DELETE FROM items",
	})
	assert.True(t, res.IsError)
}

func TestRunReadOnlyQueryRejectsBlockedKeyword(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s.handleRunReadOnlyQuery, map[string]interface{}{
		"sql_query": "SELECT * FROM t WHERE note = 'alter system ready'",
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "ALTER SYSTEM")
}

func TestRunReadOnlyQueryMissingArgument(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s.handleRunReadOnlyQuery, map[string]interface{}{})
	assert.True(t, res.IsError)
}

func TestRunReadOnlyQueryTruncation(t *testing.T) {
	s, db := newTestServer(t)
	s.cfg.Global.MaxRowsDisplay = 3

	_, err := db.Exec("CREATE TABLE items (id INTEGER)")
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		_, err = db.Exec("INSERT INTO items VALUES (?)", i)
		require.NoError(t, err)
	}

	res := callTool(t, s.handleRunReadOnlyQuery, map[string]interface{}{
		"sql_query": "SELECT id FROM items ORDER BY id",
	})
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Showing first 3 rows")
}

func TestRunModificationQueryCommits(t *testing.T) {
	s, db := newTestServer(t)
	_, err := db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	res := callTool(t, s.handleRunModificationQuery, map[string]interface{}{
		"sql_query": "INSERT INTO items VALUES (1)",
	})
	require.False(t, res.IsError, resultText(t, res))
	assert.Contains(t, resultText(t, res), "Rows affected: 1")

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRunModificationQueryRollsBackOnFailure(t *testing.T) {
	s, db := newTestServer(t)
	_, err := db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO items VALUES (1)")
	require.NoError(t, err)

	res := callTool(t, s.handleRunModificationQuery, map[string]interface{}{
		"sql_query": "INSERT INTO items VALUES (1)",
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Rolled back")

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
	assert.Equal(t, 1, count, "failed statement leaves no partial state")
}

func TestRunModificationQueryRejectsSelect(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s.handleRunModificationQuery, map[string]interface{}{
		"sql_query": "SELECT * FROM items",
	})
	assert.True(t, res.IsError)
}

func TestRunModificationQueryRejectsDrop(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s.handleRunModificationQuery, map[string]interface{}{
		"sql_query": "DROP TABLE items",
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), ErrDropBlocked.Error())
}

func TestPaginationRejectsInvalidPage(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s.handleRunQueryWithPagination, map[string]interface{}{
		"sql_query": "SELECT 1 FROM DUAL",
		"page":      float64(0),
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), ErrPageOutOfRange.Error())
}

func TestPaginationRejectsWrites(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s.handleRunQueryWithPagination, map[string]interface{}{
		"sql_query": "UPDATE items SET id = 2",
	})
	assert.True(t, res.IsError)
}

func TestExportQueryToCSV(t *testing.T) {
	s, db := newTestServer(t)
	_, err := db.Exec("CREATE TABLE items (id INTEGER, name TEXT)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO items VALUES (1, 'a'), (2, NULL)")
	require.NoError(t, err)

	res := callTool(t, s.handleExportQueryToCSV, map[string]interface{}{
		"sql_query": "SELECT id, name FROM items ORDER BY id",
		"filename":  "items",
	})
	require.False(t, res.IsError, resultText(t, res))

	text := resultText(t, res)
	assert.Contains(t, text, "Exported 2 rows")
	assert.Contains(t, text, "items.csv")
}

func TestExportQueryToCSVRejectsWrites(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s.handleExportQueryToCSV, map[string]interface{}{
		"sql_query": "DELETE FROM items",
		"filename":  "out.csv",
	})
	assert.True(t, res.IsError)
}
