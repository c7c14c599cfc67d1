package mcp

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (s *OracleMCP) toolRunReadOnlyQuery() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "run_read_only_query",
		Description: "Executes a read-only SQL query (SELECT or WITH only) and returns the rendered result set.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sql_query": map[string]interface{}{
					"type":        "string",
					"description": "SQL query to execute (SELECT/WITH only)",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"sql_query"},
		},
	}, s.handleRunReadOnlyQuery
}

func (s *OracleMCP) handleRunReadOnlyQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	query, ok := getStringArg(args, "sql_query")
	if !ok || query == "" {
		return mcp.NewToolResultError(ErrQueryRequired.Error()), nil
	}
	if classifyStatement(query) != StatementRead {
		return mcp.NewToolResultError(ErrOnlySelectAllowed.Error()), nil
	}
	if keyword, found := findBlockedKeyword(query); found {
		return mcp.NewToolResultError(fmt.Sprintf("Query contains blocked keyword: %s", keyword)), nil
	}
	dbName, _ := getStringArg(args, "database_name")

	maxRows := s.cfg.Global.MaxRowsDisplay
	start := time.Now()

	var result string
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		// Fetch one extra row to detect truncation.
		columns, data, err := collectRows(rows, maxRows+1)
		if err != nil {
			return err
		}
		duration := time.Since(start)
		s.queryLog.Record(query, duration, int64(len(data)), nil)

		if len(data) == 0 {
			result = fmt.Sprintf("[DB: %s] Query returned no results.", dbLabel(dbName))
			return nil
		}

		hasMore := len(data) > maxRows
		var b strings.Builder
		fmt.Fprintf(&b, "## Results (DB: %s)\n", dbLabel(dbName))
		b.WriteString(formatMarkdownTable(columns, data, maxRows))
		if hasMore {
			fmt.Fprintf(&b, "\n\n*Showing first %d rows.*", maxRows)
		}
		fmt.Fprintf(&b, "\n\n*Query executed in %.2fms*", float64(duration.Microseconds())/1000.0)
		result = b.String()
		return nil
	})
	if err != nil {
		s.queryLog.Record(query, time.Since(start), 0, err)
		return mcp.NewToolResultError(fmt.Sprintf("Database Error (%s): %v", dbLabel(dbName), err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

// pageOffset converts a 1-based page into a row offset.
func pageOffset(page, pageSize int) int {
	return (page - 1) * pageSize
}

// totalPages is the ceiling of totalRows / pageSize.
func totalPages(totalRows, pageSize int) int {
	return (totalRows + pageSize - 1) / pageSize
}

func (s *OracleMCP) toolRunQueryWithPagination() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "run_query_with_pagination",
		Description: "Executes a SELECT query with pagination and returns one page of results plus totals.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sql_query": map[string]interface{}{
					"type":        "string",
					"description": "Base SELECT query (without pagination clauses)",
				},
				"page": map[string]interface{}{
					"type":        "number",
					"description": "Page number, starting at 1",
				},
				"page_size": map[string]interface{}{
					"type":        "number",
					"description": fmt.Sprintf("Rows per page (default %d)", DefaultPageSize),
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"sql_query"},
		},
	}, s.handleRunQueryWithPagination
}

func (s *OracleMCP) handleRunQueryWithPagination(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	query, ok := getStringArg(args, "sql_query")
	if !ok || query == "" {
		return mcp.NewToolResultError(ErrQueryRequired.Error()), nil
	}
	if classifyStatement(query) != StatementRead {
		return mcp.NewToolResultError(ErrOnlySelectAllowed.Error()), nil
	}
	if keyword, found := findBlockedKeyword(query); found {
		return mcp.NewToolResultError(fmt.Sprintf("Query contains blocked keyword: %s", keyword)), nil
	}

	page := getIntArg(args, "page", 1)
	if page < 1 {
		return mcp.NewToolResultError(ErrPageOutOfRange.Error()), nil
	}
	pageSize := getIntArg(args, "page_size", DefaultPageSize)
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	dbName, _ := getStringArg(args, "database_name")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM (%s)", query)
	pagedQuery := fmt.Sprintf("SELECT * FROM (%s) OFFSET %d ROWS FETCH NEXT %d ROWS ONLY",
		query, pageOffset(page, pageSize), pageSize)

	start := time.Now()
	var result string
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		var totalRows int
		if err := conn.QueryRowContext(ctx, countQuery).Scan(&totalRows); err != nil {
			return err
		}

		rows, err := conn.QueryContext(ctx, pagedQuery)
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, data, err := collectRows(rows, 0)
		if err != nil {
			return err
		}
		s.queryLog.Record(query, time.Since(start), int64(len(data)), nil)

		var b strings.Builder
		fmt.Fprintf(&b, "## Page %d of %d (Total: %d | DB: %s)\n\n",
			page, totalPages(totalRows, pageSize), totalRows, dbLabel(dbName))
		if len(data) == 0 {
			b.WriteString("No results on this page.")
		} else {
			b.WriteString(formatMarkdownTable(columns, data, 0))
		}
		result = b.String()
		return nil
	})
	if err != nil {
		s.queryLog.Record(query, time.Since(start), 0, err)
		return mcp.NewToolResultError(fmt.Sprintf("Pagination Error: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *OracleMCP) toolRunModificationQuery() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "run_modification_query",
		Description: "Executes DML/DDL commands inside a transaction. Commits on success, rolls back on failure. CAUTION: ensure the correct database_name.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sql_query": map[string]interface{}{
					"type":        "string",
					"description": "DML/DDL statement to execute",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"sql_query"},
		},
	}, s.handleRunModificationQuery
}

func (s *OracleMCP) handleRunModificationQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	query, ok := getStringArg(args, "sql_query")
	if !ok || query == "" {
		return mcp.NewToolResultError(ErrQueryRequired.Error()), nil
	}
	if classifyStatement(query) == StatementRead {
		return mcp.NewToolResultError(ErrSelectNotAllowed.Error()), nil
	}
	if strings.Contains(strings.ToUpper(query), "DROP") {
		return mcp.NewToolResultError(ErrDropBlocked.Error()), nil
	}
	dbName, _ := getStringArg(args, "database_name")

	start := time.Now()
	var result string
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, query)
		if err != nil {
			tx.Rollback()
			return &ExecutionError{Database: dbLabel(dbName), Err: err}
		}
		rowsAffected, _ := res.RowsAffected()
		if err = tx.Commit(); err != nil {
			return &ExecutionError{Database: dbLabel(dbName), Err: err}
		}

		duration := time.Since(start)
		s.queryLog.Record(query, duration, rowsAffected, nil)
		result = fmt.Sprintf("[DB: %s] Query executed successfully.\n- Rows affected: %d\n- Duration: %.2fms",
			dbLabel(dbName), rowsAffected, float64(duration.Microseconds())/1000.0)
		return nil
	})
	if err != nil {
		s.queryLog.Record(query, time.Since(start), 0, err)
		if _, ok := err.(*ExecutionError); ok {
			return mcp.NewToolResultError(fmt.Sprintf("Execution failed (Rolled back): %v", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Connection Error: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *OracleMCP) toolExplainQueryPlan() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "explain_query_plan",
		Description: "Gets the execution plan for a query. Useful for analyzing slow queries.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sql_query": map[string]interface{}{
					"type":        "string",
					"description": "SELECT query to explain",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"sql_query"},
		},
	}, s.handleExplainQueryPlan
}

func (s *OracleMCP) handleExplainQueryPlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	query, ok := getStringArg(args, "sql_query")
	if !ok || query == "" {
		return mcp.NewToolResultError(ErrQueryRequired.Error()), nil
	}
	if classifyStatement(query) != StatementRead {
		return mcp.NewToolResultError(ErrOnlySelectAllowed.Error()), nil
	}
	dbName, _ := getStringArg(args, "database_name")

	stmtID := "MCP_" + strings.ToUpper(uuid.NewString()[:8])

	var result string
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		explainSQL := fmt.Sprintf("EXPLAIN PLAN SET STATEMENT_ID = '%s' FOR %s", stmtID, query)
		if _, err := conn.ExecContext(ctx, explainSQL); err != nil {
			return err
		}

		rows, err := conn.QueryContext(ctx,
			fmt.Sprintf("SELECT * FROM TABLE(DBMS_XPLAN.DISPLAY(NULL, '%s'))", stmtID))
		if err != nil {
			return err
		}
		defer rows.Close()

		var lines []string
		for rows.Next() {
			var line sql.NullString
			if err = rows.Scan(&line); err != nil {
				return err
			}
			if line.Valid && line.String != "" {
				lines = append(lines, line.String)
			}
		}
		if err = rows.Err(); err != nil {
			return err
		}
		result = fmt.Sprintf("## Execution Plan\n```text\n%s\n```", strings.Join(lines, "\n"))
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error explaining plan: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *OracleMCP) toolExportQueryToCSV() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "export_query_to_csv",
		Description: fmt.Sprintf("Exports query results to a CSV file in the configured export directory, capped at %d rows.", MaxCSVRows),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sql_query": map[string]interface{}{
					"type":        "string",
					"description": "Query whose results will be exported",
				},
				"filename": map[string]interface{}{
					"type":        "string",
					"description": "Output filename (a .csv extension is appended when missing)",
				},
				"output_path": map[string]interface{}{
					"type":        "string",
					"description": "Optional subdirectory below the export directory",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"sql_query", "filename"},
		},
	}, s.handleExportQueryToCSV
}

func (s *OracleMCP) handleExportQueryToCSV(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	query, ok := getStringArg(args, "sql_query")
	if !ok || query == "" {
		return mcp.NewToolResultError(ErrQueryRequired.Error()), nil
	}
	if classifyStatement(query) != StatementRead {
		return mcp.NewToolResultError(ErrOnlySelectAllowed.Error()), nil
	}
	filename, ok := getStringArg(args, "filename")
	if !ok || filename == "" {
		return mcp.NewToolResultError(ErrFilenameRequired.Error()), nil
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		filename += ".csv"
	}
	outputPath, _ := getStringArg(args, "output_path")
	dbName, _ := getStringArg(args, "database_name")

	fullPath := filepath.Join(s.cfg.Global.ExportDirectory, outputPath, filename)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Export failed: %v", err)), nil
	}

	var rowsWritten int
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			return err
		}

		f, err := os.Create(fullPath)
		if err != nil {
			return err
		}
		defer f.Close()

		writer := csv.NewWriter(f)
		if err = writer.Write(columns); err != nil {
			return err
		}

		record := make([]string, len(columns))
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		for rows.Next() && rowsWritten < MaxCSVRows {
			if err = rows.Scan(ptrs...); err != nil {
				return err
			}
			for i, v := range values {
				if v == nil {
					record[i] = ""
				} else {
					record[i] = fmt.Sprintf("%v", formatValue(v))
				}
			}
			if err = writer.Write(record); err != nil {
				return err
			}
			rowsWritten++
		}
		if err = rows.Err(); err != nil {
			return err
		}
		writer.Flush()
		return writer.Error()
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Export failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Exported %d rows to: `%s`", rowsWritten, fullPath)), nil
}

func (s *OracleMCP) toolSearchInTable() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "search_in_table",
		Description: "Searches for a text fragment across all text columns of a table (first 20 matches).",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_name": map[string]interface{}{
					"type":        "string",
					"description": "Table to search",
				},
				"search_term": map[string]interface{}{
					"type":        "string",
					"description": "Text fragment to look for",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"table_name", "search_term"},
		},
	}, s.handleSearchInTable
}

func (s *OracleMCP) handleSearchInTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	tableName, ok := getStringArg(args, "table_name")
	if !ok || !isSafeIdentifier(tableName) {
		return mcp.NewToolResultError(ErrInvalidIdentifier.Error()), nil
	}
	searchTerm, ok := getStringArg(args, "search_term")
	if !ok || searchTerm == "" {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	dbName, _ := getStringArg(args, "database_name")

	var result string
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		colRows, err := conn.QueryContext(ctx, `
			SELECT column_name FROM user_tab_columns
			WHERE table_name = :1 AND data_type IN ('CHAR','VARCHAR2')`,
			strings.ToUpper(tableName))
		if err != nil {
			return err
		}
		defer colRows.Close()

		var textColumns []string
		for colRows.Next() {
			var name string
			if err = colRows.Scan(&name); err != nil {
				return err
			}
			textColumns = append(textColumns, name)
		}
		if err = colRows.Err(); err != nil {
			return err
		}
		if len(textColumns) == 0 {
			result = "No text columns found."
			return nil
		}

		conditions := make([]string, len(textColumns))
		binds := make([]interface{}, len(textColumns))
		for i, col := range textColumns {
			conditions[i] = fmt.Sprintf("UPPER(%s) LIKE UPPER(:%d)", col, i+1)
			binds[i] = "%" + searchTerm + "%"
		}
		searchSQL := fmt.Sprintf("SELECT * FROM %s WHERE %s FETCH FIRST 20 ROWS ONLY",
			strings.ToUpper(tableName), strings.Join(conditions, " OR "))

		rows, err := conn.QueryContext(ctx, searchSQL, binds...)
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, data, err := collectRows(rows, 0)
		if err != nil {
			return err
		}
		result = fmt.Sprintf("## Search Results (%s)\n%s", dbLabel(dbName),
			formatMarkdownTable(columns, data, 0))
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error searching table: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}
