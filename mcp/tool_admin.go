package mcp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const lockInspectionQuery = `
	SELECT
		s.sid,
		s.serial# AS serial,
		s.username,
		s.osuser,
		s.program,
		s.status,
		o.object_name,
		DECODE(l.lmode, 0, 'NONE', 1, 'NULL', 2, 'ROW SHARE', 3, 'ROW EXCLUSIVE',
			4, 'SHARE', 5, 'SHARE ROW EXCLUSIVE', 6, 'EXCLUSIVE', TO_CHAR(l.lmode)) AS lock_mode,
		CASE WHEN l.block = 1 THEN 'BLOCKING'
			WHEN l.request > 0 THEN 'WAITING'
			ELSE 'HOLDING' END AS state
	FROM v$session s
	JOIN v$lock l ON s.sid = l.sid
	LEFT JOIN dba_objects o ON l.id1 = o.object_id
	WHERE s.username IS NOT NULL
	ORDER BY l.block DESC, s.sid`

func (s *OracleMCP) toolInspectLocks() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "inspect_locks",
		Description: "Lists sessions holding or waiting on locks, with the locked object, lock mode and blocking state. Requires access to v$session, v$lock and dba_objects.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"database_name": dbNameProperty(),
			},
		},
	}, s.handleInspectLocks
}

func (s *OracleMCP) handleInspectLocks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := getArgs(request.Params.Arguments)
	dbName, _ := getStringArg(args, "database_name")

	var result string
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, lockInspectionQuery)
		if err != nil {
			if isPermissionDenied(err) {
				result = "Lock inspection requires SELECT on v$session, v$lock and dba_objects. Connect with a privileged profile."
				return nil
			}
			return err
		}
		defer rows.Close()

		columns, data, err := collectRows(rows, 0)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			result = fmt.Sprintf("[DB: %s] No user sessions currently hold locks.", dbLabel(dbName))
			return nil
		}
		result = fmt.Sprintf("[DB: %s] Sessions with locks (%d):\n\n%s\n\nUse kill_session with SID and SERIAL to terminate a blocking session.",
			dbLabel(dbName), len(data), formatMarkdownTable(columns, data, 0))
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Lock inspection failed: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *OracleMCP) toolKillSession() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "kill_session",
		Description: "Terminates a database session identified by SID and serial number (as listed by inspect_locks). Requires ALTER SYSTEM privilege.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sid": map[string]interface{}{
					"type":        "number",
					"description": "Session ID",
				},
				"serial": map[string]interface{}{
					"type":        "number",
					"description": "Session serial number",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"sid", "serial"},
		},
	}, s.handleKillSession
}

func (s *OracleMCP) handleKillSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	sid := getIntArg(args, "sid", 0)
	serial := getIntArg(args, "serial", 0)
	if sid <= 0 || serial <= 0 {
		return mcp.NewToolResultError("sid and serial must be positive integers"), nil
	}
	dbName, _ := getStringArg(args, "database_name")

	// SID and serial are validated integers, so the statement cannot
	// carry injected text even though ALTER SYSTEM takes no binds.
	stmt := fmt.Sprintf("ALTER SYSTEM KILL SESSION '%d,%d' IMMEDIATE", sid, serial)

	start := time.Now()
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, stmt)
		return err
	})
	s.queryLog.Record(stmt, time.Since(start), 0, err)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to kill session %d,%d: %v", sid, serial, err)), nil
	}

	s.logger.Warn("session killed",
		zap.Int("sid", sid),
		zap.Int("serial", serial),
		zap.String("database", dbLabel(dbName)))
	return mcp.NewToolResultText(fmt.Sprintf("[DB: %s] Session %d,%d terminated.", dbLabel(dbName), sid, serial)), nil
}

func (s *OracleMCP) toolListInvalidObjects() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "list_invalid_objects",
		Description: "Lists objects in the current schema whose status is INVALID (procedures, packages, views, triggers needing recompilation).",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"database_name": dbNameProperty(),
			},
		},
	}, s.handleListInvalidObjects
}

func (s *OracleMCP) handleListInvalidObjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := getArgs(request.Params.Arguments)
	dbName, _ := getStringArg(args, "database_name")

	var result string
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT object_name, object_type, last_ddl_time
			FROM user_objects
			WHERE status = 'INVALID'
			ORDER BY object_type, object_name`)
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, data, err := collectRows(rows, 0)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			result = fmt.Sprintf("[DB: %s] All objects are VALID.", dbLabel(dbName))
			return nil
		}
		result = fmt.Sprintf("[DB: %s] Invalid objects (%d):\n\n%s\n\nUse compile_object to recompile them.",
			dbLabel(dbName), len(data), formatMarkdownTable(columns, data, 0))
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Listing invalid objects failed: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

// compilableTypes maps an accepted object type to the ALTER clause that
// recompiles it. PACKAGE BODY needs the COMPILE BODY form.
var compilableTypes = map[string]string{
	"PROCEDURE":    "ALTER PROCEDURE %s COMPILE",
	"FUNCTION":     "ALTER FUNCTION %s COMPILE",
	"PACKAGE":      "ALTER PACKAGE %s COMPILE",
	"PACKAGE BODY": "ALTER PACKAGE %s COMPILE BODY",
	"TRIGGER":      "ALTER TRIGGER %s COMPILE",
	"VIEW":         "ALTER VIEW %s COMPILE",
}

func (s *OracleMCP) toolCompileObject() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "compile_object",
		Description: "Recompiles an invalid object (PROCEDURE, FUNCTION, PACKAGE, PACKAGE BODY, TRIGGER or VIEW) and reports its status afterwards.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"object_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the object to compile",
				},
				"object_type": map[string]interface{}{
					"type":        "string",
					"description": "PROCEDURE, FUNCTION, PACKAGE, PACKAGE BODY, TRIGGER or VIEW",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"object_name", "object_type"},
		},
	}, s.handleCompileObject
}

func (s *OracleMCP) handleCompileObject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	objectName, ok := getStringArg(args, "object_name")
	if !ok || !isSafeIdentifier(objectName) {
		return mcp.NewToolResultError(ErrInvalidIdentifier.Error()), nil
	}
	objectType, ok := getStringArg(args, "object_type")
	if !ok || objectType == "" {
		return mcp.NewToolResultError(ErrObjectRequired.Error()), nil
	}
	objectType = strings.ToUpper(strings.TrimSpace(objectType))
	template, ok := compilableTypes[objectType]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("object type '%s' is not compilable; use one of PROCEDURE, FUNCTION, PACKAGE, PACKAGE BODY, TRIGGER, VIEW", objectType)), nil
	}
	dbName, _ := getStringArg(args, "database_name")

	objectName = strings.ToUpper(objectName)
	stmt := fmt.Sprintf(template, objectName)

	var result string
	start := time.Now()
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return err
		}

		// A compile that leaves errors behind still succeeds at the SQL
		// level, so the resulting status has to be read back.
		var status string
		err := conn.QueryRowContext(ctx, `
			SELECT status FROM user_objects
			WHERE object_name = :1 AND object_type = :2`,
			objectName, objectType).Scan(&status)
		switch {
		case err == sql.ErrNoRows:
			result = fmt.Sprintf("[DB: %s] Compiled, but %s %s was not found in user_objects afterwards.",
				dbLabel(dbName), objectType, objectName)
			return nil
		case err != nil:
			return err
		}

		if status == "VALID" {
			result = fmt.Sprintf("[DB: %s] %s %s compiled successfully. Status: VALID.",
				dbLabel(dbName), objectType, objectName)
			return nil
		}

		rows, err := conn.QueryContext(ctx, `
			SELECT line, position, text
			FROM user_errors
			WHERE name = :1
			ORDER BY sequence`, objectName)
		if err != nil {
			result = fmt.Sprintf("[DB: %s] %s %s compiled with errors. Status: %s.",
				dbLabel(dbName), objectType, objectName, status)
			return nil
		}
		defer rows.Close()

		var b strings.Builder
		fmt.Fprintf(&b, "[DB: %s] %s %s compiled with errors. Status: %s.\n\n",
			dbLabel(dbName), objectType, objectName, status)
		for rows.Next() {
			var line, position int
			var text string
			if err = rows.Scan(&line, &position, &text); err != nil {
				break
			}
			fmt.Fprintf(&b, "- Line %d, col %d: %s\n", line, position, strings.TrimSpace(text))
		}
		result = b.String()
		return nil
	})
	s.queryLog.Record(stmt, time.Since(start), 0, err)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Compilation of %s %s failed: %v", objectType, objectName, err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *OracleMCP) toolCheckTablespaceUsage() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "check_tablespace_usage",
		Description: "Reports allocated, free and used space per tablespace with usage percentages. Requires access to dba_data_files and dba_free_space.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"database_name": dbNameProperty(),
			},
		},
	}, s.handleCheckTablespaceUsage
}

func (s *OracleMCP) handleCheckTablespaceUsage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := getArgs(request.Params.Arguments)
	dbName, _ := getStringArg(args, "database_name")

	var result string
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT
				df.tablespace_name,
				df.total_bytes,
				NVL(fs.free_bytes, 0) AS free_bytes
			FROM (SELECT tablespace_name, SUM(bytes) AS total_bytes
				FROM dba_data_files GROUP BY tablespace_name) df
			LEFT JOIN (SELECT tablespace_name, SUM(bytes) AS free_bytes
				FROM dba_free_space GROUP BY tablespace_name) fs
			ON df.tablespace_name = fs.tablespace_name
			ORDER BY df.tablespace_name`)
		if err != nil {
			if isPermissionDenied(err) {
				result = "Tablespace usage requires SELECT on dba_data_files and dba_free_space. Connect with a privileged profile."
				return nil
			}
			return err
		}
		defer rows.Close()

		var b strings.Builder
		fmt.Fprintf(&b, "[DB: %s] Tablespace usage:\n\n", dbLabel(dbName))
		b.WriteString("Tablespace | Total | Used | Free | Used %\n--- | --- | --- | --- | ---\n")
		count := 0
		for rows.Next() {
			var name string
			var total, free float64
			if err = rows.Scan(&name, &total, &free); err != nil {
				return err
			}
			used := total - free
			pct := 0.0
			if total > 0 {
				pct = used / total * 100.0
			}
			marker := ""
			if pct >= 90.0 {
				marker = " (!)"
			}
			fmt.Fprintf(&b, "%s | %s | %s | %s | %.1f%%%s\n",
				name, formatBytes(total), formatBytes(used), formatBytes(free), pct, marker)
			count++
		}
		if err = rows.Err(); err != nil {
			return err
		}
		if count == 0 {
			result = fmt.Sprintf("[DB: %s] No tablespaces visible to this session.", dbLabel(dbName))
			return nil
		}
		result = b.String()
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Tablespace check failed: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *OracleMCP) toolGenerateMockData() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "generate_mock_data",
		Description: "Inserts synthetic rows into a table for testing. Values are derived from column names and types (emails, phones, names, dates, numbers). Committed in one transaction; at most 1000 rows per call.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_name": map[string]interface{}{
					"type":        "string",
					"description": "Destination table",
				},
				"row_count": map[string]interface{}{
					"type":        "number",
					"description": "Number of rows to insert (1-1000, default 10)",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"table_name"},
		},
	}, s.handleGenerateMockData
}

func (s *OracleMCP) handleGenerateMockData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	tableName, ok := getStringArg(args, "table_name")
	if !ok || !isSafeIdentifier(tableName) {
		return mcp.NewToolResultError(ErrInvalidIdentifier.Error()), nil
	}
	// Range check happens before any connection is acquired.
	rowCount := getIntArg(args, "row_count", 10)
	if rowCount < 1 || rowCount > MaxMockRows {
		return mcp.NewToolResultError(ErrRowCountOutOfRange.Error()), nil
	}
	dbName, _ := getStringArg(args, "database_name")

	start := time.Now()
	var inserted int
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		columns, err := describeColumns(ctx, conn, tableName)
		if err != nil {
			return err
		}
		if len(columns) == 0 {
			return &ValidationError{Reason: fmt.Sprintf("table '%s' not found in database '%s'", tableName, dbLabel(dbName))}
		}

		names := make([]string, len(columns))
		for i, c := range columns {
			names[i] = c.Name
		}
		insertSQL := buildInsertSQL(tableName, names)
		mockRows := generateMockRows(columns, rowCount, time.Now().UnixNano())

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			tx.Rollback()
			return &ExecutionError{Database: dbLabel(dbName), Err: err}
		}
		defer stmt.Close()

		for i, row := range mockRows {
			if _, err = stmt.ExecContext(ctx, row...); err != nil {
				tx.Rollback()
				return &ExecutionError{Database: dbLabel(dbName),
					Err: fmt.Errorf("insert failed at row %d (rolled back): %w", i+1, err)}
			}
		}
		if err = tx.Commit(); err != nil {
			return &ExecutionError{Database: dbLabel(dbName), Err: err}
		}
		inserted = rowCount
		return nil
	})
	s.queryLog.Record(fmt.Sprintf("MOCK DATA INTO %s (%d rows)", strings.ToUpper(tableName), rowCount),
		time.Since(start), int64(inserted), err)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Mock data generation failed: %v", err)), nil
	}

	s.logger.Info("mock data inserted",
		zap.String("table", tableName),
		zap.Int("rows", inserted))
	return mcp.NewToolResultText(fmt.Sprintf("[DB: %s] Inserted %d mock rows into %s.",
		dbLabel(dbName), inserted, strings.ToUpper(tableName))), nil
}
