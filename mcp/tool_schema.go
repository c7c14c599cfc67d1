package mcp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// dbNameProperty is the shared optional database selector argument.
func dbNameProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Logical database name (optional, uses the default database when omitted)",
	}
}

func (s *OracleMCP) toolListTables() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "list_tables",
		Description: "Lists all tables in the specified database (or the default one).",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"database_name": dbNameProperty(),
			},
		},
	}, s.handleListTables
}

func (s *OracleMCP) handleListTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := getArgs(request.Params.Arguments)
	dbName, _ := getStringArg(args, "database_name")

	var result string
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, "SELECT table_name FROM user_tables ORDER BY table_name")
		if err != nil {
			return err
		}
		defer rows.Close()

		var tables []string
		for rows.Next() {
			var name string
			if err = rows.Scan(&name); err != nil {
				return err
			}
			tables = append(tables, name)
		}
		if err = rows.Err(); err != nil {
			return err
		}

		label := fmt.Sprintf("[%s]", dbLabel(dbName))
		if len(tables) == 0 {
			result = label + " No tables found."
			return nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s Found %d tables:\n", label, len(tables))
		for _, t := range tables {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		result = strings.TrimRight(b.String(), "\n")
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing tables: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *OracleMCP) toolDescribeTable() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "describe_table",
		Description: "Gets the schema/structure of a table: columns, types, nullability and defaults.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_name": map[string]interface{}{
					"type":        "string",
					"description": "Table name (optionally schema-qualified)",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"table_name"},
		},
	}, s.handleDescribeTable
}

func (s *OracleMCP) handleDescribeTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}

	tableName, ok := getStringArg(args, "table_name")
	if !ok || tableName == "" {
		return mcp.NewToolResultError(ErrTableRequired.Error()), nil
	}
	if !isSafeIdentifier(tableName) {
		return mcp.NewToolResultError(ErrInvalidIdentifier.Error()), nil
	}
	dbName, _ := getStringArg(args, "database_name")

	var result string
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		exists, err := tableExists(ctx, conn, tableName)
		if err != nil {
			return err
		}
		if !exists {
			result = fmt.Sprintf("Table '%s' not found in database '%s'.", tableName, dbLabel(dbName))
			return nil
		}

		columns, err := describeColumns(ctx, conn, tableName)
		if err != nil {
			return err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "## Schema for `%s` (DB: %s)\n\n", strings.ToUpper(tableName), dbLabel(dbName))
		b.WriteString("| Column | Type | Nullable | Default |\n|---|---|---|---|\n")
		for _, c := range columns {
			nullable := "N"
			if c.Nullable {
				nullable = "Y"
			}
			def := ""
			if c.Default.Valid {
				def = strings.TrimSpace(c.Default.String)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", c.Name, c.TypeString(), nullable, def)
		}
		result = b.String()
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error describing table: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *OracleMCP) toolListConstraints() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "list_constraints",
		Description: "Lists constraints (primary key, foreign key, check, unique) for a table.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_name": map[string]interface{}{
					"type":        "string",
					"description": "Table name",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"table_name"},
		},
	}, s.handleListConstraints
}

var constraintTypeNames = map[string]string{
	"P": "Primary Key",
	"R": "Foreign Key",
	"U": "Unique",
	"C": "Check",
}

func (s *OracleMCP) handleListConstraints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	tableName, ok := getStringArg(args, "table_name")
	if !ok || !isSafeIdentifier(tableName) {
		return mcp.NewToolResultError(ErrInvalidIdentifier.Error()), nil
	}
	dbName, _ := getStringArg(args, "database_name")

	var result string
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT c.constraint_name, c.constraint_type, c.search_condition,
			       cc.column_name, c.r_constraint_name
			FROM user_constraints c
			JOIN user_cons_columns cc ON c.constraint_name = cc.constraint_name
			WHERE c.table_name = :1
			ORDER BY c.constraint_type, c.constraint_name, cc.position`,
			strings.ToUpper(tableName))
		if err != nil {
			return err
		}
		defer rows.Close()

		var b strings.Builder
		fmt.Fprintf(&b, "## Constraints for `%s`\n\n", tableName)
		b.WriteString("| Name | Type | Column | Details |\n|---|---|---|---|\n")

		found := 0
		for rows.Next() {
			var name, ctype, column string
			var condition, refName sql.NullString
			if err = rows.Scan(&name, &ctype, &condition, &column, &refName); err != nil {
				return err
			}
			details := ""
			if condition.Valid {
				details = condition.String
			} else if refName.Valid {
				details = "Ref: " + refName.String
			}
			typeName := ctype
			if t, ok := constraintTypeNames[ctype]; ok {
				typeName = t
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", name, typeName, column, details)
			found++
		}
		if err = rows.Err(); err != nil {
			return err
		}
		if found == 0 {
			result = fmt.Sprintf("No constraints found for `%s`.", tableName)
			return nil
		}
		result = b.String()
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing constraints: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *OracleMCP) toolListIndexes() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "list_indexes",
		Description: "Lists indexes on a specific table with their columns.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_name": map[string]interface{}{
					"type":        "string",
					"description": "Table name",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"table_name"},
		},
	}, s.handleListIndexes
}

func (s *OracleMCP) handleListIndexes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	tableName, ok := getStringArg(args, "table_name")
	if !ok || !isSafeIdentifier(tableName) {
		return mcp.NewToolResultError(ErrInvalidIdentifier.Error()), nil
	}
	dbName, _ := getStringArg(args, "database_name")

	var result string
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT i.index_name, i.index_type, i.uniqueness,
			       LISTAGG(ic.column_name, ', ') WITHIN GROUP (ORDER BY ic.column_position) as columns
			FROM user_indexes i
			JOIN user_ind_columns ic ON i.index_name = ic.index_name
			WHERE i.table_name = :1
			GROUP BY i.index_name, i.index_type, i.uniqueness`,
			strings.ToUpper(tableName))
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, data, err := collectRows(rows, 0)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			result = fmt.Sprintf("No indexes found for `%s`.", tableName)
			return nil
		}
		result = fmt.Sprintf("## Indexes for `%s`\n\n%s", tableName,
			formatMarkdownTable(columns, data, 0))
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing indexes: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *OracleMCP) toolGetObjectDDL() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "get_object_ddl",
		Description: "Gets the DDL or source code for an object. Supported types: TABLE, VIEW, PROCEDURE, FUNCTION, PACKAGE, PACKAGE_BODY, TRIGGER, INDEX.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"object_name": map[string]interface{}{
					"type":        "string",
					"description": "Object name",
				},
				"object_type": map[string]interface{}{
					"type":        "string",
					"description": "Object type (default TABLE). Use PACKAGE_BODY for package bodies.",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"object_name"},
		},
	}, s.handleGetObjectDDL
}

func (s *OracleMCP) handleGetObjectDDL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	objectName, ok := getStringArg(args, "object_name")
	if !ok || objectName == "" {
		return mcp.NewToolResultError(ErrObjectRequired.Error()), nil
	}
	if !isSafeIdentifier(objectName) {
		return mcp.NewToolResultError(ErrInvalidIdentifier.Error()), nil
	}
	objectType, _ := getStringArg(args, "object_type")
	if objectType == "" {
		objectType = "TABLE"
	}
	dbName, _ := getStringArg(args, "database_name")

	var result string
	err := s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		ddl, status, err := objectDDL(ctx, conn, objectName, objectType)
		switch status {
		case lookupFound:
			result = fmt.Sprintf("## DDL for `%s` (%s)\n```sql\n%s\n```",
				objectName, strings.ToUpper(objectType), ddl)
		case lookupNotFound:
			result = fmt.Sprintf("No DDL found for %s (%s).", objectName, strings.ToUpper(objectType))
		case lookupDenied:
			result = fmt.Sprintf("Permission denied retrieving DDL for %s: %v", objectName, err)
		default:
			return fmt.Errorf("ensure the object exists and type '%s' is correct: %w",
				strings.ToUpper(objectType), err)
		}
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error getting DDL: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}
