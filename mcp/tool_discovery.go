package mcp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

func (s *OracleMCP) toolListDatabases() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "list_databases",
		Description: "Lists all configured database connections. Use this to see available environments (e.g. dev, prod).",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListDatabases
}

func (s *OracleMCP) handleListDatabases(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if len(s.cfg.Profiles) == 0 {
		return mcp.NewToolResultText("No databases configured."), nil
	}

	var b strings.Builder
	b.WriteString("## Configured Databases\n\n")
	b.WriteString("| Name | User | Target | Mode | Status |\n|---|---|---|---|---|\n")

	for _, p := range s.cfg.Profiles {
		status := "Idle"
		if s.registry.Active(p.Name) {
			status = "Active"
		}
		mode := "normal"
		if p.Privileged() {
			mode = "SYSDBA"
		}
		fmt.Fprintf(&b, "| **%s** | %s | %s | %s | %s |\n",
			p.Name, p.User, p.ConnectString(), mode, status)
	}

	fmt.Fprintf(&b, "\n**Default Database**: `%s`", s.cfg.Global.DefaultDatabase)
	return mcp.NewToolResultText(b.String()), nil
}

func (s *OracleMCP) toolLocateTable() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "locate_table",
		Description: "Global search: finds which configured database(s) contain a specific table. Run this first when unsure which database to query.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_name": map[string]interface{}{
					"type":        "string",
					"description": "Table name to locate (optionally schema-qualified)",
				},
			},
			Required: []string{"table_name"},
		},
	}, s.handleLocateTable
}

func (s *OracleMCP) handleLocateTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	// Per-database connection failures are non-fatal during discovery;
	// unreachable databases are simply excluded from the result.
	var matches []string
	for _, p := range s.cfg.Profiles {
		err := s.registry.WithConnection(ctx, p.Name, func(ctx context.Context, conn *sql.Conn) error {
			exists, err := tableExists(ctx, conn, tableName)
			if err != nil {
				return err
			}
			if exists {
				matches = append(matches, p.Name)
			}
			return nil
		})
		if err != nil {
			s.logger.Debug("locate_table skipping database",
				zap.String("database", p.Name), zap.Error(err))
		}
	}

	switch len(matches) {
	case 0:
		return mcp.NewToolResultText(fmt.Sprintf("Table `%s` NOT found in any connected databases.", tableName)), nil
	case 1:
		return mcp.NewToolResultText(fmt.Sprintf(
			"**FOUND**: Table `%s` is unique to database **`%s`**.\nProceed using `database_name='%s'`.",
			tableName, matches[0], matches[0])), nil
	default:
		return mcp.NewToolResultText(fmt.Sprintf(
			"**AMBIGUOUS**: Table `%s` found in MULTIPLE databases: `%s`.\n\nAsk the user which database to use.",
			tableName, strings.Join(matches, ", "))), nil
	}
}

func (s *OracleMCP) toolGetSessionInfo() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "get_session_info",
		Description: "Returns detailed information about all active connection pools and their sessions.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleGetSessionInfo
}

func (s *OracleMCP) handleGetSessionInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var active []string
	for _, p := range s.cfg.Profiles {
		if s.registry.Active(p.Name) {
			active = append(active, p.Name)
		}
	}
	if len(active) == 0 {
		return mcp.NewToolResultText("No active connection pools."), nil
	}

	var b strings.Builder
	b.WriteString("## System Session Info\n")
	for _, name := range active {
		fmt.Fprintf(&b, "\n### Database: %s\n", name)
		if stats, ok := s.registry.Stats(name); ok {
			fmt.Fprintf(&b, "- **Pool Status**: Open=%d, InUse=%d, Idle=%d\n",
				stats.OpenConnections, stats.InUse, stats.Idle)
		}

		err := s.registry.WithConnection(ctx, name, func(ctx context.Context, conn *sql.Conn) error {
			var dbName, sessionUser string
			row := conn.QueryRowContext(ctx,
				"SELECT SYS_CONTEXT('USERENV','DB_NAME'), SYS_CONTEXT('USERENV','SESSION_USER') FROM DUAL")
			if err := row.Scan(&dbName, &sessionUser); err != nil {
				return err
			}
			fmt.Fprintf(&b, "- **Connected as**: %s @ %s\n", sessionUser, dbName)
			return nil
		})
		if err != nil {
			fmt.Fprintf(&b, "- **Check**: Failed to acquire test connection (%v)\n", err)
		}
	}

	return mcp.NewToolResultText(b.String()), nil
}
