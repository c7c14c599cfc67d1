package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

func (s *OracleMCP) toolAnalyzeImportFile() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "analyze_import_file",
		Description: "Phase 1 of the import workflow: compares a CSV file's columns against a destination table and proposes a column mapping. No data is written. Review the proposed mapping, then pass it to import_data_from_file.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the CSV file",
				},
				"table_name": map[string]interface{}{
					"type":        "string",
					"description": "Destination table",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"file_path", "table_name"},
		},
	}, s.handleAnalyzeImportFile
}

func (s *OracleMCP) handleAnalyzeImportFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	filePath, ok := getStringArg(args, "file_path")
	if !ok || filePath == "" {
		return mcp.NewToolResultError(ErrFileRequired.Error()), nil
	}
	tableName, ok := getStringArg(args, "table_name")
	if !ok || !isSafeIdentifier(tableName) {
		return mcp.NewToolResultError(ErrInvalidIdentifier.Error()), nil
	}
	dbName, _ := getStringArg(args, "database_name")

	header, sample, err := readCSV(filePath, ImportSampleRows)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result string
	err = s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		exists, err := tableExists(ctx, conn, tableName)
		if err != nil {
			return err
		}
		if !exists {
			return &ImportError{Reason: fmt.Sprintf("table '%s' not found in database '%s'", tableName, dbLabel(dbName))}
		}

		destColumns, err := describeColumns(ctx, conn, tableName)
		if err != nil {
			return err
		}

		proposal := proposeMapping(header, destColumns)
		mappingJSON, err := json.MarshalIndent(proposal.Mapping, "", "  ")
		if err != nil {
			return ErrSerializingJSON
		}

		var b strings.Builder
		b.WriteString(renderProposal(proposal, tableName, header, len(sample)))
		b.WriteString("\n### Proposed mapping\n\n```json\n")
		b.Write(mappingJSON)
		b.WriteString("\n```\n\nReview (and edit if needed) this mapping, then confirm the import by calling `import_data_from_file` with it as `column_mapping`.")
		result = b.String()
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *OracleMCP) toolImportDataFromFile() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "import_data_from_file",
		Description: "Phase 2 of the import workflow: imports a CSV file into a table using a confirmed column mapping (as returned by analyze_import_file, possibly edited). All rows are inserted in one transaction: commit on success, rollback on the first error.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the CSV file",
				},
				"table_name": map[string]interface{}{
					"type":        "string",
					"description": "Destination table",
				},
				"column_mapping": map[string]interface{}{
					"type":        "object",
					"description": "Confirmed mapping of file column -> table column, from analyze_import_file",
				},
				"database_name": dbNameProperty(),
			},
			Required: []string{"file_path", "table_name", "column_mapping"},
		},
	}, s.handleImportDataFromFile
}

// parseMapping accepts the mapping either as a JSON object argument or
// as a JSON-encoded string (some clients serialize nested objects).
func parseMapping(raw interface{}) (map[string]string, error) {
	switch v := raw.(type) {
	case map[string]interface{}:
		mapping := make(map[string]string, len(v))
		for key, val := range v {
			str, ok := val.(string)
			if !ok {
				return nil, &ImportError{Reason: fmt.Sprintf("mapping value for '%s' is not a string", key)}
			}
			mapping[key] = str
		}
		return mapping, nil
	case string:
		var mapping map[string]string
		if err := json.Unmarshal([]byte(v), &mapping); err != nil {
			return nil, &ImportError{Reason: "mapping is not valid JSON", Err: err}
		}
		return mapping, nil
	default:
		return nil, &ImportError{Reason: "mapping must be a JSON object"}
	}
}

func (s *OracleMCP) handleImportDataFromFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := getArgs(request.Params.Arguments)
	if !ok {
		return mcp.NewToolResultError(ErrInvalidArguments.Error()), nil
	}
	filePath, ok := getStringArg(args, "file_path")
	if !ok || filePath == "" {
		return mcp.NewToolResultError(ErrFileRequired.Error()), nil
	}
	tableName, ok := getStringArg(args, "table_name")
	if !ok || !isSafeIdentifier(tableName) {
		return mcp.NewToolResultError(ErrInvalidIdentifier.Error()), nil
	}
	rawMapping, ok := args["column_mapping"]
	if !ok {
		return mcp.NewToolResultError(ErrMappingRequired.Error()), nil
	}
	mapping, err := parseMapping(rawMapping)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dbName, _ := getStringArg(args, "database_name")

	header, rows, err := readCSV(filePath, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	start := time.Now()
	var imported int
	err = s.registry.WithConnection(ctx, dbName, func(ctx context.Context, conn *sql.Conn) error {
		// The mapping was proposed earlier and round-tripped through the
		// caller; columns may have changed since, so revalidate against
		// the table as it is now.
		destColumns, err := describeColumns(ctx, conn, tableName)
		if err != nil {
			return err
		}
		if len(destColumns) == 0 {
			return &ImportError{Reason: fmt.Sprintf("table '%s' not found in database '%s'", tableName, dbLabel(dbName))}
		}
		if err = validateMapping(mapping, header, destColumns); err != nil {
			return err
		}

		srcCols, destCols := mappedColumns(mapping, header)
		srcIndexes := make([]int, len(srcCols))
		headerIndex := make(map[string]int, len(header))
		for i, h := range header {
			headerIndex[h] = i
		}
		for i, c := range srcCols {
			srcIndexes[i] = headerIndex[c]
		}

		insertSQL := buildInsertSQL(tableName, destCols)

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			tx.Rollback()
			return &ImportError{Reason: "insert preparation failed", Err: err}
		}
		defer stmt.Close()

		for i, row := range rows {
			if _, err = stmt.ExecContext(ctx, projectRow(row, srcIndexes)...); err != nil {
				tx.Rollback()
				return &ImportError{Reason: fmt.Sprintf("insert failed at row %d (rolled back)", i+1), Err: err}
			}
		}
		if err = tx.Commit(); err != nil {
			return &ImportError{Reason: "commit failed", Err: err}
		}
		imported = len(rows)
		return nil
	})
	if err != nil {
		s.queryLog.Record(fmt.Sprintf("IMPORT INTO %s FROM %s", tableName, filePath), time.Since(start), 0, err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.queryLog.Record(fmt.Sprintf("IMPORT INTO %s FROM %s", tableName, filePath), time.Since(start), int64(imported), nil)
	s.logger.Info("import completed",
		zap.String("table", tableName),
		zap.String("file", filePath),
		zap.Int("rows", imported))
	return mcp.NewToolResultText(fmt.Sprintf("[DB: %s] Imported %d rows into %s from `%s`.",
		dbLabel(dbName), imported, strings.ToUpper(tableName), filePath)), nil
}
