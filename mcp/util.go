package mcp

import (
	"database/sql"
)

// getArgs extracts the tool argument map from the raw request payload.
func getArgs(raw interface{}) (map[string]interface{}, bool) {
	args, ok := raw.(map[string]interface{})
	return args, ok
}

// getStringArg converts a string argument safely.
func getStringArg(args map[string]interface{}, key string) (string, bool) {
	val, ok := args[key].(string)
	return val, ok
}

// getIntArg converts an integer argument safely (JSON numbers arrive as
// float64).
func getIntArg(args map[string]interface{}, key string, defaultVal int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	return defaultVal
}

// dbLabel names the target database in tool output.
func dbLabel(dbName string) string {
	if dbName == "" {
		return "Default"
	}
	return dbName
}

// collectRows reads column names and up to limit rows (limit <= 0 reads
// everything) into generic value slices.
func collectRows(rows *sql.Rows, limit int) ([]string, [][]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]interface{}
	for rows.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		out = append(out, values)
	}
	if err = rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, out, nil
}
