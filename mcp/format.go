package mcp

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// formatMarkdownTable renders a result set as a markdown table. When
// maxRows > 0 and more rows exist, output is truncated with a note.
func formatMarkdownTable(columns []string, rows [][]interface{}, maxRows int) string {
	if len(rows) == 0 {
		return "No results."
	}

	displayRows := rows
	if maxRows > 0 && len(rows) > maxRows {
		displayRows = rows[:maxRows]
	}

	var b strings.Builder
	b.WriteString(strings.Join(columns, " | "))
	b.WriteByte('\n')
	separators := make([]string, len(columns))
	for i := range separators {
		separators[i] = "---"
	}
	b.WriteString(strings.Join(separators, " | "))

	for _, row := range displayRows {
		b.WriteByte('\n')
		cells := make([]string, len(row))
		for i, item := range row {
			cells[i] = formatCell(item)
		}
		b.WriteString(strings.Join(cells, " | "))
	}

	if maxRows > 0 && len(rows) > maxRows {
		fmt.Fprintf(&b, "\n\n*... and %d more rows*", len(rows)-maxRows)
	}
	return b.String()
}

func formatCell(item interface{}) string {
	if item == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", formatValue(item))
}

// formatValue converts driver values to display-safe forms.
func formatValue(val interface{}) interface{} {
	switch v := val.(type) {
	case []byte:
		if utf8.Valid(v) && len(v) <= 1000 {
			return string(v)
		}
		return fmt.Sprintf("<binary data: %d bytes>", len(v))
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case nil:
		return nil
	default:
		return v
	}
}

// formatBytes renders a byte count in human-readable units.
func formatBytes(size float64) string {
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if size < 1024.0 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.2f PB", size)
}

