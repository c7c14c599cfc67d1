package mcp

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
)

// MissingColumn is a destination column no source column matched.
type MissingColumn struct {
	Name     string
	Required bool
}

// MappingProposal is the reconciler's suggested source-to-destination
// correspondence. It is returned to the caller for confirmation; phase
// two only accepts a mapping the caller resubmits.
type MappingProposal struct {
	Mapping     map[string]string
	MissingDest []MissingColumn
	ExtraSource []string
}

// normalizeColumnName folds case and strips separators so that
// "order_id", "Order ID" and "ORDERID" reconcile to the same key.
func normalizeColumnName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, " ", "")
	return name
}

// proposeMapping pairs file columns with destination columns by
// normalized name. First match wins and a destination column is never
// reused for a second source column.
func proposeMapping(fileColumns []string, destColumns []ColumnMeta) MappingProposal {
	proposal := MappingProposal{Mapping: make(map[string]string)}

	used := make(map[string]bool)
	for _, src := range fileColumns {
		srcNorm := normalizeColumnName(src)
		matched := false
		for _, dest := range destColumns {
			if used[dest.Name] {
				continue
			}
			if normalizeColumnName(dest.Name) == srcNorm {
				proposal.Mapping[src] = dest.Name
				used[dest.Name] = true
				matched = true
				break
			}
		}
		if !matched {
			proposal.ExtraSource = append(proposal.ExtraSource, src)
		}
	}

	for _, dest := range destColumns {
		if !used[dest.Name] {
			proposal.MissingDest = append(proposal.MissingDest, MissingColumn{
				Name:     dest.Name,
				Required: !dest.Nullable,
			})
		}
	}

	return proposal
}

// validateMapping checks a caller-confirmed mapping against the current
// file header and the current destination columns. Columns may have
// changed since the proposal; a stale mapping fails here instead of
// mid-insert.
func validateMapping(mapping map[string]string, fileColumns []string, destColumns []ColumnMeta) error {
	if len(mapping) == 0 {
		return &ImportError{Reason: "mapping is empty"}
	}

	fileSet := make(map[string]bool, len(fileColumns))
	for _, c := range fileColumns {
		fileSet[c] = true
	}
	destSet := make(map[string]bool, len(destColumns))
	for _, c := range destColumns {
		destSet[c.Name] = true
	}

	for src, dest := range mapping {
		if !fileSet[src] {
			return &ImportError{Reason: fmt.Sprintf("source column '%s' not present in file", src)}
		}
		if !destSet[dest] {
			return &ImportError{Reason: fmt.Sprintf("destination column '%s' not present in table", dest)}
		}
	}
	return nil
}

// mappedColumns returns the (source, destination) pairs in file header
// order, dropping unmapped source columns.
func mappedColumns(mapping map[string]string, fileColumns []string) (src, dest []string) {
	for _, c := range fileColumns {
		if d, ok := mapping[c]; ok {
			src = append(src, c)
			dest = append(dest, d)
		}
	}
	return src, dest
}

// buildInsertSQL renders the batched insert statement for the mapped
// destination columns.
func buildInsertSQL(tableName string, destColumns []string) string {
	placeholders := make([]string, len(destColumns))
	for i := range destColumns {
		placeholders[i] = fmt.Sprintf(":%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		strings.ToUpper(tableName),
		strings.Join(destColumns, ", "),
		strings.Join(placeholders, ", "))
}

// projectRow extracts the mapped source cells as bind values, turning
// missing and empty cells into NULL.
func projectRow(row []string, srcIndexes []int) []interface{} {
	values := make([]interface{}, len(srcIndexes))
	for i, idx := range srcIndexes {
		if idx >= len(row) || row[idx] == "" {
			values[i] = nil
			continue
		}
		values[i] = row[idx]
	}
	return values
}

// readCSV reads the header plus up to maxRows data rows (maxRows <= 0
// reads the whole file). Ragged rows are tolerated; short rows are
// padded with NULLs at projection time.
func readCSV(path string, maxRows int) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &ImportError{Reason: "file unreadable", Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, &ImportError{Reason: "invalid CSV", Err: err}
	}
	if len(records) == 0 {
		return nil, nil, &ImportError{Reason: "file is empty"}
	}

	header = records[0]
	rows = records[1:]
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	return header, rows, nil
}

// renderProposal produces the human-readable analysis report. The
// machine-readable mapping travels separately as JSON.
func renderProposal(proposal MappingProposal, tableName string, fileColumns []string, rowSample int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Import Analysis for `%s`\n\n", strings.ToUpper(tableName))
	fmt.Fprintf(&b, "File columns: %d | Sampled rows: %d\n\n", len(fileColumns), rowSample)

	if len(proposal.Mapping) > 0 {
		b.WriteString("### Matched columns\n\n| File Column | Table Column |\n|---|---|\n")
		keys := make([]string, 0, len(proposal.Mapping))
		for k := range proposal.Mapping {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "| %s | %s |\n", k, proposal.Mapping[k])
		}
	} else {
		b.WriteString("### Matched columns\n\nNone.\n")
	}

	if len(proposal.MissingDest) > 0 {
		b.WriteString("\n### Table columns without a source\n\n")
		for _, m := range proposal.MissingDest {
			if m.Required {
				fmt.Fprintf(&b, "- %s (Required)\n", m.Name)
			} else {
				fmt.Fprintf(&b, "- %s\n", m.Name)
			}
		}
	}

	if len(proposal.ExtraSource) > 0 {
		b.WriteString("\n### File columns that will be dropped\n\n")
		for _, e := range proposal.ExtraSource {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}

	return b.String()
}
