package mcp

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// mockGenerator produces one synthetic value for a column.
type mockGenerator func(r *rand.Rand, rowIndex int, col ColumnMeta) interface{}

// mockRule selects a generator by column name pattern and/or data type.
// An empty pattern or type matches anything.
type mockRule struct {
	namePattern string
	dataType    string
	generate    mockGenerator
}

var mockFirstNames = []string{"Alice", "Bruno", "Carla", "Diego", "Elena", "Felipe", "Gina", "Hugo", "Iris", "Jorge"}
var mockLastNames = []string{"Silva", "Santos", "Oliveira", "Souza", "Costa", "Pereira", "Almeida", "Ferreira"}

// mockRules is evaluated in declaration order; the first rule whose
// name pattern and data type both match wins, so generator selection is
// deterministic for a given column.
var mockRules = []mockRule{
	{namePattern: "EMAIL", generate: genEmail},
	{namePattern: "PHONE", generate: genPhone},
	{namePattern: "NAME", generate: genName},
	{namePattern: "ID", dataType: "NUMBER", generate: genSequence},
	{namePattern: "DATE", generate: genDate},
	{dataType: "NUMBER", generate: genNumber},
	{dataType: "FLOAT", generate: genNumber},
	{dataType: "DATE", generate: genDate},
	{dataType: "TIMESTAMP", generate: genDate},
	{dataType: "CHAR", generate: genText},
	{dataType: "VARCHAR2", generate: genText},
	{dataType: "NVARCHAR2", generate: genText},
	{dataType: "CLOB", generate: genText},
}

func genEmail(r *rand.Rand, rowIndex int, col ColumnMeta) interface{} {
	return fmt.Sprintf("user%d@example.com", rowIndex+1)
}

func genPhone(r *rand.Rand, rowIndex int, col ColumnMeta) interface{} {
	return fmt.Sprintf("+1-555-%04d", r.Intn(10000))
}

func genName(r *rand.Rand, rowIndex int, col ColumnMeta) interface{} {
	name := mockFirstNames[r.Intn(len(mockFirstNames))] + " " + mockLastNames[r.Intn(len(mockLastNames))]
	return truncateToLength(name, col)
}

func genSequence(r *rand.Rand, rowIndex int, col ColumnMeta) interface{} {
	return rowIndex + 1
}

func genDate(r *rand.Rand, rowIndex int, col ColumnMeta) interface{} {
	return time.Now().AddDate(0, 0, -r.Intn(365))
}

func genNumber(r *rand.Rand, rowIndex int, col ColumnMeta) interface{} {
	if col.Scale.Valid && col.Scale.Int64 > 0 {
		return float64(r.Intn(100000)) / 100.0
	}
	return r.Intn(10000)
}

func genText(r *rand.Rand, rowIndex int, col ColumnMeta) interface{} {
	return truncateToLength(fmt.Sprintf("Sample_%d_%04d", rowIndex+1, r.Intn(10000)), col)
}

func truncateToLength(s string, col ColumnMeta) string {
	if col.Length.Valid && int64(len(s)) > col.Length.Int64 {
		return s[:col.Length.Int64]
	}
	return s
}

// generatorFor picks the generator for a column by walking the rule
// table in order. Unmatched columns get text.
func generatorFor(col ColumnMeta) mockGenerator {
	upperName := strings.ToUpper(col.Name)
	for _, rule := range mockRules {
		if rule.namePattern != "" && !strings.Contains(upperName, rule.namePattern) {
			continue
		}
		if rule.dataType != "" && !strings.HasPrefix(col.DataType, rule.dataType) {
			continue
		}
		return rule.generate
	}
	return genText
}

// generateMockRows builds count rows of synthetic values for the given
// columns.
func generateMockRows(columns []ColumnMeta, count int, seed int64) [][]interface{} {
	r := rand.New(rand.NewSource(seed))

	generators := make([]mockGenerator, len(columns))
	for i, col := range columns {
		generators[i] = generatorFor(col)
	}

	rows := make([][]interface{}, count)
	for i := 0; i < count; i++ {
		row := make([]interface{}, len(columns))
		for j := range columns {
			row[j] = generators[j](r, i, columns[j])
		}
		rows[i] = row
	}
	return rows
}
