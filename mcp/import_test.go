package mcp

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notNullCol(name, dataType string) ColumnMeta {
	return ColumnMeta{Name: name, DataType: dataType, Nullable: false}
}

func nullableCol(name, dataType string) ColumnMeta {
	return ColumnMeta{Name: name, DataType: dataType, Nullable: true}
}

func TestNormalizeColumnName(t *testing.T) {
	assert.Equal(t, "ORDERID", normalizeColumnName("order_id"))
	assert.Equal(t, "ORDERID", normalizeColumnName("Order ID"))
	assert.Equal(t, "ORDERID", normalizeColumnName("  ORDERID "))
}

func TestProposeMapping(t *testing.T) {
	fileColumns := []string{"A", "B"}
	destColumns := []ColumnMeta{
		notNullCol("A", "VARCHAR2"),
		nullableCol("B", "VARCHAR2"),
		notNullCol("C", "NUMBER"),
	}

	proposal := proposeMapping(fileColumns, destColumns)

	assert.Equal(t, map[string]string{"A": "A", "B": "B"}, proposal.Mapping)
	require.Len(t, proposal.MissingDest, 1)
	assert.Equal(t, "C", proposal.MissingDest[0].Name)
	assert.True(t, proposal.MissingDest[0].Required)
	assert.Empty(t, proposal.ExtraSource)
}

func TestProposeMappingNormalizesAndDropsExtras(t *testing.T) {
	fileColumns := []string{"Order ID", "customer_name", "internal_note"}
	destColumns := []ColumnMeta{
		notNullCol("ORDER_ID", "NUMBER"),
		nullableCol("CUSTOMER_NAME", "VARCHAR2"),
	}

	proposal := proposeMapping(fileColumns, destColumns)

	assert.Equal(t, map[string]string{
		"Order ID":      "ORDER_ID",
		"customer_name": "CUSTOMER_NAME",
	}, proposal.Mapping)
	assert.Equal(t, []string{"internal_note"}, proposal.ExtraSource)
	assert.Empty(t, proposal.MissingDest)
}

func TestProposeMappingNeverReusesDestination(t *testing.T) {
	fileColumns := []string{"NAME", "name"}
	destColumns := []ColumnMeta{nullableCol("NAME", "VARCHAR2")}

	proposal := proposeMapping(fileColumns, destColumns)

	assert.Equal(t, map[string]string{"NAME": "NAME"}, proposal.Mapping)
	assert.Equal(t, []string{"name"}, proposal.ExtraSource)
}

func TestMappingRoundTripThroughJSON(t *testing.T) {
	fileColumns := []string{"A", "B"}
	destColumns := []ColumnMeta{
		notNullCol("A", "VARCHAR2"),
		nullableCol("B", "VARCHAR2"),
		notNullCol("C", "NUMBER"),
	}

	proposal := proposeMapping(fileColumns, destColumns)

	// Phase one hands the mapping to the caller as JSON; phase two gets
	// it back and revalidates. The round trip must survive intact.
	data, err := json.Marshal(proposal.Mapping)
	require.NoError(t, err)
	parsed, err := parseMapping(string(data))
	require.NoError(t, err)
	assert.Equal(t, proposal.Mapping, parsed)

	require.NoError(t, validateMapping(parsed, fileColumns, destColumns))
}

func TestParseMappingObjectForm(t *testing.T) {
	parsed, err := parseMapping(map[string]interface{}{"A": "COL_A"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "COL_A"}, parsed)

	_, err = parseMapping(map[string]interface{}{"A": 42})
	assert.Error(t, err)

	_, err = parseMapping("{not json")
	assert.Error(t, err)

	_, err = parseMapping(7)
	assert.Error(t, err)
}

func TestValidateMappingStale(t *testing.T) {
	fileColumns := []string{"A", "B"}
	destColumns := []ColumnMeta{nullableCol("A", "VARCHAR2")}

	err := validateMapping(map[string]string{"A": "A", "B": "DROPPED_COL"}, fileColumns, destColumns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DROPPED_COL")

	err = validateMapping(map[string]string{"MISSING_SRC": "A"}, fileColumns, destColumns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MISSING_SRC")

	assert.Error(t, validateMapping(nil, fileColumns, destColumns))
}

func TestMappedColumnsPreservesHeaderOrder(t *testing.T) {
	mapping := map[string]string{"B": "COL_B", "A": "COL_A"}
	src, dest := mappedColumns(mapping, []string{"A", "X", "B"})
	assert.Equal(t, []string{"A", "B"}, src)
	assert.Equal(t, []string{"COL_A", "COL_B"}, dest)
}

func TestBuildInsertSQL(t *testing.T) {
	got := buildInsertSQL("employees", []string{"ID", "NAME", "EMAIL"})
	assert.Equal(t, "INSERT INTO EMPLOYEES (ID, NAME, EMAIL) VALUES (:1, :2, :3)", got)
}

func TestProjectRow(t *testing.T) {
	row := []string{"1", "", "x"}
	values := projectRow(row, []int{0, 1, 2, 5})
	assert.Equal(t, []interface{}{"1", nil, "x", nil}, values)
}

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("A,B\n1,x\n2,y\n3,z\n"), 0o600))

	header, rows, err := readCSV(path, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, header)
	assert.Len(t, rows, 3)

	_, sample, err := readCSV(path, 2)
	require.NoError(t, err)
	assert.Len(t, sample, 2)
}

func TestReadCSVErrors(t *testing.T) {
	_, _, err := readCSV(filepath.Join(t.TempDir(), "missing.csv"), 0)
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, _, err = readCSV(empty, 0)
	assert.Error(t, err)
}

func TestRenderProposal(t *testing.T) {
	proposal := MappingProposal{
		Mapping:     map[string]string{"A": "A"},
		MissingDest: []MissingColumn{{Name: "C", Required: true}, {Name: "D"}},
		ExtraSource: []string{"ignored"},
	}

	got := renderProposal(proposal, "orders", []string{"A", "ignored"}, 5)
	assert.Contains(t, got, "`ORDERS`")
	assert.Contains(t, got, "| A | A |")
	assert.Contains(t, got, "- C (Required)")
	assert.Contains(t, got, "- D\n")
	assert.Contains(t, got, "- ignored")
}

func TestColumnMetaTypeString(t *testing.T) {
	v := ColumnMeta{Name: "NAME", DataType: "VARCHAR2", Length: sql.NullInt64{Int64: 100, Valid: true}}
	assert.Equal(t, "VARCHAR2(100)", v.TypeString())

	n := ColumnMeta{Name: "PRICE", DataType: "NUMBER",
		Precision: sql.NullInt64{Int64: 10, Valid: true},
		Scale:     sql.NullInt64{Int64: 2, Valid: true}}
	assert.Equal(t, "NUMBER(10,2)", n.TypeString())

	d := ColumnMeta{Name: "CREATED", DataType: "DATE"}
	assert.Equal(t, "DATE", d.TypeString())
}
