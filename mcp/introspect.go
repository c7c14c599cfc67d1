package mcp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ColumnMeta describes one table column in native ordinality.
type ColumnMeta struct {
	Name      string
	DataType  string
	Length    sql.NullInt64
	Precision sql.NullInt64
	Scale     sql.NullInt64
	Nullable  bool
	Default   sql.NullString
}

// TypeString renders the column type the way DESCRIBE would.
func (c ColumnMeta) TypeString() string {
	switch c.DataType {
	case "VARCHAR2", "CHAR", "NVARCHAR2", "NCHAR":
		if c.Length.Valid {
			return fmt.Sprintf("%s(%d)", c.DataType, c.Length.Int64)
		}
	case "NUMBER":
		if c.Precision.Valid {
			scale := int64(0)
			if c.Scale.Valid {
				scale = c.Scale.Int64
			}
			return fmt.Sprintf("NUMBER(%d,%d)", c.Precision.Int64, scale)
		}
	}
	return c.DataType
}

// splitQualified splits an optionally schema-qualified name into owner
// and object, both normalized to uppercase per Oracle convention.
func splitQualified(name string) (owner, object string) {
	if i := strings.Index(name, "."); i >= 0 {
		return strings.ToUpper(name[:i]), strings.ToUpper(name[i+1:])
	}
	return "", strings.ToUpper(name)
}

// tableExists checks the catalog for a table, using the all-objects
// view when the name is schema-qualified and the current-schema view
// otherwise.
func tableExists(ctx context.Context, conn *sql.Conn, tableName string) (bool, error) {
	owner, object := splitQualified(tableName)

	var count int
	var err error
	if owner != "" {
		err = conn.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM all_tables WHERE owner = :1 AND table_name = :2",
			owner, object).Scan(&count)
	} else {
		err = conn.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM user_tables WHERE table_name = :1",
			object).Scan(&count)
	}
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// describeColumns returns the table's columns ordered by column_id.
func describeColumns(ctx context.Context, conn *sql.Conn, tableName string) ([]ColumnMeta, error) {
	owner, object := splitQualified(tableName)

	query := `
		SELECT column_name, data_type, data_length, data_precision, data_scale, nullable, data_default
		FROM user_tab_columns
		WHERE table_name = :1
		ORDER BY column_id`
	args := []interface{}{object}
	if owner != "" {
		query = `
			SELECT column_name, data_type, data_length, data_precision, data_scale, nullable, data_default
			FROM all_tab_columns
			WHERE owner = :1 AND table_name = :2
			ORDER BY column_id`
		args = []interface{}{owner, object}
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnMeta
	for rows.Next() {
		var c ColumnMeta
		var nullable string
		if err = rows.Scan(&c.Name, &c.DataType, &c.Length, &c.Precision, &c.Scale, &nullable, &c.Default); err != nil {
			return nil, err
		}
		c.Nullable = nullable == "Y"
		columns = append(columns, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return columns, nil
}

// lookupStatus distinguishes "no data" from "query failed" for catalog
// lookups, instead of blurring both into an error string.
type lookupStatus int

const (
	lookupFound lookupStatus = iota
	lookupNotFound
	lookupDenied
	lookupFailed
)

// isPermissionDenied matches the Oracle errors raised when the session
// lacks access to a catalog view or object.
func isPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "ORA-00942") || strings.Contains(msg, "ORA-01031")
}

// objectDDL reconstructs an object's DDL through DBMS_METADATA.
func objectDDL(ctx context.Context, conn *sql.Conn, objectName, objectType string) (string, lookupStatus, error) {
	var ddl sql.NullString
	err := conn.QueryRowContext(ctx,
		"SELECT DBMS_METADATA.GET_DDL(:1, :2) FROM DUAL",
		strings.ToUpper(strings.TrimSpace(objectType)),
		strings.ToUpper(objectName)).Scan(&ddl)

	switch {
	case err == sql.ErrNoRows:
		return "", lookupNotFound, nil
	case isPermissionDenied(err):
		return "", lookupDenied, err
	case err != nil:
		return "", lookupFailed, err
	case !ddl.Valid || ddl.String == "":
		return "", lookupNotFound, nil
	}
	return ddl.String, lookupFound, nil
}
