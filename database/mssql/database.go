package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/sqldef/modeldef/database"
)

const defaultSchema = "dbo"

type MssqlDatabase struct {
	config        database.Config
	db            *sql.DB
	defaultSchema string
}

func NewDatabase(config database.Config, schema string) (database.Database, error) {
	db, err := sql.Open("sqlserver", mssqlBuildDSN(config))
	if err != nil {
		return nil, err
	}
	if schema == "" {
		schema = defaultSchema
	}

	return &MssqlDatabase{
		db:            db,
		config:        config,
		defaultSchema: schema,
	}, nil
}

func (d *MssqlDatabase) Columns(ctx context.Context, schema, table string) ([]database.Column, error) {
	const query = `SELECT
	[COLUMN_NAME],
	[IS_NULLABLE],
	[DATA_TYPE],
	[CHARACTER_MAXIMUM_LENGTH],
	[NUMERIC_PRECISION],
	[NUMERIC_SCALE]
FROM INFORMATION_SCHEMA.COLUMNS
WHERE [TABLE_SCHEMA] = @schema AND [TABLE_NAME] = @table
ORDER BY [ORDINAL_POSITION]`

	rows, err := d.db.QueryContext(ctx, query, sql.Named("schema", schema), sql.Named("table", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := []database.Column{}
	for rows.Next() {
		var name, nullable, dataType string
		var length, precision, scale sql.NullInt64
		if err := rows.Scan(&name, &nullable, &dataType, &length, &precision, &scale); err != nil {
			return nil, err
		}
		col := database.Column{
			Name:      name,
			Null:      nullable,
			Length:    nullableInt(length),
			Precision: nullableInt(precision),
			Scale:     nullableInt(scale),
		}
		col.Type = typeWithLength(dataType, col.Length, col.Precision, col.Scale)
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func (d *MssqlDatabase) IndexRows(ctx context.Context, schema, table string) ([]database.IndexRow, error) {
	const query = `SELECT
	T.[name] AS [table_name],
	I.[name] AS [key_name],
	AC.[name] AS [column_name],
	I.[type_desc],
	I.[is_unique],
	I.[is_primary_key],
	IC.[is_descending_key],
	IC.[is_included_column],
	IC.[key_ordinal]
FROM sys.[tables] AS T
INNER JOIN sys.[indexes] I ON T.[object_id] = I.[object_id]
INNER JOIN sys.[index_columns] IC ON I.[object_id] = IC.[object_id] AND IC.[index_id] = I.[index_id]
INNER JOIN sys.[columns] AC ON T.[object_id] = AC.[object_id] AND IC.[column_id] = AC.[column_id]
WHERE T.[is_ms_shipped] = 0 AND I.[type_desc] <> 'HEAP'
	AND OBJECT_SCHEMA_NAME(T.[object_id], DB_ID()) = @schema AND T.[name] = @table
ORDER BY T.[name], I.[index_id], IC.[key_ordinal]`

	rows, err := d.db.QueryContext(ctx, query, sql.Named("schema", schema), sql.Named("table", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	indexRows := []database.IndexRow{}
	for rows.Next() {
		var row database.IndexRow
		err := rows.Scan(&row.Table, &row.KeyName, &row.ColumnName, &row.TypeDesc, &row.IsUnique,
			&row.IsPrimaryKey, &row.IsDescending, &row.IsIncluded, &row.SeqInIndex)
		if err != nil {
			return nil, err
		}
		indexRows = append(indexRows, row)
	}
	return indexRows, rows.Err()
}

func (d *MssqlDatabase) ForeignKeys(ctx context.Context, schema, table string) ([]database.ForeignKey, error) {
	const query = `SELECT
	f.name,
	OBJECT_SCHEMA_NAME(f.parent_object_id),
	OBJECT_NAME(f.parent_object_id),
	COL_NAME(fc.parent_object_id, fc.parent_column_id),
	fc.constraint_column_id,
	OBJECT_SCHEMA_NAME(f.referenced_object_id),
	OBJECT_NAME(f.referenced_object_id),
	COL_NAME(fc.referenced_object_id, fc.referenced_column_id)
FROM sys.foreign_keys f INNER JOIN sys.foreign_key_columns fc ON f.object_id = fc.constraint_object_id
WHERE f.parent_object_id = OBJECT_ID(@name, 'U')
ORDER BY f.name, fc.constraint_column_id`

	rows, err := d.db.QueryContext(ctx, query, sql.Named("name", qualifiedName(schema, table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := []database.ForeignKey{}
	for rows.Next() {
		var fk database.ForeignKey
		err := rows.Scan(&fk.Name, &fk.Owner, &fk.Table, &fk.Column, &fk.KeySeq, &fk.PKOwner, &fk.PKTable, &fk.PKColumn)
		if err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func (d *MssqlDatabase) Exec(ctx context.Context, ddl string) error {
	_, err := d.db.ExecContext(ctx, ddl)
	return err
}

func (d *MssqlDatabase) DefaultSchema() string {
	return d.defaultSchema
}

func (d *MssqlDatabase) DB() *sql.DB {
	return d.db
}

func (d *MssqlDatabase) Close() error {
	return d.db.Close()
}

// typeWithLength appends the character length or numeric precision to the
// catalog type name. A length of -1 is SQL Server's marker for max.
func typeWithLength(dataType string, length, precision, scale *int) string {
	if length != nil && *length != 0 {
		if *length == -1 {
			return dataType + "(max)"
		}
		return dataType + "(" + strconv.Itoa(*length) + ")"
	}
	if precision != nil && *precision != 0 {
		s := 0
		if scale != nil {
			s = *scale
		}
		return fmt.Sprintf("%s(%d,%d)", dataType, *precision, s)
	}
	return dataType
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func qualifiedName(schema, table string) string {
	return quoteName(schema) + "." + quoteName(table)
}

func quoteName(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func mssqlBuildDSN(config database.Config) string {
	query := url.Values{}
	query.Add("database", config.DbName)

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(config.User, config.Password),
		Host:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
