// Package model describes the desired schema declared by application models:
// properties with their logical types and nullability, single-property and
// multi-column indexes, and foreign keys. Nothing here talks to a database.
package model

import (
	"strconv"
	"strings"
)

// Type is the logical type of a model property.
type Type string

const (
	TypeString   = Type("String")
	TypeText     = Type("Text")
	TypeNumber   = Type("Number")
	TypeDate     = Type("Date")
	TypeBoolean  = Type("Boolean")
	TypeDecimal  = Type("Decimal")
	TypeGeoPoint = Type("GeoPoint")
	TypeBuffer   = Type("Buffer")
	TypeJSON     = Type("JSON")
)

// Model is the desired schema of one table.
type Model struct {
	Name        string
	Mssql       *ModelSettings
	Properties  []*Property
	Indexes     []*Index
	ForeignKeys []*ForeignKey
}

// ModelSettings overrides where the model is stored.
type ModelSettings struct {
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`
}

type Property struct {
	Name      string
	Type      Type
	Length    int
	ID        bool
	Generated *bool
	Required  bool
	AllowNull *bool
	Nullable  *bool
	Mssql     *ColumnSettings
	Index     *PropertyIndex
}

// ColumnSettings are physical overrides for a single property.
type ColumnSettings struct {
	ColumnName    string `yaml:"columnName"`
	DataType      string `yaml:"dataType"`
	DataLength    string `yaml:"dataLength"`
	DataPrecision int    `yaml:"dataPrecision"`
	DataScale     int    `yaml:"dataScale"`
	Nullable      string `yaml:"nullable"`
}

// PropertyIndex is an index over a single property.
type PropertyIndex struct {
	Name   string
	Type   string
	Kind   string
	Unique bool
}

// Index is a named index declared at model level. Either Columns or Keys is set.
type Index struct {
	Key     string
	Name    string
	Columns []string
	Keys    []IndexKey
	Type    string
	Kind    string
	Unique  bool
}

type IndexKey struct {
	Column     string
	Descending bool
}

type ForeignKey struct {
	Key        string
	Name       string
	ForeignKey string
	Entity     string
	EntityKey  string
}

// Property returns the property with the given name or nil.
func (m *Model) Property(name string) *Property {
	for _, p := range m.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// IDName returns the name of the identity property, or "" when the model has none.
func (m *Model) IDName() string {
	for _, p := range m.Properties {
		if p.ID {
			return p.Name
		}
	}
	if m.Property("id") != nil {
		return "id"
	}
	return ""
}

func (m *Model) Table() string {
	if m.Mssql != nil && m.Mssql.Table != "" {
		return m.Mssql.Table
	}
	return m.Name
}

func (m *Model) Schema(defaultSchema string) string {
	if m.Mssql != nil && m.Mssql.Schema != "" {
		return m.Mssql.Schema
	}
	return defaultSchema
}

// ColumnName resolves the physical column of a property. Names that are not
// properties of the model are returned unchanged.
func (m *Model) ColumnName(propName string) string {
	if p := m.Property(propName); p != nil {
		return p.ColumnName()
	}
	return propName
}

// ForeignKey looks a foreign key up by its constraint name.
func (m *Model) ForeignKey(constraintName string) *ForeignKey {
	for _, fk := range m.ForeignKeys {
		if fk.ConstraintName() == constraintName {
			return fk
		}
	}
	return nil
}

func (p *Property) ColumnName() string {
	if p.Mssql != nil && p.Mssql.ColumnName != "" {
		return p.Mssql.ColumnName
	}
	return p.Name
}

// NotNull reports whether the column must reject NULL.
func (p *Property) NotNull() bool {
	return p.ID || p.Required || isFalse(p.AllowNull) || isFalse(p.Nullable) ||
		(p.Mssql != nil && isNo(p.Mssql.Nullable))
}

// DeclaredLength returns the explicitly declared column length, which is
// either a number or "max".
func (p *Property) DeclaredLength() (string, bool) {
	if p.Mssql != nil && p.Mssql.DataLength != "" {
		return p.Mssql.DataLength, true
	}
	if p.Length > 0 {
		return strconv.Itoa(p.Length), true
	}
	return "", false
}

// TypeOverride returns the upper-cased physical type override, if any.
func (p *Property) TypeOverride() string {
	if p.Mssql == nil {
		return ""
	}
	return strings.ToUpper(p.Mssql.DataType)
}

// ResolvedName is the physical index name for an index on the given column.
func (i *PropertyIndex) ResolvedName(columnName string) string {
	if i.Name != "" {
		return i.Name
	}
	return "idx_" + columnName
}

// ColumnNames lists the declared index columns in declaration order.
func (i *Index) ColumnNames() []string {
	if len(i.Keys) > 0 {
		names := make([]string, len(i.Keys))
		for n, key := range i.Keys {
			names[n] = key.Column
		}
		return names
	}
	return i.Columns
}

// DefaultName builds idx_<col1>_<col2>, prefixed with the table name for
// composite indexes.
func (i *Index) DefaultName(table string) string {
	columns := i.ColumnNames()
	prefix := "idx_"
	if len(columns) > 1 {
		prefix += table + "_"
	}
	return prefix + strings.Join(columns, "_")
}

// ResolvedName is the explicit name when present, else the generated default.
func (i *Index) ResolvedName(table string) string {
	if i.Name != "" {
		return i.Name
	}
	return i.DefaultName(table)
}

// MatchesName reports whether an existing physical index name identifies this index.
func (i *Index) MatchesName(name, table string) bool {
	return name == i.Key || name == i.ResolvedName(table) || name == i.DefaultName(table)
}

// ReferencedKey is the referenced property. Without an explicit entityKey it
// is the identity of ref, or "id" when ref is unknown or has no identity.
func (fk *ForeignKey) ReferencedKey(ref *Model) string {
	if fk.EntityKey != "" {
		return fk.EntityKey
	}
	if ref != nil {
		if id := ref.IDName(); id != "" {
			return id
		}
	}
	return "id"
}

func (fk *ForeignKey) ConstraintName() string {
	if fk.Name != "" {
		return fk.Name
	}
	return fk.Key
}

// isNo accepts "N" and its spellings. YAML 1.1 reads a bare N as false.
func isNo(s string) bool {
	switch strings.ToLower(s) {
	case "n", "no", "false":
		return true
	}
	return false
}

func isFalse(b *bool) bool {
	return b != nil && !*b
}
