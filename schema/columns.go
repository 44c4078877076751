package schema

import (
	"strconv"
	"strings"

	"github.com/sqldef/modeldef/database"
	"github.com/sqldef/modeldef/model"
	"github.com/sqldef/modeldef/util"
)

// maxLength is the catalog's CHARACTER_MAXIMUM_LENGTH for (max) columns.
const maxLength = -1

// columnChanges returns the column definitions to add and to alter. The
// identity column is never touched.
func (g *Generator) columnChanges(m *model.Model, actual []database.Column) (adds []string, alters []string) {
	idName := m.IDName()
	for _, prop := range m.Properties {
		if prop.Name == idName {
			continue
		}
		definition := escape(prop.ColumnName()) + " " + prop.ColumnDefinition()

		column := findColumn(actual, prop.ColumnName())
		if column == nil {
			adds = append(adds, definition)
		} else if columnChanged(prop, column) {
			alters = append(alters, definition)
		}
	}
	return adds, alters
}

// columnsToDrop returns the escaped names of columns no property maps to.
func (g *Generator) columnsToDrop(m *model.Model, actual []database.Column) []string {
	declared := map[string]bool{}
	for _, prop := range m.Properties {
		declared[prop.ColumnName()] = true
	}
	idColumn := ""
	if idName := m.IDName(); idName != "" {
		idColumn = m.ColumnName(idName)
	}

	stale := util.FilterSlice(actual, func(c database.Column) bool {
		return !declared[c.Name] && c.Name != idColumn
	})
	return util.TransformSlice(stale, func(c database.Column) string {
		return escape(c.Name)
	})
}

func findColumn(columns []database.Column, name string) *database.Column {
	for i := range columns {
		if columns[i].Name == name {
			return &columns[i]
		}
	}
	return nil
}

func columnChanged(prop *model.Property, column *database.Column) bool {
	if column.Nullable() == prop.NotNull() {
		return true
	}

	if declared, ok := prop.DeclaredLength(); ok && column.Length != nil && *column.Length != 0 {
		if !lengthEquivalent(declared, *column.Length) {
			return true
		}
	}

	// A type change needs both the canonical type and the physical override
	// to disagree with the catalog.
	override := prop.TypeOverride()
	return !strings.EqualFold(column.Type, prop.CanonicalType()) &&
		override != "" && baseType(column.Type) != baseType(override)
}

// lengthEquivalent compares a declared length with the catalog length. A
// declared "max" equals the catalog's -1.
func lengthEquivalent(declared string, actual int) bool {
	if strings.EqualFold(declared, "max") {
		return actual == maxLength
	}
	n, err := strconv.Atoi(strings.TrimSpace(declared))
	if err != nil {
		return false
	}
	return n == actual
}

func baseType(columnType string) string {
	base, _, _ := strings.Cut(columnType, "(")
	return strings.ToUpper(strings.TrimSpace(base))
}

func renderAddColumns(table string, definitions []string) string {
	return "ALTER TABLE " + table + " ADD " + strings.Join(definitions, ", ")
}

func renderAlterColumn(table string, definition string) string {
	return "ALTER TABLE " + table + " ALTER COLUMN " + definition
}

func renderDropColumns(table string, columns []string) string {
	return "ALTER TABLE " + table + " DROP COLUMN " + strings.Join(columns, ", ")
}

// columnNames lists the physical column names, used in debug logs.
func columnNames(columns []database.Column) []string {
	return util.TransformSlice(columns, func(c database.Column) string {
		return c.Name
	})
}
