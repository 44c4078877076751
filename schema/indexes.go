package schema

import (
	"slices"
	"strings"

	"github.com/sqldef/modeldef/database"
	"github.com/sqldef/modeldef/model"
)

const indexOptions = "PAD_INDEX = OFF, STATISTICS_NORECOMPUTE = OFF, SORT_IN_TEMPDB = OFF, IGNORE_DUP_KEY = OFF, " +
	"DROP_EXISTING = OFF, ONLINE = OFF, ALLOW_ROW_LOCKS = ON, ALLOW_PAGE_LOCKS = ON"

// actualIndex is a physical index assembled from its catalog rows. columns
// are the key columns in key ordinal order.
type actualIndex struct {
	name    string
	columns []string
	primary bool
}

type indexColumn struct {
	name       string
	descending bool
}

// groupIndexRows merges catalog rows by index name, keeping the order in
// which indexes first appear. Included columns are not part of the key.
func groupIndexRows(rows []database.IndexRow) []*actualIndex {
	var indexes []*actualIndex
	byName := map[string]*actualIndex{}
	for _, row := range rows {
		index, ok := byName[row.KeyName]
		if !ok {
			index = &actualIndex{
				name:    row.KeyName,
				primary: row.IsPrimaryKey,
			}
			byName[row.KeyName] = index
			indexes = append(indexes, index)
		}
		if row.IsIncluded || row.SeqInIndex <= 0 {
			continue
		}
		for len(index.columns) < row.SeqInIndex {
			index.columns = append(index.columns, "")
		}
		index.columns[row.SeqInIndex-1] = row.ColumnName
	}
	return indexes
}

func (i *actualIndex) isPrimaryKey() bool {
	return i.primary || strings.HasPrefix(i.name, "PK_")
}

// indexChanges drops the physical indexes the model no longer declares or
// whose key columns changed, then creates every declared index that is not
// present.
func (g *Generator) indexChanges(plan *Plan, m *model.Model, rows []database.IndexRow) {
	matchedProperties := map[*model.Property]bool{}
	matchedIndexes := map[*model.Index]bool{}
	recreateAs := map[*model.Index]string{}

	for _, actual := range groupIndexRows(rows) {
		if actual.isPrimaryKey() {
			continue
		}

		if index := findIndex(m, actual.name); index != nil {
			if slices.Equal(indexColumnNames(m, index), actual.columns) {
				matchedIndexes[index] = true
				continue
			}
			plan.add(DropIndex, renderDropIndex(actual.name, plan.Table))
			recreateAs[index] = actual.name
			continue
		}

		if prop := findPropertyIndex(m, actual.name); prop != nil {
			matchedProperties[prop] = true
			continue
		}
		plan.add(DropIndex, renderDropIndex(actual.name, plan.Table))
	}

	for _, prop := range m.Properties {
		if prop.Index != nil && !matchedProperties[prop] {
			addPropertyIndex(plan, prop)
		}
	}
	for _, index := range m.Indexes {
		if matchedIndexes[index] {
			continue
		}
		name, ok := recreateAs[index]
		if !ok {
			name = index.ResolvedName(m.Table())
		}
		addIndex(plan, m, index, name)
	}
}

// findIndex returns the model-level index an existing index name refers to.
func findIndex(m *model.Model, name string) *model.Index {
	for _, index := range m.Indexes {
		if index.MatchesName(name, m.Table()) {
			return index
		}
	}
	return nil
}

// findPropertyIndex returns the indexed property an existing index name
// refers to. A property whose index was removed does not match.
func findPropertyIndex(m *model.Model, name string) *model.Property {
	for _, prop := range m.Properties {
		if prop.Index == nil {
			continue
		}
		if name == prop.Index.ResolvedName(prop.ColumnName()) || name == prop.Name {
			return prop
		}
	}
	return nil
}

func indexColumnNames(m *model.Model, index *model.Index) []string {
	names := index.ColumnNames()
	columns := make([]string, len(names))
	for i, name := range names {
		columns[i] = m.ColumnName(name)
	}
	return columns
}

func addPropertyIndex(plan *Plan, prop *model.Property) {
	column := prop.ColumnName()
	name := prop.Index.ResolvedName(column)
	columns := []indexColumn{{name: column, descending: prop.Index.Type == "DESC"}}
	plan.add(AddIndex, renderCreateIndex(name, plan.Table, prop.Index.Unique, prop.Index.Kind, columns))
	plan.IndexNames = append(plan.IndexNames, name)
}

func addIndex(plan *Plan, m *model.Model, index *model.Index, name string) {
	var columns []indexColumn
	if len(index.Keys) > 0 {
		for _, key := range index.Keys {
			columns = append(columns, indexColumn{name: m.ColumnName(key.Column), descending: key.Descending})
		}
	} else {
		for _, column := range index.Columns {
			columns = append(columns, indexColumn{name: m.ColumnName(column), descending: index.Type == "DESC"})
		}
	}
	plan.add(AddIndex, renderCreateIndex(name, plan.Table, index.Unique, index.Kind, columns))
	plan.IndexNames = append(plan.IndexNames, name)
}

func renderCreateIndex(name, table string, unique bool, kind string, columns []indexColumn) string {
	if kind == "" {
		kind = "NONCLUSTERED"
	}
	keys := make([]string, len(columns))
	for i, column := range columns {
		direction := "ASC"
		if column.descending {
			direction = "DESC"
		}
		keys[i] = escape(column.name) + " " + direction
	}

	var b strings.Builder
	b.WriteString("CREATE ")
	if unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString(kind + " INDEX " + escape(name) + " ON " + table)
	b.WriteString(" (" + strings.Join(keys, ", ") + ")")
	b.WriteString(" WITH (" + indexOptions + ")")
	return b.String()
}

func renderDropIndex(name, table string) string {
	return "DROP INDEX " + escape(name) + " ON " + table
}
