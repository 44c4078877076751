package schema

import (
	"github.com/sqldef/modeldef/database"
	"github.com/sqldef/modeldef/model"
)

// actualForeignKey is a physical constraint with its column pairs in key order.
type actualForeignKey struct {
	name    string
	columns []database.ForeignKey
}

func groupForeignKeys(rows []database.ForeignKey) []*actualForeignKey {
	var fks []*actualForeignKey
	byName := map[string]*actualForeignKey{}
	for _, row := range rows {
		fk, ok := byName[row.Name]
		if !ok {
			fk = &actualForeignKey{name: row.Name}
			byName[row.Name] = fk
			fks = append(fks, fk)
		}
		fk.columns = append(fk.columns, row)
	}
	return fks
}

// foreignKeyDrops drops every constraint the model no longer declares under
// its name, or whose column, referenced table or referenced column differ
// from the declaration. It returns the constraints that stay.
func (g *Generator) foreignKeyDrops(plan *Plan, m *model.Model, rows []database.ForeignKey) []*actualForeignKey {
	var present []*actualForeignKey
	for _, actual := range groupForeignKeys(rows) {
		declared := m.ForeignKey(actual.name)
		if declared != nil && g.foreignKeyMatches(m, declared, actual) {
			present = append(present, actual)
			continue
		}
		plan.add(DropForeignKey, "ALTER TABLE "+plan.Table+" DROP CONSTRAINT "+escape(actual.name))
	}
	return present
}

// foreignKeyAdds adds the declared constraints missing from present. A
// constraint referencing a model outside the registry is skipped.
func (g *Generator) foreignKeyAdds(plan *Plan, m *model.Model, present []*actualForeignKey) {
	for _, fk := range m.ForeignKeys {
		name := fk.ConstraintName()
		if containsForeignKey(present, name) {
			continue
		}
		ref, ok := g.lookup(fk.Entity)
		if !ok {
			continue
		}
		plan.add(AddForeignKey, "ALTER TABLE "+plan.Table+
			" ADD CONSTRAINT "+escape(name)+
			" FOREIGN KEY ("+escape(m.ColumnName(fk.ForeignKey))+")"+
			" REFERENCES "+g.tableName(ref)+" ("+escape(ref.ColumnName(fk.ReferencedKey(ref)))+")")
	}
}

func (g *Generator) foreignKeyMatches(m *model.Model, fk *model.ForeignKey, actual *actualForeignKey) bool {
	if len(actual.columns) != 1 {
		return false
	}
	refTable, refColumn := fk.Entity, fk.ReferencedKey(nil)
	if ref, ok := g.lookup(fk.Entity); ok {
		refTable, refColumn = ref.Table(), ref.ColumnName(fk.ReferencedKey(ref))
	}

	row := actual.columns[0]
	return row.Column == m.ColumnName(fk.ForeignKey) &&
		row.PKTable == refTable &&
		row.PKColumn == refColumn
}

func (g *Generator) lookup(name string) (*model.Model, bool) {
	if g.registry == nil {
		return nil, false
	}
	return g.registry.Lookup(name)
}

func containsForeignKey(fks []*actualForeignKey, name string) bool {
	for _, fk := range fks {
		if fk.name == name {
			return true
		}
	}
	return false
}
