package schema

import (
	"log/slog"

	"github.com/sqldef/modeldef/model"
)

// Generator plans DDL for models of one registry. It holds no per-model state,
// so plans for different models may be built concurrently.
type Generator struct {
	registry      *model.Registry
	defaultSchema string
}

func NewGenerator(registry *model.Registry, defaultSchema string) *Generator {
	return &Generator{
		registry:      registry,
		defaultSchema: defaultSchema,
	}
}

// Plan diffs the model against the current state of its table. When the
// table does not exist, the plan creates it instead. Foreign keys are only
// added when checkOnly is set; applying them is left to ForeignKeyPlan.
func (g *Generator) Plan(m *model.Model, current Current, checkOnly bool) *Plan {
	if !current.TableExists() {
		slog.Debug("table not found, planning CREATE TABLE", "model", m.Name)
		return g.CreateTablePlan(m)
	}

	plan := g.newPlan(m)
	table := plan.Table
	slog.Debug("planning table", "model", m.Name, "table", table, "columns", columnNames(current.Columns))

	adds, alters := g.columnChanges(m, current.Columns)
	if len(adds) > 0 {
		plan.add(AddColumns, renderAddColumns(table, adds))
	}
	for _, alter := range alters {
		plan.add(AlterColumn, renderAlterColumn(table, alter))
	}
	if drops := g.columnsToDrop(m, current.Columns); len(drops) > 0 {
		plan.add(DropColumns, renderDropColumns(table, drops))
	}

	g.indexChanges(plan, m, current.Indexes)

	present := g.foreignKeyDrops(plan, m, current.ForeignKeys)
	if checkOnly {
		g.foreignKeyAdds(plan, m, present)
	}
	return plan
}

// ForeignKeyPlan adds the declared foreign keys missing from the table.
// Nothing is dropped.
func (g *Generator) ForeignKeyPlan(m *model.Model, current Current) *Plan {
	plan := g.newPlan(m)
	g.foreignKeyAdds(plan, m, groupForeignKeys(current.ForeignKeys))
	return plan
}

func (g *Generator) newPlan(m *model.Model) *Plan {
	return &Plan{
		Model: m.Name,
		Table: g.tableName(m),
	}
}

func (g *Generator) tableName(m *model.Model) string {
	return escapeTable(m.Schema(g.defaultSchema), m.Table())
}
