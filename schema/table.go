package schema

import (
	"strings"

	"github.com/sqldef/modeldef/model"
)

const primaryKeyOptions = "PAD_INDEX = OFF, STATISTICS_NORECOMPUTE = OFF, IGNORE_DUP_KEY = OFF, " +
	"ALLOW_ROW_LOCKS = ON, ALLOW_PAGE_LOCKS = ON"

// CreateTablePlan creates the table unless it exists, followed by every
// declared index.
func (g *Generator) CreateTablePlan(m *model.Model) *Plan {
	plan := g.newPlan(m)
	plan.add(CreateTable, renderCreateTable(m, plan.Table))
	for _, prop := range m.Properties {
		if prop.Index != nil {
			addPropertyIndex(plan, prop)
		}
	}
	for _, index := range m.Indexes {
		addIndex(plan, m, index, index.ResolvedName(m.Table()))
	}
	return plan
}

// DropTablePlan drops the table if it exists.
func (g *Generator) DropTablePlan(m *model.Model) *Plan {
	plan := g.newPlan(m)
	plan.add(DropTable, "IF EXISTS ("+tableExistsQuery(plan.Table)+")\nBEGIN\n    DROP TABLE "+plan.Table+"\nEND")
	return plan
}

func renderCreateTable(m *model.Model, table string) string {
	idName := m.IDName()

	var definitions []string
	for _, prop := range m.Properties {
		definition := prop.ColumnDefinition()
		if prop.Name == idName {
			definition = identityDefinition(prop)
		}
		definitions = append(definitions, escape(prop.ColumnName())+" "+definition)
	}
	if idName != "" {
		definitions = append(definitions,
			"PRIMARY KEY CLUSTERED ("+escape(m.ColumnName(idName))+" ASC) WITH ("+primaryKeyOptions+")")
	}

	var b strings.Builder
	b.WriteString("IF NOT EXISTS (" + tableExistsQuery(table) + ")\n")
	b.WriteString("BEGIN\n")
	b.WriteString("CREATE TABLE " + table + " (\n    ")
	b.WriteString(strings.Join(definitions, ",\n    "))
	b.WriteString("\n)\nEND")
	return b.String()
}

// identityDefinition renders the identity column, which is always NOT NULL.
// Generated numbers use IDENTITY(1,1) and generated strings are GUIDs.
func identityDefinition(prop *model.Property) string {
	generated := prop.Generated == nil || *prop.Generated
	switch prop.Type {
	case model.TypeNumber:
		if generated {
			return prop.DataType() + " IDENTITY(1,1) NOT NULL"
		}
		return prop.DataType() + " NOT NULL"
	case model.TypeString:
		if generated {
			return "UNIQUEIDENTIFIER DEFAULT newid() NOT NULL"
		}
		return prop.DataType() + " NOT NULL DEFAULT newid()"
	default:
		return prop.DataType() + " NOT NULL"
	}
}

func tableExistsQuery(table string) string {
	return "SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(" + stringLiteral(table) + ") AND type in (N'U')"
}

func stringLiteral(s string) string {
	return "N'" + strings.ReplaceAll(s, "'", "''") + "'"
}
