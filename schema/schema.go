// Package schema reconciles the desired schema of a model with the physical
// schema of its table and renders the DDL that converges them.
package schema

import (
	"strings"

	"github.com/sqldef/modeldef/database"
)

type StatementKind int

// Statement kinds in the order a plan emits them.
const (
	AddColumns StatementKind = iota
	AlterColumn
	DropColumns
	DropIndex
	AddIndex
	DropForeignKey
	AddForeignKey
	CreateTable
	DropTable
)

func (k StatementKind) String() string {
	switch k {
	case AddColumns:
		return "AddColumns"
	case AlterColumn:
		return "AlterColumn"
	case DropColumns:
		return "DropColumns"
	case DropIndex:
		return "DropIndex"
	case AddIndex:
		return "AddIndex"
	case DropForeignKey:
		return "DropForeignKey"
	case AddForeignKey:
		return "AddForeignKey"
	case CreateTable:
		return "CreateTable"
	case DropTable:
		return "DropTable"
	default:
		return "Unknown"
	}
}

type Statement struct {
	Kind StatementKind
	DDL  string
}

// Plan is the ordered list of statements for one table. IndexNames holds the
// names of the indexes the plan creates.
type Plan struct {
	Model      string
	Table      string
	Statements []Statement
	IndexNames []string
}

func (p *Plan) NeedsChange() bool {
	return len(p.Statements) > 0
}

func (p *Plan) DDLs() []string {
	ddls := make([]string, len(p.Statements))
	for i, stmt := range p.Statements {
		ddls[i] = stmt.DDL
	}
	return ddls
}

// Kinds lists the statement kinds of the plan in order.
func (p *Plan) Kinds() []StatementKind {
	kinds := make([]StatementKind, len(p.Statements))
	for i, stmt := range p.Statements {
		kinds[i] = stmt.Kind
	}
	return kinds
}

func (p *Plan) add(kind StatementKind, ddl string) {
	p.Statements = append(p.Statements, Statement{Kind: kind, DDL: ddl})
}

// Current is the physical state of one table as introspected from the catalog.
type Current struct {
	Columns     []database.Column
	Indexes     []database.IndexRow
	ForeignKeys []database.ForeignKey
}

// TableExists reports whether the table was found. A table without columns
// does not exist as far as SQL Server is concerned.
func (c Current) TableExists() bool {
	return len(c.Columns) > 0
}

func escape(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func escapeTable(schema, table string) string {
	if schema == "" {
		return escape(table)
	}
	return escape(schema) + "." + escape(table)
}
