package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sqldef/modeldef/database"
)

type FakeTable struct {
	Columns     []database.Column
	Indexes     []database.IndexRow
	ForeignKeys []database.ForeignKey
}

// FakeDatabase is an in-memory database.Database. It serves the catalog
// rows of Tables and records executed DDL without interpreting it.
type FakeDatabase struct {
	Tables map[string]*FakeTable // keyed by "schema.table"

	ColumnsErr     error
	IndexesErr     error
	ForeignKeysErr error
	// Exec fails with ExecErr for statements containing FailOn.
	FailOn  string
	ExecErr error

	mu           sync.Mutex
	executed     []string
	introspected []string
	closed       bool
}

var _ database.Database = (*FakeDatabase)(nil)

var errExecFailed = errors.New("statement failed")

func NewFakeDatabase() *FakeDatabase {
	return &FakeDatabase{Tables: map[string]*FakeTable{}}
}

// SetTable registers the catalog rows of schema.table. A nil table removes it.
func (d *FakeDatabase) SetTable(schema, table string, t *FakeTable) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t == nil {
		delete(d.Tables, schema+"."+table)
		return
	}
	d.Tables[schema+"."+table] = t
}

func (d *FakeDatabase) table(schema, table string) *FakeTable {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.Tables[schema+"."+table]; ok {
		return t
	}
	return &FakeTable{}
}

func (d *FakeDatabase) Columns(ctx context.Context, schema, table string) ([]database.Column, error) {
	d.mu.Lock()
	d.introspected = append(d.introspected, schema+"."+table)
	d.mu.Unlock()
	if d.ColumnsErr != nil {
		return nil, d.ColumnsErr
	}
	return d.table(schema, table).Columns, nil
}

func (d *FakeDatabase) IndexRows(ctx context.Context, schema, table string) ([]database.IndexRow, error) {
	if d.IndexesErr != nil {
		return nil, d.IndexesErr
	}
	return d.table(schema, table).Indexes, nil
}

func (d *FakeDatabase) ForeignKeys(ctx context.Context, schema, table string) ([]database.ForeignKey, error) {
	if d.ForeignKeysErr != nil {
		return nil, d.ForeignKeysErr
	}
	return d.table(schema, table).ForeignKeys, nil
}

func (d *FakeDatabase) Exec(ctx context.Context, ddl string) error {
	if d.FailOn != "" && strings.Contains(ddl, d.FailOn) {
		if d.ExecErr != nil {
			return d.ExecErr
		}
		return errExecFailed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executed = append(d.executed, ddl)
	return nil
}

// Executed returns the statements executed so far.
func (d *FakeDatabase) Executed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.executed...)
}

// Introspected returns the "schema.table" names whose columns were read.
func (d *FakeDatabase) Introspected() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.introspected...)
}

func (d *FakeDatabase) DefaultSchema() string {
	return "dbo"
}

func (d *FakeDatabase) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *FakeDatabase) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
