package database

import (
	"context"
	"sync"
)

// DryRunDatabase introspects through the wrapped database but never executes DDL.
type DryRunDatabase struct {
	wrapped Database

	mu       sync.Mutex
	executed []string
}

func NewDryRunDatabase(db Database) *DryRunDatabase {
	return &DryRunDatabase{wrapped: db}
}

func (d *DryRunDatabase) Columns(ctx context.Context, schema, table string) ([]Column, error) {
	return d.wrapped.Columns(ctx, schema, table)
}

func (d *DryRunDatabase) IndexRows(ctx context.Context, schema, table string) ([]IndexRow, error) {
	return d.wrapped.IndexRows(ctx, schema, table)
}

func (d *DryRunDatabase) ForeignKeys(ctx context.Context, schema, table string) ([]ForeignKey, error) {
	return d.wrapped.ForeignKeys(ctx, schema, table)
}

func (d *DryRunDatabase) Exec(ctx context.Context, ddl string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executed = append(d.executed, ddl)
	return nil
}

// Executed returns the statements that would have been run.
func (d *DryRunDatabase) Executed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.executed...)
}

func (d *DryRunDatabase) DefaultSchema() string {
	return d.wrapped.DefaultSchema()
}

func (d *DryRunDatabase) Close() error {
	return d.wrapped.Close()
}
