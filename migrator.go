package modeldef

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/k0kubun/pp/v3"
	"github.com/sqldef/modeldef/database"
	"github.com/sqldef/modeldef/model"
	"github.com/sqldef/modeldef/schema"
)

// Migrator brings the tables of registered models in line with their
// definitions. Statements of one model always run in order on db.
type Migrator struct {
	// PlanWriter receives a dump of every computed plan when set.
	PlanWriter io.Writer

	db            database.Database
	registry      *model.Registry
	generator     *schema.Generator
	logger        database.Logger
	defaultSchema string
	concurrency   int
	applied       atomic.Int64
}

func NewMigrator(db database.Database, registry *model.Registry, config database.GeneratorConfig, logger database.Logger) *Migrator {
	defaultSchema := config.DefaultSchema
	if defaultSchema == "" {
		defaultSchema = db.DefaultSchema()
	}
	return &Migrator{
		db:            db,
		registry:      registry,
		generator:     schema.NewGenerator(registry, defaultSchema),
		logger:        logger,
		defaultSchema: defaultSchema,
		concurrency:   config.Concurrency,
	}
}

// Applied returns the number of statements executed so far.
func (m *Migrator) Applied() int {
	return int(m.applied.Load())
}

// CheckNeedsMigration reports whether every model is up to date. Models are
// checked independently: a failing model does not stop the others, and all
// failures are returned together.
func (m *Migrator) CheckNeedsMigration(ctx context.Context, names []string) (bool, error) {
	results := database.ConcurrentMapFunc(m.modelNames(names), m.concurrency, func(name string) (bool, error) {
		mdl, err := m.lookup(name)
		if err != nil {
			return false, err
		}
		current, err := m.introspect(ctx, mdl, false)
		if err != nil {
			return false, err
		}
		needsChange, _, err := m.AlterTable(ctx, mdl, current, true)
		return needsChange, err
	})

	upToDate := true
	var errs []error
	for _, result := range results {
		if result.Err != nil {
			errs = append(errs, result.Err)
		} else if result.Value {
			upToDate = false
		}
	}
	if err := errors.Join(errs...); err != nil {
		return false, err
	}
	return upToDate, nil
}

// AutoUpdate alters existing tables and creates missing ones, model by model.
// It stops at the first failure.
func (m *Migrator) AutoUpdate(ctx context.Context, names []string) error {
	for _, name := range m.modelNames(names) {
		mdl, err := m.lookup(name)
		if err != nil {
			return err
		}
		current, err := m.introspect(ctx, mdl, false)
		if err != nil {
			return err
		}
		if _, _, err := m.AlterTable(ctx, mdl, current, false); err != nil {
			return err
		}
	}
	return nil
}

// AutoMigrate drops and recreates the table of every model. Models are
// migrated independently and all failures are returned together.
func (m *Migrator) AutoMigrate(ctx context.Context, names []string) error {
	results := database.ConcurrentMapFunc(m.modelNames(names), m.concurrency, func(name string) (struct{}, error) {
		mdl, err := m.lookup(name)
		if err != nil {
			return struct{}{}, err
		}
		if err := m.apply(ctx, m.generator.DropTablePlan(mdl)); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, m.apply(ctx, m.generator.CreateTablePlan(mdl))
	})

	var errs []error
	for _, result := range results {
		errs = append(errs, result.Err)
	}
	return errors.Join(errs...)
}

// CreateForeignKeys adds the declared foreign keys missing from existing
// tables, model by model. It stops at the first failure.
func (m *Migrator) CreateForeignKeys(ctx context.Context, names []string) error {
	for _, name := range m.modelNames(names) {
		mdl, err := m.lookup(name)
		if err != nil {
			return err
		}
		current, err := m.introspect(ctx, mdl, true)
		if err != nil {
			return err
		}
		if !current.TableExists() {
			slog.Info("Skipping foreign keys of a missing table", "model", mdl.Name, "table", mdl.Table())
			continue
		}
		plan := m.generator.ForeignKeyPlan(mdl, current)
		m.dump(plan)
		if err := m.apply(ctx, plan); err != nil {
			return err
		}
	}
	return nil
}

// AlterTable plans the model against current and, unless checkOnly is set,
// applies the plan. It reports whether the table needed a change.
func (m *Migrator) AlterTable(ctx context.Context, mdl *model.Model, current schema.Current, checkOnly bool) (bool, *schema.Plan, error) {
	plan := m.generator.Plan(mdl, current, checkOnly)
	m.dump(plan)
	if !plan.NeedsChange() {
		return false, plan, nil
	}
	if checkOnly {
		return true, plan, nil
	}
	return true, plan, m.apply(ctx, plan)
}

func (m *Migrator) apply(ctx context.Context, plan *schema.Plan) error {
	if !plan.NeedsChange() {
		return nil
	}
	if err := database.RunDDLs(ctx, m.db, plan.DDLs(), m.logger); err != nil {
		return fmt.Errorf("model %s: %w", plan.Model, err)
	}
	m.applied.Add(int64(len(plan.Statements)))
	return nil
}

// introspect reads the physical state of the model's table. Foreign key
// discovery failures are only logged unless strictForeignKeys is set.
func (m *Migrator) introspect(ctx context.Context, mdl *model.Model, strictForeignKeys bool) (schema.Current, error) {
	owner := mdl.Schema(m.defaultSchema)
	table := mdl.Table()

	columns, err := m.db.Columns(ctx, owner, table)
	if err != nil {
		return schema.Current{}, fmt.Errorf("failed to introspect columns of %s: %w", table, err)
	}
	indexes, err := m.db.IndexRows(ctx, owner, table)
	if err != nil {
		return schema.Current{}, fmt.Errorf("failed to introspect indexes of %s: %w", table, err)
	}
	foreignKeys, err := m.db.ForeignKeys(ctx, owner, table)
	if err != nil {
		if strictForeignKeys {
			return schema.Current{}, fmt.Errorf("failed to introspect foreign keys of %s: %w", table, err)
		}
		slog.Warn("Failed to discover foreign keys", "model", mdl.Name, "table", table, "error", err)
		foreignKeys = nil
	}

	return schema.Current{
		Columns:     columns,
		Indexes:     indexes,
		ForeignKeys: foreignKeys,
	}, nil
}

func (m *Migrator) lookup(name string) (*model.Model, error) {
	mdl, ok := m.registry.Lookup(name)
	if !ok {
		return nil, &ModelNotFoundError{Name: name}
	}
	return mdl, nil
}

// modelNames defaults to every registered model.
func (m *Migrator) modelNames(names []string) []string {
	if len(names) == 0 {
		return m.registry.Names()
	}
	return names
}

func (m *Migrator) dump(plan *schema.Plan) {
	if m.PlanWriter != nil {
		pp.Fprintln(m.PlanWriter, plan)
	}
}
