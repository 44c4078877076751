package modeldef

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sqldef/modeldef/database"
	"github.com/sqldef/modeldef/model"
	"github.com/sqldef/modeldef/schema"
	"github.com/sqldef/modeldef/util"
)

type Options struct {
	Models      []string
	Check       bool
	AutoMigrate bool
	ForeignKeys bool
	DryRun      bool
	Debug       bool
	Config      database.GeneratorConfig
	Output      io.Writer // default: os.Stdout
}

// Main function shared by all commands. A check run that finds pending
// changes returns ErrMigrationNeeded.
func Run(ctx context.Context, db database.Database, registry *model.Registry, options *Options) error {
	var logger database.Logger = database.StdoutLogger{}
	out := options.Output
	if out == nil {
		out = os.Stdout
	} else {
		logger = database.WriterLogger{W: out}
	}
	var dryRun *database.DryRunDatabase
	if options.DryRun {
		dryRun = database.NewDryRunDatabase(db)
		db = dryRun
		logger = database.NullLogger{}
	}

	migrator := NewMigrator(db, registry, options.Config, logger)
	if options.Debug {
		migrator.PlanWriter = os.Stderr
	}
	names := targetModels(registry, options)

	if options.Check {
		upToDate, err := migrator.CheckNeedsMigration(ctx, names)
		if err != nil {
			return err
		}
		if !upToDate {
			fmt.Fprintln(out, "-- Migration is needed --")
			return ErrMigrationNeeded
		}
		fmt.Fprintln(out, "-- Nothing is modified --")
		return nil
	}

	var err error
	switch {
	case options.AutoMigrate:
		err = migrator.AutoMigrate(ctx, names)
	case options.ForeignKeys:
		err = migrator.CreateForeignKeys(ctx, names)
	default:
		err = migrator.AutoUpdate(ctx, names)
	}
	if err != nil {
		return err
	}

	if dryRun != nil {
		showDDLs(out, dryRun.Executed())
	} else if migrator.Applied() == 0 {
		fmt.Fprintln(out, "-- Nothing is modified --")
	}
	return nil
}

// targetModels picks --model, then the config's target_models, then every
// registered model with referenced models first.
func targetModels(registry *model.Registry, options *Options) []string {
	if len(options.Models) > 0 {
		return options.Models
	}
	if len(options.Config.TargetModels) > 0 {
		return options.Config.TargetModels
	}
	return util.TransformSlice(schema.DependencyOrder(registry.Models()), func(m *model.Model) string {
		return m.Name
	})
}

func showDDLs(out io.Writer, ddls []string) {
	if len(ddls) == 0 {
		fmt.Fprintln(out, "-- Nothing is modified --")
		return
	}
	fmt.Fprintln(out, "-- dry run --")
	for _, ddl := range ddls {
		fmt.Fprintf(out, "%s;\n", ddl)
	}
}
