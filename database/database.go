// This package has database layer. Never deal with DDL construction.
package database

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sqldef/modeldef/util"
	"gopkg.in/yaml.v2"
)

type Config struct {
	DbName   string
	User     string
	Password string
	Host     string
	Port     int
}

type GeneratorConfig struct {
	TargetModels  []string
	DefaultSchema string
	// Concurrency bounds how many models independent operations handle at
	// once. 0 runs them one by one, a negative value removes the limit.
	Concurrency int
}

// Column is a physical column as reported by the catalog. Type embeds the
// length or precision, e.g. "nvarchar(50)" or "decimal(10,2)".
type Column struct {
	Name      string
	Null      string
	Type      string
	Length    *int
	Precision *int
	Scale     *int
}

func (c Column) Nullable() bool {
	return strings.EqualFold(c.Null, "YES")
}

// IndexRow is one column of one physical index. Rows of the same index share KeyName.
type IndexRow struct {
	Table        string
	KeyName      string
	ColumnName   string
	TypeDesc     string
	SeqInIndex   int
	IsUnique     bool
	IsPrimaryKey bool
	IsDescending bool
	IsIncluded   bool
}

// ForeignKey is one column pair of a physical foreign key constraint.
type ForeignKey struct {
	Name     string
	Owner    string
	Table    string
	Column   string
	KeySeq   int
	PKOwner  string
	PKTable  string
	PKColumn string
}

// Abstraction layer for the database a migration runs against
type Database interface {
	// Columns returns the columns of a table ordered by ordinal position.
	// A table that does not exist has no columns.
	Columns(ctx context.Context, schema, table string) ([]Column, error)
	IndexRows(ctx context.Context, schema, table string) ([]IndexRow, error)
	ForeignKeys(ctx context.Context, schema, table string) ([]ForeignKey, error)
	Exec(ctx context.Context, ddl string) error
	DefaultSchema() string
	Close() error
}

// ExecError reports the statement that failed to execute.
type ExecError struct {
	DDL string
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("failed to execute %q: %s", e.DDL, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// RunDDLs executes ddls one by one and stops at the first failure. Statements
// that already ran are not rolled back.
func RunDDLs(ctx context.Context, d Database, ddls []string, logger Logger) error {
	logger.Println("-- Apply --")
	for _, ddl := range ddls {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Printf("%s;\n", ddl)
		if err := d.Exec(ctx, ddl); err != nil {
			return &ExecError{DDL: ddl, Err: err}
		}
	}
	return nil
}

func ParseGeneratorConfig(configFile string) (GeneratorConfig, error) {
	if configFile == "" {
		return GeneratorConfig{}, nil
	}

	buf, err := os.ReadFile(configFile)
	if err != nil {
		return GeneratorConfig{}, err
	}

	var config struct {
		TargetModels string `yaml:"target_models"`
		Schema       string `yaml:"schema"`
		Concurrency  int    `yaml:"concurrency"`
	}
	err = yaml.UnmarshalStrict(buf, &config)
	if err != nil {
		return GeneratorConfig{}, fmt.Errorf("%s: %w", configFile, err)
	}

	return GeneratorConfig{
		TargetModels:  util.SplitLines(config.TargetModels),
		DefaultSchema: config.Schema,
		Concurrency:   config.Concurrency,
	}, nil
}
