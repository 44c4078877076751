package testutil

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/sqldef/modeldef/database"
	"github.com/sqldef/modeldef/util"
)

// TestCase is one reconciliation scenario: model definitions, the physical
// state of the table and the DDL expected from planning.
type TestCase struct {
	Models     string   `yaml:"models"` // model definitions in the --file format
	Model      string   `yaml:"model"`  // default: the first model
	Current    *Current `yaml:"current"`
	CheckOnly  bool     `yaml:"check_only"`
	Output     string   `yaml:"output"`
	IndexNames []string `yaml:"index_names"`
}

// Current is the physical state of a table. A nil Current means the table
// does not exist.
type Current struct {
	Columns     []Column     `yaml:"columns"`
	Indexes     []Index      `yaml:"indexes"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys"`
}

type Column struct {
	Name      string `yaml:"name"`
	Null      string `yaml:"null"`
	Type      string `yaml:"type"`
	Length    *int   `yaml:"length"`
	Precision *int   `yaml:"precision"`
	Scale     *int   `yaml:"scale"`
}

// Index lists the key columns of one physical index in key order.
type Index struct {
	Name     string   `yaml:"name"`
	Columns  []string `yaml:"columns"`
	Primary  bool     `yaml:"primary"`
	Unique   bool     `yaml:"unique"`
	Kind     string   `yaml:"kind"`
	Included []string `yaml:"included"`
}

type ForeignKey struct {
	Name     string `yaml:"name"`
	Column   string `yaml:"column"`
	PKTable  string `yaml:"pk_table"`
	PKColumn string `yaml:"pk_column"`
}

func init() {
	util.InitSlog()

	// Keep planner debug logs out of test output unless LOG_LEVEL asks for them.
	if os.Getenv("LOG_LEVEL") == "" {
		opts := &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}
		handler := slog.NewTextHandler(os.Stderr, opts)
		slog.SetDefault(slog.New(handler))
	}
}

func ReadTests(pattern string) (map[string]TestCase, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	ret := map[string]TestCase{}
	testFileMap := map[string]string{}

	for _, file := range files {
		var tests map[string]*TestCase

		buf, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		dec := yaml.NewDecoder(bytes.NewReader(buf), yaml.DisallowUnknownField())
		err = dec.Decode(&tests)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}

		for name, test := range tests {
			if test.Models == "" {
				return nil, fmt.Errorf("%s: test case '%s': 'models' is required", file, name)
			}
			if existingFile, ok := testFileMap[name]; ok {
				return nil, fmt.Errorf("duplicate test case name '%s': defined in both '%s' and '%s'", name, existingFile, file)
			}
			testFileMap[name] = file
			ret[name] = *test
		}
	}

	return ret, nil
}

// Table converts the fixture into catalog rows for the given table.
func (c *Current) Table(owner, table string) *FakeTable {
	if c == nil {
		return nil
	}
	t := &FakeTable{}
	for _, column := range c.Columns {
		t.Columns = append(t.Columns, database.Column(column))
	}
	for _, index := range c.Indexes {
		kind := index.Kind
		if kind == "" {
			kind = "NONCLUSTERED"
		}
		for i, column := range index.Columns {
			t.Indexes = append(t.Indexes, database.IndexRow{
				Table:        table,
				KeyName:      index.Name,
				ColumnName:   column,
				TypeDesc:     kind,
				SeqInIndex:   i + 1,
				IsUnique:     index.Unique || index.Primary,
				IsPrimaryKey: index.Primary,
			})
		}
		for _, column := range index.Included {
			t.Indexes = append(t.Indexes, database.IndexRow{
				Table:      table,
				KeyName:    index.Name,
				ColumnName: column,
				TypeDesc:   kind,
				IsIncluded: true,
			})
		}
	}
	for _, fk := range c.ForeignKeys {
		t.ForeignKeys = append(t.ForeignKeys, database.ForeignKey{
			Name:     fk.Name,
			Owner:    owner,
			Table:    table,
			Column:   fk.Column,
			KeySeq:   1,
			PKOwner:  owner,
			PKTable:  fk.PKTable,
			PKColumn: fk.PKColumn,
		})
	}
	return t
}

// JoinDDLs renders ddls the way RunDDLs prints them.
func JoinDDLs(ddls []string) string {
	var b strings.Builder
	for _, ddl := range ddls {
		b.WriteString(ddl)
		b.WriteString(";\n")
	}
	return b.String()
}
