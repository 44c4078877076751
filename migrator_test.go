package modeldef

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sqldef/modeldef/database"
	"github.com/sqldef/modeldef/model"
	"github.com/sqldef/modeldef/schema"
	"github.com/sqldef/modeldef/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const definitions = `
User:
  properties:
    id: {type: number, id: true}
    name: {type: string, length: 50}
Post:
  properties:
    id: {type: number, id: true}
    userId: number
  foreignKeys:
    fk_post_user:
      foreignKey: userId
      entity: User
`

func newRegistry(t *testing.T) *model.Registry {
	t.Helper()
	models, err := model.Parse([]byte(definitions))
	require.NoError(t, err)
	registry, err := model.NewRegistry(models...)
	require.NoError(t, err)
	return registry
}

func intPtr(i int) *int {
	return &i
}

func userTable(nameLength int) *testutil.FakeTable {
	return &testutil.FakeTable{
		Columns: []database.Column{
			{Name: "id", Null: "NO", Type: "int"},
			{Name: "name", Null: "YES", Type: fmt.Sprintf("nvarchar(%d)", nameLength), Length: intPtr(nameLength)},
		},
		Indexes: []database.IndexRow{
			{Table: "User", KeyName: "PK__User__3213E83F", ColumnName: "id", SeqInIndex: 1, IsPrimaryKey: true},
		},
	}
}

func postTable(foreignKeys ...database.ForeignKey) *testutil.FakeTable {
	return &testutil.FakeTable{
		Columns: []database.Column{
			{Name: "id", Null: "NO", Type: "int"},
			{Name: "userId", Null: "YES", Type: "int"},
		},
		ForeignKeys: foreignKeys,
	}
}

var postUserFK = database.ForeignKey{Name: "fk_post_user", Owner: "dbo", Table: "Post", Column: "userId", KeySeq: 1, PKOwner: "dbo", PKTable: "User", PKColumn: "id"}

func newMigrator(db database.Database, registry *model.Registry) *Migrator {
	return NewMigrator(db, registry, database.GeneratorConfig{}, database.NullLogger{})
}

func TestCheckNeedsMigration(t *testing.T) {
	tests := []struct {
		name     string
		user     *testutil.FakeTable
		post     *testutil.FakeTable
		expected bool
	}{
		{
			name:     "up to date",
			user:     userTable(50),
			post:     postTable(postUserFK),
			expected: true,
		},
		{
			name:     "column drift",
			user:     userTable(30),
			post:     postTable(postUserFK),
			expected: false,
		},
		{
			name:     "missing foreign key",
			user:     userTable(50),
			post:     postTable(),
			expected: false,
		},
		{
			name:     "missing table",
			user:     userTable(50),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewFakeDatabase()
			db.SetTable("dbo", "User", tt.user)
			db.SetTable("dbo", "Post", tt.post)

			upToDate, err := newMigrator(db, newRegistry(t)).CheckNeedsMigration(context.Background(), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, upToDate)
			assert.Empty(t, db.Executed())
		})
	}
}

func TestCheckNeedsMigrationContinuesAfterMissingModel(t *testing.T) {
	db := testutil.NewFakeDatabase()
	db.SetTable("dbo", "User", userTable(50))

	_, err := newMigrator(db, newRegistry(t)).CheckNeedsMigration(context.Background(), []string{"Missing", "User", "Ghost"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelNotFound))
	assert.Contains(t, err.Error(), "Model not found: Missing")
	assert.Contains(t, err.Error(), "Model not found: Ghost")
	assert.Equal(t, []string{"dbo.User"}, db.Introspected())
}

func TestAutoUpdate(t *testing.T) {
	db := testutil.NewFakeDatabase()
	db.SetTable("dbo", "User", userTable(30))

	migrator := newMigrator(db, newRegistry(t))
	require.NoError(t, migrator.AutoUpdate(context.Background(), nil))

	executed := db.Executed()
	require.Len(t, executed, 2)
	assert.Equal(t, "ALTER TABLE [dbo].[User] ALTER COLUMN [name] NVARCHAR(50) NULL", executed[0])
	assert.True(t, strings.HasPrefix(executed[1], "IF NOT EXISTS"))
	assert.Contains(t, executed[1], "CREATE TABLE [dbo].[Post]")
	assert.NotContains(t, strings.Join(executed, "\n"), "FOREIGN KEY")
	assert.Equal(t, 2, migrator.Applied())
}

func TestAutoUpdateStopsAtMissingModel(t *testing.T) {
	db := testutil.NewFakeDatabase()
	db.SetTable("dbo", "User", userTable(30))

	err := newMigrator(db, newRegistry(t)).AutoUpdate(context.Background(), []string{"Missing", "User"})
	var notFound *ModelNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Missing", notFound.Name)
	assert.Empty(t, db.Introspected())
	assert.Empty(t, db.Executed())
}

func TestAutoUpdateStopsAtFailedStatement(t *testing.T) {
	db := testutil.NewFakeDatabase()
	db.SetTable("dbo", "User", userTable(30))
	db.FailOn = "ALTER COLUMN"
	db.ExecErr = errors.New("permission denied")

	err := newMigrator(db, newRegistry(t)).AutoUpdate(context.Background(), nil)
	var execErr *database.ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.DDL, "ALTER COLUMN [name]")
	assert.EqualError(t, err, `model User: failed to execute "ALTER TABLE [dbo].[User] ALTER COLUMN [name] NVARCHAR(50) NULL": permission denied`)
	assert.Empty(t, db.Executed())
	assert.Equal(t, []string{"dbo.User"}, db.Introspected())
}

func TestAutoUpdateToleratesForeignKeyDiscoveryFailure(t *testing.T) {
	db := testutil.NewFakeDatabase()
	db.SetTable("dbo", "User", userTable(50))
	db.SetTable("dbo", "Post", postTable())
	db.ForeignKeysErr = errors.New("catalog unavailable")

	require.NoError(t, newMigrator(db, newRegistry(t)).AutoUpdate(context.Background(), nil))
	assert.Empty(t, db.Executed())
}

func TestIntrospectionFailure(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*testutil.FakeDatabase)
		expected string
	}{
		{
			name:     "columns",
			setup:    func(db *testutil.FakeDatabase) { db.ColumnsErr = errors.New("boom") },
			expected: "failed to introspect columns of User: boom",
		},
		{
			name:     "indexes",
			setup:    func(db *testutil.FakeDatabase) { db.IndexesErr = errors.New("boom") },
			expected: "failed to introspect indexes of User: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewFakeDatabase()
			tt.setup(db)
			err := newMigrator(db, newRegistry(t)).AutoUpdate(context.Background(), []string{"User"})
			assert.EqualError(t, err, tt.expected)
		})
	}
}

func TestAutoMigrate(t *testing.T) {
	db := testutil.NewFakeDatabase()
	db.SetTable("dbo", "User", userTable(30))

	err := newMigrator(db, newRegistry(t)).AutoMigrate(context.Background(), []string{"Missing", "User"})
	assert.True(t, errors.Is(err, ErrModelNotFound))

	executed := db.Executed()
	require.Len(t, executed, 2)
	assert.Contains(t, executed[0], "DROP TABLE [dbo].[User]")
	assert.Contains(t, executed[1], "CREATE TABLE [dbo].[User]")
}

func TestAutoMigrateSkipsCreateAfterFailedDrop(t *testing.T) {
	db := testutil.NewFakeDatabase()
	db.FailOn = "DROP TABLE [dbo].[Post]"

	migrator := NewMigrator(db, newRegistry(t), database.GeneratorConfig{Concurrency: -1}, database.NullLogger{})
	err := migrator.AutoMigrate(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model Post")

	executed := db.Executed()
	require.Len(t, executed, 2)
	for _, ddl := range executed {
		assert.Contains(t, ddl, "[dbo].[User]")
	}
}

func TestCreateForeignKeys(t *testing.T) {
	db := testutil.NewFakeDatabase()
	db.SetTable("dbo", "User", userTable(50))
	db.SetTable("dbo", "Post", postTable())

	migrator := newMigrator(db, newRegistry(t))
	require.NoError(t, migrator.CreateForeignKeys(context.Background(), nil))
	assert.Equal(t, []string{
		"ALTER TABLE [dbo].[Post] ADD CONSTRAINT [fk_post_user] FOREIGN KEY ([userId]) REFERENCES [dbo].[User] ([id])",
	}, db.Executed())

	db.SetTable("dbo", "Post", postTable(postUserFK))
	require.NoError(t, migrator.CreateForeignKeys(context.Background(), nil))
	assert.Len(t, db.Executed(), 1)
}

func TestCreateForeignKeysSkipsMissingTable(t *testing.T) {
	db := testutil.NewFakeDatabase()
	require.NoError(t, newMigrator(db, newRegistry(t)).CreateForeignKeys(context.Background(), nil))
	assert.Empty(t, db.Executed())
}

func TestCreateForeignKeysPropagatesDiscoveryFailure(t *testing.T) {
	db := testutil.NewFakeDatabase()
	db.SetTable("dbo", "User", userTable(50))
	db.SetTable("dbo", "Post", postTable())
	db.ForeignKeysErr = errors.New("catalog unavailable")

	err := newMigrator(db, newRegistry(t)).CreateForeignKeys(context.Background(), nil)
	assert.EqualError(t, err, "failed to introspect foreign keys of User: catalog unavailable")
	assert.Empty(t, db.Executed())
}

func TestAlterTableCheckOnly(t *testing.T) {
	registry := newRegistry(t)
	user, _ := registry.Lookup("User")
	db := testutil.NewFakeDatabase()
	migrator := newMigrator(db, registry)
	table := userTable(30)
	current := schema.Current{Columns: table.Columns, Indexes: table.Indexes}

	needsChange, plan, err := migrator.AlterTable(context.Background(), user, current, true)
	require.NoError(t, err)
	assert.True(t, needsChange)
	assert.Len(t, plan.Statements, 1)
	assert.Empty(t, db.Executed())

	needsChange, _, err = migrator.AlterTable(context.Background(), user, current, false)
	require.NoError(t, err)
	assert.True(t, needsChange)
	assert.Len(t, db.Executed(), 1)
}

func TestModelSchemaOverride(t *testing.T) {
	models, err := model.Parse([]byte(`
Audit:
  mssql: {schema: audit, table: entries}
  properties:
    id: {type: number, id: true}
`))
	require.NoError(t, err)
	registry, err := model.NewRegistry(models...)
	require.NoError(t, err)

	db := testutil.NewFakeDatabase()
	migrator := NewMigrator(db, registry, database.GeneratorConfig{DefaultSchema: "app"}, database.NullLogger{})
	require.NoError(t, migrator.AutoUpdate(context.Background(), nil))
	assert.Equal(t, []string{"audit.entries"}, db.Introspected())
	require.Len(t, db.Executed(), 1)
	assert.Contains(t, db.Executed()[0], "CREATE TABLE [audit].[entries]")
}

func TestModelNotFoundError(t *testing.T) {
	err := error(&ModelNotFoundError{Name: "Nope"})
	assert.EqualError(t, err, "Model not found: Nope")
	assert.True(t, errors.Is(err, ErrModelNotFound))
}
