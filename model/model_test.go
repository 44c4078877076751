package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestNotNull(t *testing.T) {
	tests := []struct {
		name     string
		property Property
		expected bool
	}{
		{name: "default", property: Property{}, expected: false},
		{name: "required", property: Property{Required: true}, expected: true},
		{name: "allowNull false", property: Property{AllowNull: boolPtr(false)}, expected: true},
		{name: "allowNull true", property: Property{AllowNull: boolPtr(true)}, expected: false},
		{name: "nullable false", property: Property{Nullable: boolPtr(false)}, expected: true},
		{name: "mssql nullable N", property: Property{Mssql: &ColumnSettings{Nullable: "N"}}, expected: true},
		{name: "mssql nullable Y", property: Property{Mssql: &ColumnSettings{Nullable: "Y"}}, expected: false},
		{name: "identity", property: Property{ID: true}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.property.NotNull())
		})
	}
}

func TestDataType(t *testing.T) {
	tests := []struct {
		name     string
		property Property
		expected string
	}{
		{name: "string default length", property: Property{Type: TypeString}, expected: "NVARCHAR(255)"},
		{name: "string with length", property: Property{Type: TypeString, Length: 50}, expected: "NVARCHAR(50)"},
		{name: "json", property: Property{Type: TypeJSON}, expected: "NVARCHAR(255)"},
		{name: "text", property: Property{Type: TypeText}, expected: "TEXT"},
		{name: "number", property: Property{Type: TypeNumber}, expected: "INT"},
		{name: "date", property: Property{Type: TypeDate}, expected: "DATETIME"},
		{name: "boolean", property: Property{Type: TypeBoolean}, expected: "BIT"},
		{name: "geopoint", property: Property{Type: TypeGeoPoint}, expected: "FLOAT"},
		{name: "decimal", property: Property{Type: TypeDecimal}, expected: "DECIMAL"},
		{name: "buffer", property: Property{Type: TypeBuffer}, expected: "VARBINARY(MAX)"},
		{
			name:     "override with length",
			property: Property{Type: TypeString, Mssql: &ColumnSettings{DataType: "varchar", DataLength: "max"}},
			expected: "VARCHAR(MAX)",
		},
		{
			name:     "override falls back to property length",
			property: Property{Type: TypeString, Length: 20, Mssql: &ColumnSettings{DataType: "nchar"}},
			expected: "NCHAR(20)",
		},
		{
			name:     "override with precision and scale",
			property: Property{Type: TypeDecimal, Mssql: &ColumnSettings{DataType: "decimal", DataPrecision: 10, DataScale: 2}},
			expected: "DECIMAL(10, 2)",
		},
		{
			name:     "override without length",
			property: Property{Type: TypeNumber, Mssql: &ColumnSettings{DataType: "bigint"}},
			expected: "BIGINT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.property.DataType())
		})
	}
}

func TestColumnDefinition(t *testing.T) {
	assert.Equal(t, "NVARCHAR(50) NOT NULL", (&Property{Type: TypeString, Length: 50, Required: true}).ColumnDefinition())
	assert.Equal(t, "INT NULL", (&Property{Type: TypeNumber}).ColumnDefinition())
}

func TestIndexNames(t *testing.T) {
	composite := &Index{Key: "idx_name_email", Columns: []string{"name", "email"}}
	assert.Equal(t, "idx_users_name_email", composite.DefaultName("users"))
	assert.Equal(t, "idx_users_name_email", composite.ResolvedName("users"))
	assert.True(t, composite.MatchesName("idx_name_email", "users"))
	assert.True(t, composite.MatchesName("idx_users_name_email", "users"))
	assert.False(t, composite.MatchesName("idx_other", "users"))

	single := &Index{Key: "by_email", Keys: []IndexKey{{Column: "email"}}}
	assert.Equal(t, "idx_email", single.DefaultName("users"))

	named := &Index{Key: "k", Name: "custom", Columns: []string{"a", "b"}}
	assert.Equal(t, "custom", named.ResolvedName("users"))
	assert.True(t, named.MatchesName("idx_users_a_b", "users"))

	assert.Equal(t, "idx_email", (&PropertyIndex{}).ResolvedName("email"))
	assert.Equal(t, "ux", (&PropertyIndex{Name: "ux"}).ResolvedName("email"))
}

func TestIDName(t *testing.T) {
	explicit := &Model{Properties: []*Property{{Name: "code", ID: true}, {Name: "id"}}}
	assert.Equal(t, "code", explicit.IDName())

	implicit := &Model{Properties: []*Property{{Name: "id"}}}
	assert.Equal(t, "id", implicit.IDName())

	none := &Model{Properties: []*Property{{Name: "name"}}}
	assert.Equal(t, "", none.IDName())
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("Number")
	assert.NoError(t, err)
	assert.Equal(t, TypeNumber, typ)

	_, err = ParseType("uuid")
	assert.Error(t, err)
}
