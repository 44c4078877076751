package model

import (
	"fmt"
	"os"
	"strings"

	"github.com/sqldef/modeldef/util"
	"gopkg.in/yaml.v2"
)

type modelDefinition struct {
	Mssql       *ModelSettings `yaml:"mssql"`
	Properties  yaml.MapSlice  `yaml:"properties"`
	Indexes     yaml.MapSlice  `yaml:"indexes"`
	ForeignKeys yaml.MapSlice  `yaml:"foreignKeys"`
}

type propertyDefinition struct {
	Type      string          `yaml:"type"`
	Length    int             `yaml:"length"`
	Limit     int             `yaml:"limit"`
	ID        bool            `yaml:"id"`
	Generated *bool           `yaml:"generated"`
	Required  bool            `yaml:"required"`
	AllowNull *bool           `yaml:"allowNull"`
	Nullable  *bool           `yaml:"nullable"`
	Mssql     *ColumnSettings `yaml:"mssql"`
	Index     interface{}     `yaml:"index"`
}

type propertyIndexDefinition struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Kind   string `yaml:"kind"`
	Unique bool   `yaml:"unique"`
}

type indexDefinition struct {
	Name    string        `yaml:"name"`
	Columns interface{}   `yaml:"columns"`
	Keys    yaml.MapSlice `yaml:"keys"`
	Type    string        `yaml:"type"`
	Kind    string        `yaml:"kind"`
	Unique  bool          `yaml:"unique"`
	Options struct {
		Unique bool `yaml:"unique"`
	} `yaml:"options"`
}

type foreignKeyDefinition struct {
	Name       string `yaml:"name"`
	ForeignKey string `yaml:"foreignKey"`
	Entity     string `yaml:"entity"`
	EntityKey  string `yaml:"entityKey"`
}

// LoadFiles reads model definition files and registers every model found in them.
func LoadFiles(paths ...string) (*Registry, error) {
	registry, _ := NewRegistry()
	for _, path := range paths {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		models, err := Parse(buf)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, m := range models {
			if err := registry.Register(m); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	return registry, nil
}

// Parse decodes a YAML document mapping model names to their definitions.
// Declaration order of models, properties, indexes, index keys and foreign
// keys is preserved.
func Parse(buf []byte) ([]*Model, error) {
	var definitions yaml.MapSlice
	if err := yaml.UnmarshalStrict(buf, &definitions); err != nil {
		return nil, err
	}

	var models []*Model
	for _, item := range definitions {
		name := fmt.Sprint(item.Key)
		var def modelDefinition
		if err := remarshal(item.Value, &def); err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		m, err := buildModel(name, def)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		models = append(models, m)
	}
	return models, nil
}

func buildModel(name string, def modelDefinition) (*Model, error) {
	m := &Model{Name: name, Mssql: def.Mssql}

	for _, item := range def.Properties {
		prop, err := buildProperty(fmt.Sprint(item.Key), item.Value)
		if err != nil {
			return nil, err
		}
		m.Properties = append(m.Properties, prop)
	}
	// A property named id is the identity even without `id: true`.
	if prop := m.Property(m.IDName()); prop != nil {
		prop.ID = true
	}

	for _, item := range def.Indexes {
		key := fmt.Sprint(item.Key)
		var idx indexDefinition
		if err := remarshal(item.Value, &idx); err != nil {
			return nil, fmt.Errorf("index %s: %w", key, err)
		}
		index, err := buildIndex(key, idx)
		if err != nil {
			return nil, err
		}
		m.Indexes = append(m.Indexes, index)
	}

	for _, item := range def.ForeignKeys {
		key := fmt.Sprint(item.Key)
		var fk foreignKeyDefinition
		if err := remarshal(item.Value, &fk); err != nil {
			return nil, fmt.Errorf("foreign key %s: %w", key, err)
		}
		if fk.ForeignKey == "" || fk.Entity == "" {
			return nil, fmt.Errorf("foreign key %s: foreignKey and entity are required", key)
		}
		m.ForeignKeys = append(m.ForeignKeys, &ForeignKey{
			Key:        key,
			Name:       fk.Name,
			ForeignKey: fk.ForeignKey,
			Entity:     fk.Entity,
			EntityKey:  fk.EntityKey,
		})
	}
	return m, nil
}

func buildProperty(name string, value interface{}) (*Property, error) {
	var def propertyDefinition
	var null *bool
	if typeName, ok := value.(string); ok {
		def.Type = typeName
	} else {
		settings, n, err := extractNullSetting(value)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", name, err)
		}
		if err := remarshal(settings, &def); err != nil {
			return nil, fmt.Errorf("property %s: %w", name, err)
		}
		null = n
	}

	propType, err := ParseType(def.Type)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	length := def.Length
	if length == 0 {
		length = def.Limit
	}
	nullable := def.Nullable
	if nullable == nil {
		nullable = null
	}

	index, err := buildPropertyIndex(def.Index)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}

	return &Property{
		Name:      name,
		Type:      propType,
		Length:    length,
		ID:        def.ID,
		Generated: def.Generated,
		Required:  def.Required,
		AllowNull: def.AllowNull,
		Nullable:  nullable,
		Mssql:     def.Mssql,
		Index:     index,
	}, nil
}

// extractNullSetting takes the `null` setting out of a property mapping.
// YAML resolves a bare null key to a nil key, which no struct field matches.
func extractNullSetting(value interface{}) (interface{}, *bool, error) {
	settings, ok := value.(yaml.MapSlice)
	if !ok {
		return value, nil, nil
	}
	var rest yaml.MapSlice
	var null *bool
	for _, item := range settings {
		if item.Key != nil && item.Key != "null" {
			rest = append(rest, item)
			continue
		}
		b, ok := item.Value.(bool)
		if !ok {
			return nil, nil, fmt.Errorf("null must be true or false, got %v", item.Value)
		}
		null = &b
	}
	return rest, null, nil
}

// buildPropertyIndex accepts either `index: true` or an index mapping.
func buildPropertyIndex(value interface{}) (*PropertyIndex, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool:
		if !v {
			return nil, nil
		}
		return &PropertyIndex{}, nil
	default:
		var def propertyIndexDefinition
		if err := remarshal(v, &def); err != nil {
			return nil, fmt.Errorf("index: %w", err)
		}
		return &PropertyIndex{
			Name:   def.Name,
			Type:   strings.ToUpper(def.Type),
			Kind:   strings.ToUpper(def.Kind),
			Unique: def.Unique,
		}, nil
	}
}

func buildIndex(key string, def indexDefinition) (*Index, error) {
	index := &Index{
		Key:    key,
		Name:   def.Name,
		Type:   strings.ToUpper(def.Type),
		Kind:   strings.ToUpper(def.Kind),
		Unique: def.Unique || def.Options.Unique,
	}

	if len(def.Keys) > 0 {
		for _, item := range def.Keys {
			index.Keys = append(index.Keys, IndexKey{
				Column:     fmt.Sprint(item.Key),
				Descending: isDescending(item.Value),
			})
		}
		return index, nil
	}

	switch columns := def.Columns.(type) {
	case string:
		index.Columns = util.SplitList(columns)
	case []interface{}:
		for _, c := range columns {
			index.Columns = append(index.Columns, strings.TrimSpace(fmt.Sprint(c)))
		}
	}
	if len(index.Columns) == 0 {
		return nil, fmt.Errorf("index %s: either columns or keys must be given", key)
	}
	return index, nil
}

func isDescending(direction interface{}) bool {
	switch d := direction.(type) {
	case int:
		return d < 0
	case string:
		return strings.EqualFold(strings.TrimSpace(d), "DESC")
	}
	return false
}

// ParseType maps a declared type name to a logical Type. An empty name is a String.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "string":
		return TypeString, nil
	case "text":
		return TypeText, nil
	case "number", "integer", "int":
		return TypeNumber, nil
	case "date":
		return TypeDate, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "decimal":
		return TypeDecimal, nil
	case "geopoint", "point":
		return TypeGeoPoint, nil
	case "buffer", "binary":
		return TypeBuffer, nil
	case "json", "object", "any":
		return TypeJSON, nil
	default:
		return "", fmt.Errorf("unknown property type %q", name)
	}
}

func remarshal(in interface{}, out interface{}) error {
	buf, err := yaml.Marshal(in)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(buf, out)
}
