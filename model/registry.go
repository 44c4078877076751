package model

import "fmt"

// Registry holds the known models in registration order.
type Registry struct {
	models []*Model
	byName map[string]*Model
}

func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{byName: map[string]*Model{}}
	for _, m := range models {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(m *Model) error {
	if _, ok := r.byName[m.Name]; ok {
		return fmt.Errorf("model %s is defined more than once", m.Name)
	}
	r.models = append(r.models, m)
	r.byName[m.Name] = m
	return nil
}

func (r *Registry) Lookup(name string) (*Model, bool) {
	m, ok := r.byName[name]
	return m, ok
}

func (r *Registry) Models() []*Model {
	return r.models
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.models))
	for i, m := range r.models {
		names[i] = m.Name
	}
	return names
}
