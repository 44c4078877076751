package schema

import "github.com/sqldef/modeldef/model"

// DependencyOrder sorts models so that every model comes after the models its
// foreign keys reference. References outside the given set are ignored. On a
// circular reference the input order is returned unchanged.
func DependencyOrder(models []*model.Model) []*model.Model {
	dependencies := map[string][]string{}
	for _, m := range models {
		for _, fk := range m.ForeignKeys {
			if fk.Entity != m.Name {
				dependencies[m.Name] = append(dependencies[m.Name], fk.Entity)
			}
		}
	}

	sorted := topologicalSort(models, dependencies, func(m *model.Model) string {
		return m.Name
	})
	if len(sorted) != len(models) {
		return models
	}
	return sorted
}

// topologicalSort performs a topological sort on items based on their dependencies using
// depth-first search (DFS). It returns the sorted items in dependency order, or an empty
// slice if a circular dependency is detected.
//
// The algorithm uses DFS with three-color marking (unvisited, visiting, visited) to detect
// cycles and ensure each node is processed only once.
func topologicalSort[T any](items []T, dependencies map[string][]string, getID func(T) string) []T {
	var sorted []T
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	itemMap := make(map[string]T)

	for _, item := range items {
		itemMap[getID(item)] = item
	}

	var visit func(string) bool
	visit = func(id string) bool {
		if visiting[id] {
			// Circular dependency detected
			return false
		}
		if visited[id] {
			return true
		}

		visiting[id] = true

		// Only dependencies inside the current set are visited
		for _, dep := range dependencies[id] {
			if _, exists := itemMap[dep]; exists {
				if !visit(dep) {
					return false
				}
			}
		}
		visiting[id] = false
		visited[id] = true

		sorted = append(sorted, itemMap[id])
		return true
	}

	for _, item := range items {
		if id := getID(item); !visited[id] {
			if !visit(id) {
				return nil
			}
		}
	}
	return sorted
}
