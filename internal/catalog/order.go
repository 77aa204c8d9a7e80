package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError reports that the dependency graph declared by the registry
// is not a DAG. This is a registry defect, never fixable by editing
// fixtures.
type CycleError struct {
	Types []EntityType
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Types))
	for i, t := range e.Types {
		names[i] = string(t)
	}
	sort.Strings(names)
	return fmt.Sprintf("dependency cycle among entity types: %s", strings.Join(names, ", "))
}

// Order computes a load order over the requested entity types so that
// every type appears after the types it depends on. Dependencies on
// types outside the requested set are ignored: those records must
// already exist in storage. Ties are broken by registry declaration
// order, keeping the result deterministic across calls.
func Order(reg *Registry, types []EntityType) ([]EntityType, error) {
	requested := make(map[EntityType]struct{}, len(types))
	for _, t := range types {
		requested[t] = struct{}{}
	}

	remaining := make(map[EntityType][]EntityType, len(requested))
	for _, schema := range reg.Schemas() {
		if _, ok := requested[schema.Type]; !ok {
			continue
		}
		var deps []EntityType
		for _, dep := range schema.DependsOn() {
			if _, ok := requested[dep]; ok {
				deps = append(deps, dep)
			}
		}
		remaining[schema.Type] = deps
	}

	ordered := make([]EntityType, 0, len(remaining))
	placed := make(map[EntityType]struct{}, len(remaining))

	for len(placed) < len(remaining) {
		progressed := false
		for _, schema := range reg.Schemas() {
			t := schema.Type
			if _, ok := remaining[t]; !ok {
				continue
			}
			if _, done := placed[t]; done {
				continue
			}
			satisfied := true
			for _, dep := range remaining[t] {
				if _, done := placed[dep]; !done {
					satisfied = false
					break
				}
			}
			if satisfied {
				ordered = append(ordered, t)
				placed[t] = struct{}{}
				progressed = true
			}
		}
		if !progressed {
			var stuck []EntityType
			for t := range remaining {
				if _, done := placed[t]; !done {
					stuck = append(stuck, t)
				}
			}
			return nil, &CycleError{Types: stuck}
		}
	}

	return ordered, nil
}

// OrderAll orders every entity type in the registry.
func OrderAll(reg *Registry) ([]EntityType, error) {
	schemas := reg.Schemas()
	types := make([]EntityType, len(schemas))
	for i := range schemas {
		types[i] = schemas[i].Type
	}
	return Order(reg, types)
}
