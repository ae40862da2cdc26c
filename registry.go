package docmap

import (
	"sync"
)

// The process-wide schema registry. Every Build registers its schema here,
// keyed by the fully qualified name; later declarations under the same name
// replace earlier ones, which keeps test reloads workable.
var registry = struct {
	mu     sync.RWMutex
	byName map[string]*Schema
}{byName: map[string]*Schema{}}

func registerSchema(s *Schema) {
	registry.mu.Lock()
	registry.byName[s.name] = s
	registry.mu.Unlock()
}

// LookupSchema resolves a schema by name. An exact match wins; otherwise a
// short name ("Payment" for "billing.Payment") resolves when unambiguous.
// The fallback is the second chance before the name is declared unresolvable.
func LookupSchema(name string) (*Schema, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if s, ok := registry.byName[name]; ok {
		return s, nil
	}

	var found *Schema
	for full, s := range registry.byName {
		if shortName(full) != name {
			continue
		}
		if found != nil {
			// Ambiguous short name, force the caller to qualify.
			return nil, &UnresolvedTypeError{Name: name}
		}
		found = s
	}
	if found == nil {
		return nil, &UnresolvedTypeError{Name: name}
	}
	return found, nil
}

// resolvable is implemented by fields that hold deferred schema references.
type resolvable interface {
	resolveRefs() error
}

// ResolveAll is the finalization pass for forward and self references: it
// walks every registered schema's fields and resolves by-name document
// references, failing if any placeholder remains unresolved. Call it after
// all schemas are declared and before instances are built from deferred
// fields.
func ResolveAll() error {
	registry.mu.RLock()
	schemas := make([]*Schema, 0, len(registry.byName))
	for _, s := range registry.byName {
		schemas = append(schemas, s)
	}
	registry.mu.RUnlock()

	for _, s := range schemas {
		fields, err := s.Fields()
		if err != nil {
			return err
		}
		for _, f := range fields {
			if r, ok := f.(resolvable); ok {
				if err := r.resolveRefs(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
