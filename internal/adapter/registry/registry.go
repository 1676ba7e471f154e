// Package registry holds the ordered adapter list plus its one explicit
// fallback, and selects which adapter handles a given path.
package registry

import (
	"fmt"

	"github.com/taggedzi/repo-mcp-go/internal/adapter"
)

// Registry is an ordered adapter list with an explicit fallback.
type Registry struct {
	adapters []adapter.LanguageAdapter
	fallback adapter.LanguageAdapter
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Register adds an adapter in insertion order, or sets the fallback when
// fallback is true.
func (r *Registry) Register(a adapter.LanguageAdapter, fallback bool) {
	if fallback {
		r.fallback = a
		return
	}
	r.adapters = append(r.adapters, a)
}

// Select returns the first adapter whose SupportsPath accepts path, else
// the registered fallback.
func (r *Registry) Select(path string) (adapter.LanguageAdapter, error) {
	for _, a := range r.adapters {
		if a.SupportsPath(path) {
			return a, nil
		}
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("no adapter supports path: %s", path)
}

// Names returns registered adapter names in deterministic registration
// order, with the fallback last.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters)+1)
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	if r.fallback != nil {
		names = append(names, r.fallback.Name())
	}
	return names
}

// All returns every non-fallback adapter, in registration order.
func (r *Registry) All() []adapter.LanguageAdapter {
	return append([]adapter.LanguageAdapter(nil), r.adapters...)
}
