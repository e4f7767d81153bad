package algorithm

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds an algorithm from raw JSON settings merged over its defaults.
type Constructor func(settings []byte) (Algorithm, error)

// Registry maps algorithm names to constructors. It is created once at startup
// and handed to the components that select an algorithm.
type Registry struct {
	ctors map[string]Constructor
	mu    sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// DefaultRegistry returns a registry holding the built-in algorithms.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(LeitnerName, newLeitnerFromRaw)
	r.Register(SM2Name, newSM2FromRaw)
	r.Register(AnkiName, newAnkiFromRaw)
	return r
}

// Register adds or replaces the constructor for name.
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[name] = ctor
}

// New instantiates the named algorithm with the given settings.
func (r *Registry) New(name string, settings []byte) (Algorithm, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	algo, err := ctor(settings)
	if err != nil {
		return nil, fmt.Errorf("configure %s: %w", name, err)
	}
	return algo, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
