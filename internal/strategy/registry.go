package strategy

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh strategy instance for one run. Strategies carry
// rolling-window state across calls, so instances are never shared between
// runs: the registry hands out factories, not instances.
type Factory func(cfg Config) Strategy

// Registry manages a named collection of strategy factories that can be
// looked up at runtime. It is safe for concurrent use.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given name. If a factory with the same
// name already exists it will be replaced.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Get retrieves a factory by name. It returns an error when the name is not
// registered.
func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q: not registered", name)
	}
	return f, nil
}

// List returns the names of all registered factories in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a registry pre-populated with every built-in strategy.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register("sma", func(cfg Config) Strategy { return NewSMA(cfg) })
	r.Register("momentum", func(cfg Config) Strategy { return NewMomentum(cfg) })
	r.Register("mean_reversion", func(cfg Config) Strategy { return NewMeanReversion(cfg) })
	r.Register("macd", func(cfg Config) Strategy { return NewMACD(cfg) })
	r.Register("heuristic", func(cfg Config) Strategy { return NewHeuristic(cfg) })
	return r
}
