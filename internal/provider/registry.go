// Package provider maps configured implementation identifiers to factories.
//
// Identifiers are resolved through an ordered Chain of resolvers: the first
// resolver that knows an identifier wins. A process typically chains the
// registry of built-in implementations with a registry filled by the
// embedding program at startup.
package provider

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknown is returned when no resolver in a chain knows an identifier.
var ErrUnknown = errors.New("unknown provider identifier")

// Factory constructs a new implementation instance.
type Factory[T any] func() (T, error)

// Resolver looks up the factory registered for an identifier.
type Resolver[T any] interface {
	Resolve(id string) (Factory[T], bool)
}

// Registry holds factories keyed by identifier.
type Registry[T any] struct {
	name      string
	mu        sync.RWMutex
	factories map[string]Factory[T]
	order     []string
}

// NewRegistry creates an empty registry. The name is used in error messages.
func NewRegistry[T any](name string) *Registry[T] {
	return &Registry[T]{
		name:      name,
		factories: make(map[string]Factory[T]),
		order:     make([]string, 0),
	}
}

// Register adds a factory. Empty identifiers, nil factories and duplicate
// identifiers are rejected.
func (r *Registry[T]) Register(id string, f Factory[T]) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%s: provider identifier cannot be empty", r.name)
	}
	if f == nil {
		return fmt.Errorf("%s: provider %q has a nil factory", r.name, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("%s: provider %q already registered", r.name, id)
	}
	r.factories[id] = f
	r.order = append(r.order, id)
	return nil
}

// MustRegister is Register for package-level wiring; it panics on error.
func (r *Registry[T]) MustRegister(id string, f Factory[T]) {
	if err := r.Register(id, f); err != nil {
		panic(err)
	}
}

// Resolve implements Resolver.
func (r *Registry[T]) Resolve(id string) (Factory[T], bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[strings.TrimSpace(id)]
	return f, ok
}

// IDs returns the registered identifiers in registration order.
func (r *Registry[T]) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Chain tries each resolver in order and stops at the first match.
type Chain[T any] []Resolver[T]

// Resolve implements Resolver.
func (c Chain[T]) Resolve(id string) (Factory[T], bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if f, ok := r.Resolve(id); ok {
			return f, true
		}
	}
	return nil, false
}

// Instantiate resolves id and runs its factory. A panicking factory is
// reported as an error rather than crashing the caller.
func Instantiate[T any](r Resolver[T], id string) (out T, err error) {
	id = strings.TrimSpace(id)
	if r == nil {
		return out, fmt.Errorf("%w: %q", ErrUnknown, id)
	}
	f, ok := r.Resolve(id)
	if !ok {
		return out, fmt.Errorf("%w: %q", ErrUnknown, id)
	}

	defer func() {
		if rec := recover(); rec != nil {
			var zero T
			out = zero
			err = fmt.Errorf("provider %q factory panicked: %v", id, rec)
		}
	}()

	out, err = f()
	if err != nil {
		return out, fmt.Errorf("provider %q: %w", id, err)
	}
	return out, nil
}
