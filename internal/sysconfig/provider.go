package sysconfig

import (
	"context"
	"slices"
	"sync"
)

// Provider supplies the full configuration mapping. Implementations are
// selected by the bootstrap file and resolved through a provider.Chain.
type Provider interface {
	// Initialize prepares the provider. dir is the configuration directory and
	// bootstrap holds every key of the bootstrap file.
	Initialize(ctx context.Context, dir string, bootstrap map[string]string) error
	// Configuration returns the current mapping. Callers own the returned map.
	Configuration(ctx context.Context) (map[string]string, error)
	// RegisterListener subscribes l to change notifications.
	RegisterListener(l Listener)
	// Close stops change detection and releases resources.
	Close() error
}

// Listener is notified when the provider observes a configuration change.
type Listener interface {
	ConfigurationChanged()
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func()

func (f ListenerFunc) ConfigurationChanged() { f() }

// Listeners is a goroutine-safe listener set for Provider implementations.
type Listeners struct {
	mu   sync.Mutex
	list []Listener
}

func (ls *Listeners) Add(l Listener) {
	if l == nil {
		return
	}
	ls.mu.Lock()
	ls.list = append(ls.list, l)
	ls.mu.Unlock()
}

// Notify calls every listener in registration order.
func (ls *Listeners) Notify() {
	ls.mu.Lock()
	list := slices.Clone(ls.list)
	ls.mu.Unlock()
	for _, l := range list {
		l.ConfigurationChanged()
	}
}
