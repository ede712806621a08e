package connectors

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tidewire/tidewire/internal/apperr"
	"github.com/tidewire/tidewire/internal/metrics"
	"github.com/tidewire/tidewire/internal/provider"
)

// Manager runs connector discovery once and serves the loaded descriptors.
type Manager struct {
	resolver provider.Resolver[Connector]
	scopes   []Scope

	mu   sync.Mutex
	done bool
	err  error

	loaded atomic.Pointer[[]Descriptor]
}

// NewManager returns a Manager that searches scopes in order and resolves
// connector identifiers through resolver.
func NewManager(resolver provider.Resolver[Connector], scopes ...Scope) *Manager {
	return &Manager{resolver: resolver, scopes: scopes}
}

// Initialize discovers and loads every connector. Only the first call does
// any work; later calls return its result.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done {
		return m.err
	}
	m.err = m.discover(ctx)
	m.done = true
	return m.err
}

func (m *Manager) discover(ctx context.Context) error {
	locators, err := m.locate(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindConnectorInit, "", err)
	}
	if len(locators) == 0 {
		return apperr.New(apperr.KindNoConnectorsFound, DescriptorFile)
	}

	loaded := make([]Descriptor, 0, len(locators))
	for _, loc := range locators {
		d, err := LoadDescriptor(m.resolver, loc)
		if err != nil {
			return apperr.Wrap(apperr.KindConnectorInit, loc.URL, err)
		}
		loaded = append(loaded, d)
	}

	m.loaded.Store(&loaded)
	metrics.ConnectorsDiscovered.Set(float64(len(loaded)))
	slog.Info("connectors loaded", "count", len(loaded))
	return nil
}

// locate merges the scopes: the first scope's order is kept and later scopes
// only contribute locators not seen before.
func (m *Manager) locate(ctx context.Context) ([]Locator, error) {
	seen := make(map[string]struct{})
	var merged []Locator
	for _, scope := range m.scopes {
		if scope == nil {
			continue
		}
		found, err := scope.Locate(ctx)
		if err != nil {
			return nil, err
		}
		for _, loc := range found {
			if _, ok := seen[loc.URL]; ok {
				continue
			}
			seen[loc.URL] = struct{}{}
			merged = append(merged, loc)
		}
		slog.Debug("connector scope searched", "scope", scope.Name(), "found", len(found))
	}
	return merged, nil
}

// Descriptors returns the loaded connectors in discovery order.
func (m *Manager) Descriptors() []Descriptor {
	p := m.loaded.Load()
	if p == nil {
		return nil
	}
	out := make([]Descriptor, len(*p))
	copy(out, *p)
	return out
}

// Lookup returns the first loaded descriptor with the given short name.
func (m *Manager) Lookup(shortName string) (Descriptor, bool) {
	p := m.loaded.Load()
	if p == nil {
		return Descriptor{}, false
	}
	for _, d := range *p {
		if d.ShortName == shortName {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Destroy is the shutdown hook. It holds no resources yet.
func (m *Manager) Destroy() {
	slog.Debug("connector manager destroyed")
}
