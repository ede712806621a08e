package repository

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tidewire/tidewire/internal/apperr"
	"github.com/tidewire/tidewire/internal/provider"
	"github.com/tidewire/tidewire/internal/sysconfig"
)

type instance struct {
	repo Repository
	rc   *Context
}

// Manager selects the repository backend named by the configuration and
// owns the initialized instance.
type Manager struct {
	resolver provider.Resolver[Repository]

	mu      sync.Mutex
	current atomic.Pointer[instance]
}

func NewManager(resolver provider.Resolver[Repository]) *Manager {
	return &Manager{resolver: resolver}
}

// Initialize builds the repository context from snap, instantiates the
// configured backend and initializes it. A second call after success logs a
// warning and leaves the running instance in place.
func (m *Manager) Initialize(ctx context.Context, snap *sysconfig.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur := m.current.Load(); cur != nil {
		slog.WarnContext(ctx, "repository already initialized", "provider", cur.rc.Provider())
		return nil
	}

	rc := NewContext(snap)
	slog.InfoContext(ctx, "repository context", "repo", rc)

	if rc.Provider() == "" {
		return apperr.New(apperr.KindRepoProviderMissing, sysconfig.RepositoryPrefix+sysconfig.RepositorySuffixProvider)
	}
	repo, err := provider.Instantiate(m.resolver, rc.Provider())
	if err != nil {
		return apperr.Wrap(apperr.KindRepoProviderLoad, rc.Provider(), err)
	}
	if rc.JDBCURL() == "" {
		return apperr.New(apperr.KindRepoConnectURLMissing, sysconfig.RepositoryPrefix+sysconfig.RepositorySuffixJDBCURL)
	}

	if err := repo.Initialize(ctx, rc); err != nil {
		if apperr.Classified(err) {
			return err
		}
		return apperr.Wrap(apperr.KindRepoInit, rc.Provider(), err)
	}

	m.current.Store(&instance{repo: repo, rc: rc})
	slog.InfoContext(ctx, "repository initialized", "provider", rc.Provider())
	return nil
}

// Instance returns the initialized repository, or nil before Initialize.
func (m *Manager) Instance() Repository {
	cur := m.current.Load()
	if cur == nil {
		return nil
	}
	return cur.repo
}

// Context returns the context the current instance was built from, or nil.
func (m *Manager) Context() *Context {
	cur := m.current.Load()
	if cur == nil {
		return nil
	}
	return cur.rc
}

// Shutdown stops the backend and forgets it, so a later Initialize starts
// from a fresh context.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current.Swap(nil)
	if cur == nil {
		return nil
	}
	if err := cur.repo.Shutdown(ctx); err != nil {
		if apperr.Classified(err) {
			return err
		}
		return apperr.Wrap(apperr.KindShutdown, cur.rc.Provider(), err)
	}
	slog.InfoContext(ctx, "repository shut down", "provider", cur.rc.Provider())
	return nil
}
