// Package sysconfig loads the system configuration through a pluggable
// Provider named by a bootstrap file and keeps an atomically swapped
// Snapshot of it.
package sysconfig

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/joho/godotenv"

	"github.com/tidewire/tidewire/internal/apperr"
	"github.com/tidewire/tidewire/internal/metrics"
	"github.com/tidewire/tidewire/internal/provider"
)

// LogApplier reconfigures the process logger from the logging sub-mapping.
type LogApplier interface {
	Apply(props map[string]string) error
}

type Option func(*Loader)

// WithLogApplier routes the logging keys of every refresh to a.
func WithLogApplier(a LogApplier) Option {
	return func(l *Loader) { l.logs = a }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLookupEnv replaces os.LookupEnv for reading the configuration directory.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(l *Loader) {
		if fn != nil {
			l.lookupEnv = fn
		}
	}
}

type boundProvider struct {
	id string
	p  Provider
}

// Loader owns the configuration provider and the current Snapshot.
type Loader struct {
	resolver  provider.Resolver[Provider]
	logs      LogApplier
	logger    *slog.Logger
	lookupEnv func(string) (string, bool)

	mu          sync.Mutex
	initialized bool
	dir         string

	refreshMu sync.Mutex
	bound     atomic.Pointer[boundProvider]
	snapshot  atomic.Pointer[Snapshot]
}

// NewLoader returns a Loader that resolves the bootstrap provider
// identifier through resolver.
func NewLoader(resolver provider.Resolver[Provider], opts ...Option) *Loader {
	l := &Loader{
		resolver:  resolver,
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.snapshot.Store(NewSnapshot(nil))
	return l
}

// log returns the configured logger, or the current slog default so that
// a logging refresh reaches the loader too.
func (l *Loader) log() *slog.Logger {
	if l.logger != nil {
		return l.logger
	}
	return slog.Default()
}

// Initialize reads the bootstrap file, starts the configured provider and
// loads the first snapshot. Calling it again after success is a no-op.
func (l *Loader) Initialize(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		l.log().Warn("configuration system already initialized", "dir", l.dir)
		return nil
	}

	raw, _ := l.lookupEnv(EnvConfigDir)
	dir := strings.TrimSpace(raw)
	if dir == "" {
		return apperr.New(apperr.KindConfigDirectory, EnvConfigDir+" is not set")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return apperr.Wrap(apperr.KindConfigDirectory, dir, err)
	}
	if !info.IsDir() {
		return apperr.New(apperr.KindConfigDirectory, dir+" is not a directory")
	}

	bootstrap, err := readBootstrap(filepath.Join(dir, BootstrapFile))
	if err != nil {
		return err
	}

	id := strings.TrimSpace(bootstrap[KeyConfigProvider])
	if id == "" {
		return apperr.New(apperr.KindBootstrapKeyMissing, KeyConfigProvider)
	}

	p, err := provider.Instantiate(l.resolver, id)
	if err != nil {
		return apperr.Wrap(apperr.KindProviderLoad, id, err)
	}
	if err := p.Initialize(ctx, dir, bootstrap); err != nil {
		_ = p.Close()
		return apperr.Wrap(apperr.KindProviderLoad, id, err)
	}

	l.bound.Store(&boundProvider{id: id, p: p})
	if err := l.Refresh(ctx); err != nil {
		l.bound.Store(nil)
		_ = p.Close()
		return err
	}

	p.RegisterListener(ListenerFunc(func() {
		if err := l.Refresh(context.Background()); err != nil {
			l.log().Error("configuration refresh after change failed", "provider", id, "err", err)
		}
	}))

	l.dir = dir
	l.initialized = true
	l.log().Info("configuration system initialized", "dir", dir, "provider", id, "keys", l.Snapshot().Len())
	return nil
}

func readBootstrap(path string) (map[string]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBootstrapMissing, path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, apperr.Wrap(apperr.KindBootstrapMissing, path, fs.ErrInvalid)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBootstrapMissing, path, err)
	}
	return values, nil
}

// Refresh replaces the snapshot with the provider's current mapping and
// reapplies the logging keys. On failure the previous snapshot stays active.
func (l *Loader) Refresh(ctx context.Context) error {
	b := l.bound.Load()
	if b == nil {
		return apperr.New(apperr.KindNotInitialized, "refresh")
	}

	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	values, err := b.p.Configuration(ctx)
	if err != nil {
		metrics.ConfigRefreshesTotal.WithLabelValues(metrics.StatusFailure).Inc()
		return apperr.Wrap(apperr.KindConfigRefresh, b.id, err)
	}

	snap := NewSnapshot(values)
	l.snapshot.Store(snap)
	metrics.ConfigRefreshesTotal.WithLabelValues(metrics.StatusSuccess).Inc()

	if l.logs != nil {
		if sub := snap.Sub(LogPrefix); len(sub) > 0 {
			if err := l.logs.Apply(sub); err != nil {
				l.log().Warn("ignoring invalid logging configuration", "err", err)
			}
		}
	}
	l.log().Debug("configuration refreshed", "provider", b.id, "keys", snap.Len())
	return nil
}

// RegisterListener subscribes listener to the provider's change notifications.
func (l *Loader) RegisterListener(listener Listener) error {
	b := l.bound.Load()
	if b == nil {
		return apperr.New(apperr.KindNotInitialized, "register listener")
	}
	b.p.RegisterListener(listener)
	return nil
}

// Snapshot returns the current configuration. It never returns nil.
func (l *Loader) Snapshot() *Snapshot {
	return l.snapshot.Load()
}

// Dir returns the configuration directory, or "" before Initialize.
func (l *Loader) Dir() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dir
}

// Close stops the provider. It is safe to call more than once.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.bound.Swap(nil)
	l.initialized = false
	if b == nil {
		return nil
	}
	return b.p.Close()
}
