// Package sysconfigtest lays out configuration directories and provides an
// in-memory Provider for tests.
package sysconfigtest

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/joho/godotenv"

	"github.com/tidewire/tidewire/internal/provider"
	"github.com/tidewire/tidewire/internal/sysconfig"
)

// StaticID is the identifier Registry uses for a StaticProvider.
const StaticID = "static"

// Setup creates a configuration directory holding a bootstrap file with the
// given values, points TIDEWIRE_CONFIG_DIR at it and returns its path.
func Setup(t testing.TB, bootstrap map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	WriteProperties(t, filepath.Join(dir, sysconfig.BootstrapFile), bootstrap)
	t.Setenv(sysconfig.EnvConfigDir, dir)
	return dir
}

// WriteProperties writes values as a properties file at path.
func WriteProperties(t testing.TB, path string, values map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create %s: %v", filepath.Dir(path), err)
	}
	if values == nil {
		values = map[string]string{}
	}
	if err := godotenv.Write(values, path); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// StaticProvider serves an in-memory mapping.
type StaticProvider struct {
	mu        sync.Mutex
	values    map[string]string
	err       error
	initErr   error
	dir       string
	bootstrap map[string]string
	closed    int
	inits     int
	loads     int
	listeners sysconfig.Listeners
}

func NewStaticProvider(values map[string]string) *StaticProvider {
	return &StaticProvider{values: maps.Clone(values)}
}

func (p *StaticProvider) Initialize(_ context.Context, dir string, bootstrap map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inits++
	if p.initErr != nil {
		return p.initErr
	}
	p.dir = dir
	p.bootstrap = maps.Clone(bootstrap)
	return nil
}

func (p *StaticProvider) Configuration(context.Context) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads++
	if p.err != nil {
		return nil, p.err
	}
	return maps.Clone(p.values), nil
}

func (p *StaticProvider) RegisterListener(l sysconfig.Listener) {
	p.listeners.Add(l)
}

func (p *StaticProvider) Close() error {
	p.mu.Lock()
	p.closed++
	p.mu.Unlock()
	return nil
}

// Set replaces the mapping and notifies listeners.
func (p *StaticProvider) Set(values map[string]string) {
	p.mu.Lock()
	p.values = maps.Clone(values)
	p.err = nil
	p.mu.Unlock()
	p.listeners.Notify()
}

// Fail makes the following Configuration calls return err.
func (p *StaticProvider) Fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// FailInitialize makes Initialize return err.
func (p *StaticProvider) FailInitialize(err error) {
	p.mu.Lock()
	p.initErr = err
	p.mu.Unlock()
}

// Dir returns the directory passed to Initialize.
func (p *StaticProvider) Dir() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dir
}

// Bootstrap returns the bootstrap values passed to Initialize.
func (p *StaticProvider) Bootstrap() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return maps.Clone(p.bootstrap)
}

// Closed reports how many times Close ran.
func (p *StaticProvider) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Initialized reports how many times Initialize ran.
func (p *StaticProvider) Initialized() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inits
}

// Loads reports how many times Configuration ran.
func (p *StaticProvider) Loads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads
}

// Registry returns a registry that hands out p under StaticID.
func Registry(p *StaticProvider) *provider.Registry[sysconfig.Provider] {
	reg := provider.NewRegistry[sysconfig.Provider]("test configuration providers")
	reg.MustRegister(StaticID, func() (sysconfig.Provider, error) { return p, nil })
	return reg
}
