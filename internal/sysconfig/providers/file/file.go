// Package file serves configuration from a properties file in the
// configuration directory and reloads it when the file changes on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"github.com/tidewire/tidewire/internal/sysconfig"
)

const (
	// ID is the bootstrap identifier of this provider.
	ID = "file"

	// KeyFile optionally names the properties file, relative to the
	// configuration directory.
	KeyFile = sysconfig.KeyPrefix + "config.file"

	DefaultFile = "tidewire.properties"
)

type Provider struct {
	mu        sync.Mutex
	path      string
	watcher   *fsnotify.Watcher
	done      chan struct{}
	listeners sysconfig.Listeners
}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Initialize(_ context.Context, dir string, bootstrap map[string]string) error {
	name := strings.TrimSpace(bootstrap[KeyFile])
	if name == "" {
		name = DefaultFile
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("configuration file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("configuration file %s is not a regular file", path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory: editors and ConfigMap updates replace the file.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	p.mu.Lock()
	p.path = path
	p.watcher = watcher
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.watch(watcher, path, p.done)
	slog.Info("watching configuration file", "path", path)
	return nil
}

func (p *Provider) watch(watcher *fsnotify.Watcher, path string, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				slog.Debug("configuration file changed", "path", path, "op", event.Op.String())
				p.listeners.Notify()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("configuration file watcher error", "path", path, "err", err)
		}
	}
}

// Configuration re-reads the properties file.
func (p *Provider) Configuration(context.Context) (map[string]string, error) {
	p.mu.Lock()
	path := p.path
	p.mu.Unlock()
	if path == "" {
		return nil, errors.New("file provider is not initialized")
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return values, nil
}

func (p *Provider) RegisterListener(l sysconfig.Listener) {
	p.listeners.Add(l)
}

// Close stops the watcher and waits for its goroutine to exit.
func (p *Provider) Close() error {
	p.mu.Lock()
	watcher, done := p.watcher, p.done
	p.watcher, p.done = nil, nil
	p.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	if err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}
	return nil
}
