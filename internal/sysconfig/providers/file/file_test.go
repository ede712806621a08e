package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tidewire/tidewire/internal/sysconfig"
	"github.com/tidewire/tidewire/internal/sysconfig/sysconfigtest"
)

func TestProviderReadsDefaultFile(t *testing.T) {
	dir := t.TempDir()
	sysconfigtest.WriteProperties(t, filepath.Join(dir, DefaultFile), map[string]string{
		"tidewire.repository.provider": "postgres",
	})

	p := New()
	if err := p.Initialize(context.Background(), dir, nil); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	values, err := p.Configuration(context.Background())
	if err != nil {
		t.Fatalf("Configuration() error = %v", err)
	}
	if values["tidewire.repository.provider"] != "postgres" {
		t.Fatalf("values = %v", values)
	}
}

func TestProviderHonorsFileKey(t *testing.T) {
	dir := t.TempDir()
	sysconfigtest.WriteProperties(t, filepath.Join(dir, "custom.properties"), map[string]string{"tidewire.a": "1"})

	p := New()
	if err := p.Initialize(context.Background(), dir, map[string]string{KeyFile: "custom.properties"}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	values, err := p.Configuration(context.Background())
	if err != nil {
		t.Fatalf("Configuration() error = %v", err)
	}
	if values["tidewire.a"] != "1" {
		t.Fatalf("values = %v", values)
	}
}

func TestProviderMissingFile(t *testing.T) {
	p := New()
	if err := p.Initialize(context.Background(), t.TempDir(), nil); err == nil {
		t.Fatal("expected error when the configuration file is missing")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestProviderConfigurationBeforeInitialize(t *testing.T) {
	if _, err := New().Configuration(context.Background()); err == nil {
		t.Fatal("expected error before Initialize")
	}
}

func TestProviderNotifiesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	sysconfigtest.WriteProperties(t, path, map[string]string{"tidewire.a": "1"})

	p := New()
	if err := p.Initialize(context.Background(), dir, nil); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	changed := make(chan struct{}, 8)
	p.RegisterListener(sysconfig.ListenerFunc(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))

	// Unrelated files in the directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write other file: %v", err)
	}
	sysconfigtest.WriteProperties(t, path, map[string]string{"tidewire.a": "2"})

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	values, err := p.Configuration(context.Background())
	if err != nil {
		t.Fatalf("Configuration() error = %v", err)
	}
	if values["tidewire.a"] != "2" {
		t.Fatalf("values after change = %v", values)
	}
}

func TestProviderCloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	sysconfigtest.WriteProperties(t, filepath.Join(dir, DefaultFile), nil)

	p := New()
	if err := p.Initialize(context.Background(), dir, nil); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
