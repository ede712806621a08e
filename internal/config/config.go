package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tidewire/tidewire/internal/sysconfig"
)

const (
	// EnvConfigDir names the system configuration directory read by the
	// configuration loader.
	EnvConfigDir = sysconfig.EnvConfigDir
	// EnvConnectorPath lists extra directories searched for connector descriptors.
	EnvConnectorPath = "TIDEWIRE_CONNECTOR_PATH"

	defaultHTTPAddr        = ":8080"
	defaultMetricsAddr     = ":9090"
	defaultShutdownTimeout = 10 * time.Second
)

// Config is the process configuration. A zero SyncInterval means connector
// registration runs at startup and on manual resync only.
type Config struct {
	ConfigDir       string
	ConnectorPath   []string
	HTTPAddr        string
	MetricsAddr     string
	ShutdownTimeout time.Duration
	SyncInterval    time.Duration
	ResyncEnabled   bool
}

type LoadOptions struct {
	RequireConfigDir bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireConfigDir: true})
}

func LoadOptionalConfigDir() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireConfigDir: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		ConfigDir:       strings.TrimSpace(os.Getenv(EnvConfigDir)),
		ConnectorPath:   splitPathList(os.Getenv(EnvConnectorPath)),
		HTTPAddr:        getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:     getenvDefault("METRICS_ADDR", defaultMetricsAddr),
		ShutdownTimeout: defaultShutdownTimeout,
		ResyncEnabled:   getenvBoolDefault("RESYNC_ENABLED", true),
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ShutdownTimeout = d
		}
	}

	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.SyncInterval = d
		}
	}

	if opts.RequireConfigDir && cfg.ConfigDir == "" {
		return cfg, errors.New(EnvConfigDir + " is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch v {
	case "1":
		return true
	case "0":
		return false
	default:
		return def
	}
}

func splitPathList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range filepath.SplitList(raw) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
