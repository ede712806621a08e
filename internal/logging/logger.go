package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	// EnvFormat controls the output handler format for structured logs.
	EnvFormat = "LOG_FORMAT"
	// EnvLevel controls the minimum severity level for structured logs.
	EnvLevel = "LOG_LEVEL"

	defaultFormat = "json"
	defaultLevel  = "info"

	appName = "tidewire"
)

// Config is the validated logging configuration derived from environment variables.
type Config struct {
	Format string
	Level  slog.Level
}

// BootstrapOptions controls logger initialization behavior.
type BootstrapOptions struct {
	Command string
	Writer  io.Writer
}

// DefaultConfig returns the default structured logging configuration.
func DefaultConfig() Config {
	return Config{
		Format: defaultFormat,
		Level:  slog.LevelInfo,
	}
}

// LoadConfigFromEnv parses and validates logging environment variables.
func LoadConfigFromEnv() (Config, error) {
	format, err := parseFormat(os.Getenv(EnvFormat))
	if err != nil {
		return Config{}, fmt.Errorf("%s must be one of: json, text", EnvFormat)
	}
	level, err := parseLevel(os.Getenv(EnvLevel))
	if err != nil {
		return Config{}, fmt.Errorf("%s must be one of: debug, info, warn, error", EnvLevel)
	}
	return Config{
		Format: format,
		Level:  level,
	}, nil
}

// NewLogger creates a structured logger with static tidewire context attributes.
func NewLogger(cfg Config, writer io.Writer, command string) *slog.Logger {
	level := new(slog.LevelVar)
	level.Set(cfg.Level)
	return newLogger(cfg.Format, level, writer, command)
}

func newLogger(format string, level slog.Leveler, writer io.Writer, command string) *slog.Logger {
	if writer == nil {
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	command = strings.TrimSpace(command)
	if command == "" {
		command = appName
	}
	return slog.New(handler).With("app", appName, "command", command)
}

// Runtime owns the process logger and lets configuration refreshes change
// its level and format without a restart.
type Runtime struct {
	mu      sync.Mutex
	level   *slog.LevelVar
	format  string
	writer  io.Writer
	command string
	logger  *slog.Logger
}

// NewRuntime builds a Runtime from cfg. It does not touch the slog default.
func NewRuntime(cfg Config, writer io.Writer, command string) *Runtime {
	level := new(slog.LevelVar)
	level.Set(cfg.Level)
	format, err := parseFormat(cfg.Format)
	if err != nil {
		format = defaultFormat
	}
	r := &Runtime{
		level:   level,
		format:  format,
		writer:  writer,
		command: command,
	}
	r.logger = newLogger(format, level, writer, command)
	return r
}

// Logger returns the current logger.
func (r *Runtime) Logger() *slog.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logger
}

// Level returns the current minimum level.
func (r *Runtime) Level() slog.Level {
	return r.level.Level()
}

// Apply reconfigures the runtime from a logging sub-mapping whose keys have
// already had the logging prefix stripped. Recognized keys are "level" and
// "format"; unknown keys are ignored. Missing keys leave the current value.
// An invalid value changes nothing.
func (r *Runtime) Apply(props map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	level := r.level.Level()
	if raw, ok := props["level"]; ok {
		parsed, err := parseLevel(raw)
		if err != nil {
			return err
		}
		level = parsed
	}
	format := r.format
	if raw, ok := props["format"]; ok {
		parsed, err := parseFormat(raw)
		if err != nil {
			return err
		}
		format = parsed
	}

	r.level.Set(level)
	if format != r.format {
		r.format = format
		r.logger = newLogger(format, r.level, r.writer, r.command)
		slog.SetDefault(r.logger)
	}
	return nil
}

// BootstrapFromEnv loads logging config from env, installs the default logger, and returns it.
func BootstrapFromEnv(opts BootstrapOptions) (*Runtime, error) {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	rt := NewRuntime(cfg, opts.Writer, opts.Command)
	slog.SetDefault(rt.Logger())
	return rt, nil
}

func parseFormat(raw string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(raw))
	if format == "" {
		return defaultFormat, nil
	}
	switch format {
	case "json", "text":
		return format, nil
	default:
		return "", fmt.Errorf("log format %q must be one of: json, text", raw)
	}
}

func parseLevel(raw string) (slog.Level, error) {
	level := strings.ToLower(strings.TrimSpace(raw))
	if level == "" {
		level = defaultLevel
	}
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log level %q must be one of: debug, info, warn, error", raw)
	}
}
