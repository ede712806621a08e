package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tidewire/tidewire/internal/apperr"
	"github.com/tidewire/tidewire/internal/logging"
)

const (
	exitCodeFailure  = 1
	exitCodeConfig   = 78
	exitCodeCanceled = 130
)

func main() {
	code := runMain(Execute, os.Stderr)
	if code != 0 {
		os.Exit(code)
	}
}

func runMain(execute func() error, stderr io.Writer) int {
	if err := execute(); err != nil {
		return exitCodeForError(err, stderr)
	}
	return 0
}

func exitCodeForError(err error, stderr io.Writer) int {
	var ee *exitError
	if errors.As(err, &ee) {
		if !ee.silent {
			emitCommandError(resolveErrorForExitError(ee, err), "command failed", ee.code, stderr)
		}
		return ee.code
	}

	if errors.Is(err, context.Canceled) {
		emitCommandError(err, "command canceled", exitCodeCanceled, stderr)
		return exitCodeCanceled
	}

	code := exitCodeFailure
	if isConfigurationError(err) {
		code = exitCodeConfig
	}
	emitCommandError(err, "command failed", code, stderr)
	return code
}

// isConfigurationError reports failures the operator fixes by editing the
// configuration directory or the repository settings.
func isConfigurationError(err error) bool {
	kind, ok := apperr.KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case apperr.KindConfigDirectory,
		apperr.KindBootstrapMissing,
		apperr.KindBootstrapKeyMissing,
		apperr.KindRepoProviderMissing,
		apperr.KindRepoConnectURLMissing:
		return true
	default:
		return false
	}
}

func emitCommandError(err error, message string, exitCode int, stderr io.Writer) {
	ctx := currentCommandExecutionContext()
	if !ctx.UsesStructuredLog {
		if exitCode == exitCodeCanceled {
			fmt.Fprintln(stderr, "canceled")
			return
		}
		fmt.Fprintln(stderr, err)
		return
	}

	attrs := []any{"exit_code", exitCode, "error", err}
	if kind, ok := apperr.KindOf(err); ok {
		attrs = append(attrs, "kind", string(kind))
	}
	loggerForFatalPath(ctx, stderr).Error(message, attrs...)
}

func loggerForFatalPath(ctx commandExecutionContext, stderr io.Writer) *slog.Logger {
	cfg, err := logging.LoadConfigFromEnv()
	if err != nil {
		cfg = logging.DefaultConfig()
	}
	return logging.NewLogger(cfg, stderr, ctx.CommandPath)
}

func resolveErrorForExitError(ee *exitError, fallback error) error {
	if ee != nil && ee.err != nil {
		return ee.err
	}
	return fallback
}
