package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/tidewire/tidewire/internal/apperr"
	"github.com/tidewire/tidewire/internal/sync"
)

// SyncRunner is the interface for triggering manual registration passes.
type SyncRunner interface {
	RunOnce(context.Context) error
}

// ResyncResult reports the outcome of a manual registration pass.
type ResyncResult struct {
	Status    string   `json:"status"`
	Conflicts []string `json:"conflicts,omitempty"`
}

const (
	resyncSuccess   = "success"
	resyncConflicts = "conflicts"
	resyncBusy      = "busy"
	resyncDisabled  = "disabled"
)

// HandleResync runs one registration pass and reports its outcome.
func (h *Handlers) HandleResync(c *echo.Context) error {
	if h.Syncer == nil {
		return c.JSON(http.StatusServiceUnavailable, ResyncResult{Status: resyncDisabled})
	}
	err := h.Syncer.RunOnce(c.Request().Context())
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, ResyncResult{Status: resyncSuccess})
	case errors.Is(err, sync.ErrSyncAlreadyRunning):
		return c.JSON(http.StatusConflict, ResyncResult{Status: resyncBusy})
	case errors.Is(err, apperr.KindConnectorConflict):
		return c.JSON(http.StatusOK, ResyncResult{Status: resyncConflicts, Conflicts: conflictDetails(err)})
	default:
		return h.RenderError(c, err)
	}
}

// conflictDetails lists the identity pair of every conflict in err, which
// may be a single error or a join of them.
func conflictDetails(err error) []string {
	var out []string
	var walk func(error)
	walk = func(err error) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				walk(e)
			}
			return
		}
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Kind == apperr.KindConnectorConflict {
			out = append(out, ae.Detail)
		}
	}
	walk(err)
	return out
}
