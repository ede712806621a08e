// Package handlers contains the HTTP handlers of the tidewire API.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/tidewire/tidewire/internal/connectors"
	"github.com/tidewire/tidewire/internal/repository"
	"github.com/tidewire/tidewire/internal/sysconfig"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = "request_id"

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"

	headerRequestID = "X-Request-ID"
)

// Catalog is the set of connectors loaded by discovery.
type Catalog interface {
	Descriptors() []connectors.Descriptor
	Lookup(shortName string) (connectors.Descriptor, bool)
}

// Store reads registered connector records.
type Store interface {
	FindConnector(ctx context.Context, shortName string) (*repository.ConnectorRecord, error)
	ListConnectors(ctx context.Context) ([]repository.ConnectorRecord, error)
}

// ConfigSource exposes the current configuration snapshot.
type ConfigSource interface {
	Snapshot() *sysconfig.Snapshot
}

// Handlers groups all HTTP handlers and shared dependencies. Store may be
// nil when the repository is not available; a nil Syncer disables resync.
type Handlers struct {
	Catalog Catalog
	Store   Store
	Config  ConfigSource
	Syncer  SyncRunner
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RequestID stores the incoming X-Request-ID, or a new one, on the context
// and echoes it on the response.
func RequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Request().Header.Get(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Response().Header().Set(headerRequestID, id)
		return next(c)
	}
}

// HandleHealthz returns a simple health check response.
func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// RenderError logs err and returns a generic internal error response.
func (h *Handlers) RenderError(c *echo.Context, err error) error {
	requestID, _ := c.Get(ContextKeyRequestID).(string)
	path := ""
	if req := c.Request(); req != nil && req.URL != nil {
		path = req.URL.Path
	}
	method := ""
	if req := c.Request(); req != nil {
		method = req.Method
	}
	c.Logger().Error("http error",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", c.RealIP(),
		"error", err,
	)

	msg := "Internal server error."
	if requestID != "" {
		msg = fmt.Sprintf("%s Reference: %s.", msg, requestID)
	}
	return c.JSON(http.StatusInternalServerError, ErrorBody{Error: msg, Code: InternalErrorCode, RequestID: requestID})
}

// RenderNotFound returns a 404 response.
func RenderNotFound(c *echo.Context) error {
	return RenderStatus(c, http.StatusNotFound)
}

// RenderStatus returns a JSON error body carrying only the status text.
func RenderStatus(c *echo.Context, status int) error {
	requestID, _ := c.Get(ContextKeyRequestID).(string)
	return c.JSON(status, ErrorBody{Error: http.StatusText(status), RequestID: requestID})
}
