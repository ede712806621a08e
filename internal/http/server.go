package httpapp

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/tidewire/tidewire/internal/http/handlers"
)

const readHeaderTimeout = 5 * time.Second

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h *handlers.Handlers
	e *echo.Echo

	mu     sync.Mutex
	srv    *http.Server
	closed bool
}

// NewEchoServer creates a new HTTP server.
func NewEchoServer(h *handlers.Handlers) *EchoServer {
	es := &EchoServer{h: h, e: echo.New()}
	es.e.HTTPErrorHandler = es.httpErrorHandler
	es.registerRoutes()
	return es
}

func (es *EchoServer) registerRoutes() {
	es.e.Use(handlers.RequestID)
	es.e.Use(middleware.Recover())

	es.e.GET("/healthz", es.h.HandleHealthz)

	api := es.e.Group("/api/v1")
	api.GET("/connectors", es.h.HandleConnectors)
	api.POST("/connectors/sync", es.h.HandleResync)
	api.GET("/connectors/:shortName", es.h.HandleConnectorShow)
	api.POST("/connectors/:shortName/check", es.h.HandleConnectorCheck)
	api.GET("/config", es.h.HandleConfig)
}

// Handler returns the root handler.
func (es *EchoServer) Handler() http.Handler {
	return es.e
}

// Start serves on addr until Shutdown. It returns nil after a clean shutdown.
func (es *EchoServer) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           es.e,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	es.mu.Lock()
	if es.closed {
		es.mu.Unlock()
		return nil
	}
	es.srv = srv
	es.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server. A later Start returns
// immediately.
func (es *EchoServer) Shutdown(ctx context.Context) error {
	es.mu.Lock()
	es.closed = true
	srv := es.srv
	es.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type statusCoder interface {
	StatusCode() int
}

func httpStatusFromError(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code != 0 {
			return code
		}
	}
	return http.StatusInternalServerError
}

// httpErrorHandler never returns error details to clients.
func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	status := httpStatusFromError(err)
	if status >= http.StatusInternalServerError {
		_ = es.h.RenderError(c, err)
		return
	}
	_ = handlers.RenderStatus(c, status)
}
