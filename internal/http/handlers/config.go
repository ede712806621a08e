package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"
)

// HandleConfig returns the current configuration with secret values masked.
func (h *Handlers) HandleConfig(c *echo.Context) error {
	if h.Config == nil {
		return RenderStatus(c, http.StatusServiceUnavailable)
	}
	return c.JSON(http.StatusOK, h.Config.Snapshot().Masked())
}
