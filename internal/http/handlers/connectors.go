package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/tidewire/tidewire/internal/connectors"
	"github.com/tidewire/tidewire/internal/repository"
)

const connectorCheckTimeout = 15 * time.Second

// ConnectorView is a discovered connector joined with its repository record.
type ConnectorView struct {
	ShortName     string     `json:"short_name"`
	CanonicalName string     `json:"canonical_name"`
	Source        string     `json:"source"`
	Directions    []string   `json:"directions"`
	LinkKeys      []string   `json:"link_keys"`
	Registered    bool       `json:"registered"`
	ID            int64      `json:"id,omitempty"`
	RegisteredAt  *time.Time `json:"registered_at,omitempty"`
}

// ConnectorPage is one page of the connector listing.
type ConnectorPage struct {
	Items       []ConnectorView `json:"items"`
	Page        int             `json:"page"`
	PerPage     int             `json:"per_page"`
	TotalPages  int             `json:"total_pages"`
	Total       int             `json:"total"`
	ShowingFrom int             `json:"showing_from"`
	ShowingTo   int             `json:"showing_to"`
}

// CheckResult reports the outcome of a connector link check.
type CheckResult struct {
	ShortName string `json:"short_name"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

func newConnectorView(d connectors.Descriptor, rec *repository.ConnectorRecord) ConnectorView {
	v := ConnectorView{
		ShortName:     d.ShortName,
		CanonicalName: d.CanonicalName,
		Source:        d.SourceLocator,
		Directions:    []string{},
		LinkKeys:      []string{},
	}
	if d.Instance != nil {
		caps := d.Instance.Capabilities()
		for _, dir := range caps.Directions {
			v.Directions = append(v.Directions, string(dir))
		}
		v.LinkKeys = append(v.LinkKeys, caps.LinkKeys...)
	}
	if rec != nil && rec.CanonicalName == d.CanonicalName {
		v.Registered = true
		v.ID = rec.ID
		created := rec.CreatedAt
		v.RegisteredAt = &created
	}
	return v
}

// HandleConnectors lists discovered connectors a page at a time.
func (h *Handlers) HandleConnectors(c *echo.Context) error {
	records := map[string]repository.ConnectorRecord{}
	if h.Store != nil {
		recs, err := h.Store.ListConnectors(c.Request().Context())
		if err != nil {
			return h.RenderError(c, err)
		}
		for _, rec := range recs {
			records[rec.ShortName] = rec
		}
	}

	descriptors := h.Catalog.Descriptors()
	w := requestWindow(c, len(descriptors))

	items := make([]ConnectorView, 0, w.End-w.Offset)
	for _, d := range descriptors[w.Offset:w.End] {
		var rec *repository.ConnectorRecord
		if r, ok := records[d.ShortName]; ok {
			rec = &r
		}
		items = append(items, newConnectorView(d, rec))
	}
	return c.JSON(http.StatusOK, ConnectorPage{
		Items:       items,
		Page:        w.Page,
		PerPage:     w.PerPage,
		TotalPages:  w.Pages,
		Total:       len(descriptors),
		ShowingFrom: w.From,
		ShowingTo:   w.To,
	})
}

// HandleConnectorShow returns one connector by short name.
func (h *Handlers) HandleConnectorShow(c *echo.Context) error {
	d, ok := h.Catalog.Lookup(strings.TrimSpace(c.Param("shortName")))
	if !ok {
		return RenderNotFound(c)
	}

	var rec *repository.ConnectorRecord
	if h.Store != nil {
		var err error
		rec, err = h.Store.FindConnector(c.Request().Context(), d.ShortName)
		if err != nil {
			return h.RenderError(c, err)
		}
	}
	return c.JSON(http.StatusOK, newConnectorView(d, rec))
}

// HandleConnectorCheck runs the connector's link check against the JSON
// object in the request body.
func (h *Handlers) HandleConnectorCheck(c *echo.Context) error {
	d, ok := h.Catalog.Lookup(strings.TrimSpace(c.Param("shortName")))
	if !ok {
		return RenderNotFound(c)
	}

	link := map[string]string{}
	if err := json.NewDecoder(c.Request().Body).Decode(&link); err != nil && !errors.Is(err, io.EOF) {
		return RenderStatus(c, http.StatusBadRequest)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), connectorCheckTimeout)
	defer cancel()

	res := CheckResult{ShortName: d.ShortName, OK: true}
	if err := d.Instance.Check(ctx, link); err != nil {
		c.Logger().Warn("connector check failed", "short_name", d.ShortName, "error", err)
		res.OK = false
		res.Error = err.Error()
		return c.JSON(http.StatusUnprocessableEntity, res)
	}
	return c.JSON(http.StatusOK, res)
}
