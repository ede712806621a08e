package handlers

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v5"
)

const (
	defaultPerPage = 50
	maxPerPage     = 500
)

// window is one page of a list of total items. From and To are 1-based and
// zero when the page is empty.
type window struct {
	Page    int
	PerPage int
	Pages   int
	Offset  int
	End     int
	From    int
	To      int
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(c *echo.Context, name string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.QueryParam(name)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func requestWindow(c *echo.Context, total int) window {
	return newWindow(total, queryInt(c, "page", 1), min(queryInt(c, "per_page", defaultPerPage), maxPerPage))
}

// newWindow clamps page into [1, Pages]. An empty list still has one page.
func newWindow(total, page, perPage int) window {
	w := window{Page: max(page, 1), PerPage: max(perPage, 1)}
	w.Pages = max((total+w.PerPage-1)/w.PerPage, 1)
	w.Page = min(w.Page, w.Pages)
	w.Offset = (w.Page - 1) * w.PerPage
	w.End = min(w.Offset+w.PerPage, max(total, 0))
	if w.End > w.Offset {
		w.From, w.To = w.Offset+1, w.End
	}
	return w
}
