package server

import (
	"fmt"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
)

// page serves the HTML pages guarded by the gate.
type page struct {
	path string
}

var pageTitles = map[string]string{
	"dashboard": "Dashboard",
	"items":     "Items",
	"sign-in":   "Sign in",
	"sign-up":   "Sign up",
}

// Show renders the page matching the first segment of the requested path.
// Pages are read from the pages directory when present.
func (h *page) Show(c echo.Context) error {
	name := strings.SplitN(strings.TrimPrefix(c.Request().URL.Path, "/"), "/", 2)[0]
	title, ok := pageTitles[name]
	if !ok {
		return echo.ErrNotFound
	}

	if h.path != "" {
		filename := filepath.Join(h.path, name+".html")
		if info, err := os.Stat(filename); err == nil && !info.IsDir() {
			return c.File(filename)
		}
	}

	return c.HTML(http.StatusOK, fmt.Sprintf(
		"<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%[1]s</title></head><body><h1>%[1]s</h1></body></html>\n",
		html.EscapeString(title),
	))
}

// Root is never rendered, the gate always redirects it.
func (h *page) Root(c echo.Context) error {
	return c.Redirect(http.StatusTemporaryRedirect, "/sign-in")
}
