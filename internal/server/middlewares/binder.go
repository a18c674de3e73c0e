package middlewares

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type binder struct {
	echo.DefaultBinder
	methodsWithBody map[string]bool
}

// NewBinder returns a wrapp of the default binder implementation with extra checks.
func NewBinder() echo.Binder {
	return &binder{
		methodsWithBody: map[string]bool{
			http.MethodPost:  true,
			http.MethodPatch: true,
			http.MethodPut:   true,
		},
	}
}

// Bind implements the echo.Bind interface.
// Payloads are JSON only, so the request body is never mixed with path or query parameters.
func (b *binder) Bind(i any, c echo.Context) error {
	if !b.methodsWithBody[c.Request().Method] {
		return b.DefaultBinder.Bind(i, c)
	}

	if c.Request().ContentLength == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Request body can't be empty")
	}

	if err := b.BindBody(c, i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload").SetInternal(err)
	}
	return nil
}
