package middlewares

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/itemtrack/internal/server/gate"
)

// Gate redirects page navigations according to the gate rules.
// It must run after an optional Session middleware.
func Gate(rules gate.Rules) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			decision := rules.Decide(c.Request().URL.Path, CurrentUser(c) != nil)
			if !decision.Allowed() {
				return c.Redirect(http.StatusTemporaryRedirect, decision.Redirect)
			}
			return next(c)
		}
	}
}
