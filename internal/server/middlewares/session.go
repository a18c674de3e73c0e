package middlewares

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/itemtrack/internal/apperror"
	"github.com/mdouchement/itemtrack/internal/model"
	"github.com/mdouchement/itemtrack/internal/server/session"
	"github.com/sirupsen/logrus"
)

const (
	// CurrentUserContextKey is the key to retrieve the current_user from echo.Context.
	CurrentUserContextKey = "current_user"
	// CurrentSessionContextKey is the key to retrieve the current_session from echo.Context.
	CurrentSessionContextKey = "current_session"
)

// SessionConfig defines the config for Session middleware.
type SessionConfig struct {
	Manager session.Manager
	Cookie  session.CookieConfig
	Logger  logrus.FieldLogger
	// Optional lets anonymous requests through without current_user.
	Optional bool
}

// SessionWithConfig returns a Session auth middleware.
// The token is read from the Authorization header or the session cookie.
// It stores current_user and current_session into echo.Context.
func SessionWithConfig(config SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := config.Cookie.TokenFromRequest(c)
			if token == "" && config.Optional {
				return next(c)
			}

			current, user, err := config.Manager.Authenticate(token)
			if err != nil {
				if apperror.StatusCode(err) != http.StatusUnauthorized {
					return err
				}
				if config.Optional {
					return next(c)
				}

				if token != "" && config.Logger != nil {
					config.Logger.WithFields(logrus.Fields{
						"path":       c.Request().URL.Path,
						"remote_ip":  c.RealIP(),
						"user_agent": c.Request().UserAgent(),
					}).Warn("rejected session token")
				}
				return err
			}

			c.Set(CurrentSessionContextKey, current)
			c.Set(CurrentUserContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(CurrentUserContextKey).(*model.User)
	return user
}

// CurrentSession returns the authenticated session or nil.
func CurrentSession(c echo.Context) *model.Session {
	session, _ := c.Get(CurrentSessionContextKey).(*model.Session)
	return session
}
