package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// A CookieConfig describes the cookie carrying the session token.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Cookie returns the cookie that stores the given token until expireAt.
func (cc CookieConfig) Cookie(token string, expireAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     cc.Name,
		Value:    token,
		Path:     "/",
		Expires:  expireAt,
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Expired returns a cookie that clears the session cookie from the browser.
func (cc CookieConfig) Expired() *http.Cookie {
	cookie := cc.Cookie("", time.Unix(0, 0))
	cookie.MaxAge = -1
	return cookie
}

// TokenFromRequest extracts the session token from the Authorization header
// or, when absent, from the session cookie.
func (cc CookieConfig) TokenFromRequest(c echo.Context) string {
	if token := bearer(c.Request().Header.Get(echo.HeaderAuthorization)); token != "" {
		return token
	}

	cookie, err := c.Cookie(cc.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func bearer(authorization string) string {
	parts := strings.Fields(authorization)
	if len(parts) < 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}
