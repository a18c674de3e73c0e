package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/itemtrack/internal/apperror"
	"github.com/mdouchement/itemtrack/internal/database"
	"github.com/mdouchement/itemtrack/internal/server/serializer"
	"github.com/mdouchement/itemtrack/internal/server/service"
	"github.com/mdouchement/itemtrack/internal/server/session"
	"github.com/mdouchement/itemtrack/internal/validation"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// auth contains all authentication handlers.
type auth struct {
	db       database.Client
	sessions session.Manager
	cookie   session.CookieConfig
	logger   logrus.FieldLogger
	users    service.UserService
}

///// Register
////
//

// Register handler is used to register the user.
func (h *auth) Register(c echo.Context) error {
	// Filter params
	var input validation.SignUpInput
	if err := c.Bind(&input); err != nil {
		return err
	}

	user, err := h.users.Register(service.RegisterParams{
		Params:      service.Params{UserAgent: c.Request().UserAgent()},
		SignUpInput: input,
	})
	if err != nil {
		return err
	}

	h.logger.WithField("user_id", user.ID).Info("user registered")

	return c.JSON(http.StatusCreated, serializer.Success(map[string]any{
		"message": "User registered successfully",
		"user":    serializer.User(user),
	}))
}

///// Login
////
//

// Login authenticates a user and opens a session.
// The session token is set as cookie and returned for Bearer authentication.
func (h *auth) Login(c echo.Context) error {
	// Filter params
	var input validation.SignInInput
	if err := c.Bind(&input); err != nil {
		return err
	}

	user, session, err := h.users.Login(service.LoginParams{
		Params:      service.Params{UserAgent: c.Request().UserAgent()},
		SignInInput: input,
	})
	if err != nil {
		if apperror.StatusCode(err) == http.StatusUnauthorized {
			h.logger.WithFields(logrus.Fields{
				"email":     input.Email,
				"remote_ip": c.RealIP(),
			}).Warn("failed sign-in attempt")
		}
		return err
	}

	token, err := h.sessions.Token(session)
	if err != nil {
		return errors.Wrap(err, "could not generate session token")
	}

	c.SetCookie(h.cookie.Cookie(token, session.ExpireAt))

	return c.JSON(http.StatusOK, serializer.Success(map[string]any{
		"message":  "Sign in successful",
		"user":     serializer.User(user),
		"token":    token,
		"expireAt": session.ExpireAt.UTC(),
	}))
}

///// Logout
////
//

// Logout terminates the current session, if any, and clears the session cookie.
func (h *auth) Logout(c echo.Context) error {
	if session := currentSession(c); session != nil {
		if err := h.sessions.Revoke(session); err != nil {
			return err
		}
	}

	c.SetCookie(h.cookie.Expired())
	return c.JSON(http.StatusOK, serializer.Message("Signed out successfully"))
}

///// Me
////
//

// Me returns the profile of the requested user or of the authenticated one.
func (h *auth) Me(c echo.Context) error {
	id := c.QueryParam("userId")
	if id == "" {
		if user := currentUser(c); user != nil {
			id = user.ID
		}
	}

	if id == "" {
		return apperror.Unauthorized("User ID not provided")
	}

	user, err := h.db.FindUser(id)
	if err != nil {
		if h.db.IsNotFound(err) {
			return apperror.NotFound("User not found")
		}
		return errors.Wrap(err, "could not get user")
	}

	return c.JSON(http.StatusOK, serializer.Success(map[string]any{
		"user": serializer.User(user),
	}))
}
