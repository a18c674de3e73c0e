package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/itemtrack/internal/apperror"
	"github.com/mdouchement/itemtrack/internal/database"
	"github.com/mdouchement/itemtrack/internal/server/serializer"
	sessionpkg "github.com/mdouchement/itemtrack/internal/server/session"
	"github.com/pkg/errors"
)

type sess struct {
	db       database.Client
	sessions sessionpkg.Manager
}

// List lists all active sessions for the current user.
func (s *sess) List(c echo.Context) error {
	session := currentSession(c)
	user := currentUser(c)

	sessions, err := s.db.FindSessionsByUserID(user.ID)
	if err != nil {
		return errors.Wrap(err, "could not get active sessions")
	}

	for _, s := range sessions {
		if s.ID == session.ID {
			s.Current = true
			break
		}
	}

	return c.JSON(http.StatusOK, serializer.Success(map[string]any{
		"sessions": serializer.Sessions(sessions),
	}))
}

// Delete terminates the specified session of the current user.
func (s *sess) Delete(c echo.Context) error {
	id := c.Param("id")

	if id == currentSession(c).ID {
		return apperror.BadRequest("You can not delete your current session")
	}

	// Retrieve session
	session, err := s.db.FindSessionByUserID(id, currentUser(c).ID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return apperror.NotFound("Session not found")
		}
		return errors.Wrap(err, "could not get user session")
	}

	if err = s.sessions.Revoke(session); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Message("Session revoked successfully"))
}
