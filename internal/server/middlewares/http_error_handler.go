package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/itemtrack/internal/apperror"
	"github.com/sirupsen/logrus"
)

// HTTPErrorHandler returns an error handler that renders errors in the API envelope.
// Client errors are rendered as is, everything else is logged and hidden behind a reference.
func HTTPErrorHandler(logger logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if herr, ok := err.(*echo.HTTPError); ok {
			if herr.Code >= http.StatusInternalServerError {
				internal(logger, err, c)
				return
			}

			if herr.Internal != nil {
				logger.WithField("path", c.Request().URL.Path).Debugf("echo: %s", herr.Internal)
			}
			render(c, apperror.New(herr.Code, fmt.Sprint(herr.Message)))
			return
		}

		if apperr, ok := apperror.As(err); ok && apperr.HTTPCode < http.StatusInternalServerError {
			render(c, apperr)
			return
		}

		internal(logger, err, c)
	}
}

func render(c echo.Context, err *apperror.Error) {
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(err.HTTPCode)
		return
	}
	_ = c.JSON(err.HTTPCode, err)
}

func internal(logger logrus.FieldLogger, err error, c echo.Context) {
	id := uuid.Must(uuid.NewV4()).String()
	logger.WithFields(logrus.Fields{
		"reference": id,
		"method":    c.Request().Method,
		"path":      c.Request().URL.Path,
	}).Errorf("%+v", err)

	_ = c.JSON(http.StatusInternalServerError, echo.Map{
		"success":   false,
		"message":   "Internal server error",
		"reference": id,
	})
}
