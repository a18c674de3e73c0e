package apperror

import (
	"net/http"

	"github.com/pkg/errors"
)

type (
	// An Error represents the error format rendered by the API.
	// Its HTTPCode is the status used to render it.
	Error struct {
		HTTPCode int    `json:"-"`
		Success  bool   `json:"success"`
		Message  string `json:"message"`
		Field    string `json:"field,omitempty"`
	}
)

// StatusCode returns the HTTP status code.
func StatusCode(err error) int {
	if apperr, ok := As(err); ok {
		return apperr.HTTPCode
	}
	return http.StatusInternalServerError
}

// As returns the *Error at the root of the given wrapped error.
func As(err error) (*Error, bool) {
	apperr, ok := errors.Cause(err).(*Error)
	return apperr, ok
}

// New returns a new Error with the given code and message.
func New(code int, message string) *Error {
	return &Error{HTTPCode: code, Message: message}
}

// NewWithField returns a new Error with the given code, message and offending field path.
func NewWithField(code int, field, message string) *Error {
	return &Error{HTTPCode: code, Field: field, Message: message}
}

// BadRequest returns a 400 error.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

// Unauthorized returns a 401 error.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

// Forbidden returns a 403 error.
func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message)
}

// NotFound returns a 404 error.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

// Conflict returns a 409 error.
func Conflict(message string) *Error {
	return New(http.StatusConflict, message)
}

// Error implements error interface.
func (e *Error) Error() string {
	return e.Message
}
