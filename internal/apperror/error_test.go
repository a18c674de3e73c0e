package apperror_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mdouchement/itemtrack/internal/apperror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := apperror.New(http.StatusTeapot, "some message")

	assert.Equal(t, "some message", err.Error())
	assert.Equal(t, http.StatusTeapot, apperror.StatusCode(err))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, apperror.StatusCode(apperror.BadRequest("")))
	assert.Equal(t, http.StatusUnauthorized, apperror.StatusCode(apperror.Unauthorized("")))
	assert.Equal(t, http.StatusForbidden, apperror.StatusCode(apperror.Forbidden("")))
	assert.Equal(t, http.StatusNotFound, apperror.StatusCode(apperror.NotFound("")))
	assert.Equal(t, http.StatusConflict, apperror.StatusCode(apperror.Conflict("")))
	assert.Equal(t, http.StatusInternalServerError, apperror.StatusCode(errors.New("boom")))
	assert.Equal(t, http.StatusNotFound, apperror.StatusCode(errors.Wrap(apperror.NotFound(""), "wrapped")))
}

func TestAs(t *testing.T) {
	apperr, ok := apperror.As(errors.Wrap(apperror.Forbidden("Unauthorized"), "could not update item"))
	assert.True(t, ok)
	assert.Equal(t, "Unauthorized", apperr.Message)

	_, ok = apperror.As(errors.New("boom"))
	assert.False(t, ok)
}

func TestErrorJSON(t *testing.T) {
	payload, err := json.Marshal(apperror.NewWithField(http.StatusBadRequest, "title", "Title must be at least 3 characters"))
	assert.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"message":"Title must be at least 3 characters","field":"title"}`, string(payload))

	payload, err = json.Marshal(apperror.NotFound("Item not found"))
	assert.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"message":"Item not found"}`, string(payload))
}
