package server_test

import (
	"net/http"
	"testing"

	"github.com/appleboy/gofight/v2"
	"github.com/mdouchement/itemtrack/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func TestRequestSessionList(t *testing.T) {
	engine, ctrl := setup(t)
	user := createUser(t, ctrl, "George Abitbol", "george.abitbol@nowhere.lan", model.RoleUser)
	other := createUser(t, ctrl, "Peter", "peter@nowhere.lan", model.RoleUser)

	token(t, ctrl, user)
	token(t, ctrl, other)
	headers := bearer(t, ctrl, user)

	gofight.New().GET("/api/sessions").SetHeader(headers).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		v, err := fastjson.Parse(r.Body.String())
		require.NoError(t, err)

		sessions := v.GetArray("sessions")
		require.Len(t, sessions, 2)

		var current int
		for _, s := range sessions {
			assert.NotEmpty(t, s.GetStringBytes("id"))
			assert.Equal(t, "Go-http-client/1.1", string(s.GetStringBytes("userAgent")))
			assert.NotEmpty(t, s.GetStringBytes("expireAt"))
			assert.Nil(t, s.Get("token"))
			if s.GetBool("current") {
				current++
			}
		}
		assert.Equal(t, 1, current)
	})
}

func TestRequestSessionDelete(t *testing.T) {
	engine, ctrl := setup(t)
	user := createUser(t, ctrl, "George Abitbol", "george.abitbol@nowhere.lan", model.RoleUser)
	other := createUser(t, ctrl, "Peter", "peter@nowhere.lan", model.RoleUser)

	revoked := token(t, ctrl, user)
	current := token(t, ctrl, user)
	token(t, ctrl, other)

	sessions, err := ctrl.Database.FindSessionsByUserID(user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	others, err := ctrl.Database.FindSessionsByUserID(other.ID)
	require.NoError(t, err)
	require.Len(t, others, 1)

	headers := gofight.H{"Authorization": "Bearer " + current}

	// Identify the current session.
	var currentID string
	gofight.New().GET("/api/sessions").SetHeader(headers).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		v, err := fastjson.Parse(r.Body.String())
		require.NoError(t, err)
		for _, s := range v.GetArray("sessions") {
			if s.GetBool("current") {
				currentID = string(s.GetStringBytes("id"))
			}
		}
	})
	require.NotEmpty(t, currentID)

	gofight.New().DELETE("/api/sessions/"+currentID).SetHeader(headers).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
		assert.JSONEq(t, `{"success":false,"message":"You can not delete your current session"}`, r.Body.String())
	})

	// Sessions of other users are not reachable.
	gofight.New().DELETE("/api/sessions/"+others[0].ID).SetHeader(headers).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusNotFound, r.Code)
		assert.JSONEq(t, `{"success":false,"message":"Session not found"}`, r.Body.String())
	})

	var target string
	for _, s := range sessions {
		if s.ID != currentID {
			target = s.ID
		}
	}

	gofight.New().DELETE("/api/sessions/"+target).SetHeader(headers).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"success":true,"message":"Session revoked successfully"}`, r.Body.String())
	})

	gofight.New().GET("/api/sessions").SetHeader(gofight.H{"Authorization": "Bearer " + revoked}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
	})

	gofight.New().DELETE("/api/sessions/"+target).SetHeader(headers).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusNotFound, r.Code)
	})
}
