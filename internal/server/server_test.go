package server_test

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/appleboy/gofight/v2"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/itemtrack/internal/database"
	"github.com/mdouchement/itemtrack/internal/logger"
	"github.com/mdouchement/itemtrack/internal/model"
	"github.com/mdouchement/itemtrack/internal/password"
	"github.com/mdouchement/itemtrack/internal/server"
	"github.com/mdouchement/itemtrack/internal/server/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

const cookieName = "itemtrack_session"

func TestRequestVersion(t *testing.T) {
	engine, _ := setup(t)

	gofight.New().GET("/api/version").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"success":true,"version":"test"}`, r.Body.String())
	})
}

func TestRequestMalformedPayload(t *testing.T) {
	engine, _ := setup(t)

	gofight.New().POST("/api/auth/sign-in").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
		assert.JSONEq(t, `{"success":false,"message":"Request body can't be empty"}`, r.Body.String())
	})

	gofight.New().POST("/api/auth/sign-in").
		SetBody(`{"email":`).
		SetHeader(gofight.H{"Content-Type": "application/json"}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
			assert.JSONEq(t, `{"success":false,"message":"Invalid request payload"}`, r.Body.String())
		})
}

func TestRequestInternalError(t *testing.T) {
	db := &failingDB{}
	engine, ctrl := setupWithDatabase(t, func(client database.Client) database.Client {
		db.Client = client
		return db
	})

	user := createUser(t, ctrl, "Alice", "a@x.com", model.RoleUser)
	db.On("FindItems", mock.Anything, 1, 10).Return(nil, 0, assert.AnError)

	gofight.New().GET("/api/items").
		SetHeader(bearer(t, ctrl, user)).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusInternalServerError, r.Code)

			v, err := fastjson.Parse(r.Body.String())
			require.NoError(t, err)
			assert.False(t, v.GetBool("success"))
			assert.Equal(t, "Internal server error", string(v.GetStringBytes("message")))
			assert.Len(t, v.GetStringBytes("reference"), 36)
			assert.NotContains(t, r.Body.String(), assert.AnError.Error())
		})

	db.AssertExpectations(t)
}

//
// Helpers
//

func setup(t *testing.T) (*echo.Echo, server.Controller) {
	return setupWithDatabase(t, nil)
}

func setupWithDatabase(t *testing.T, wrap func(database.Client) database.Client) (*echo.Echo, server.Controller) {
	t.Helper()

	db, err := database.StormOpen(filepath.Join(t.TempDir(), "itemtrack.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	var client database.Client = db
	if wrap != nil {
		client = wrap(db)
	}

	ctrl := server.Controller{
		Version:       "test",
		Database:      client,
		Logger:        logger.Discard(),
		SessionSecret: []byte("00000000000000000000000000000000"),
		SessionTTL:    time.Hour,
		Cookie:        session.CookieConfig{Name: cookieName},
	}
	return server.EchoEngine(ctrl), ctrl
}

func createUser(t *testing.T, ctrl server.Controller, name, email, role string) *model.User {
	t.Helper()

	var err error

	user := model.NewUser()
	user.Name = name
	user.Email = email
	user.Role = role
	user.Password, err = password.Hash("password42")
	require.NoError(t, err)
	require.NoError(t, ctrl.Database.Save(user))

	return user
}

func createItem(t *testing.T, ctrl server.Controller, userID, title string) *model.Item {
	t.Helper()

	item := model.NewItem()
	item.Title = title
	item.Description = "Some description"
	item.UserID = userID
	require.NoError(t, ctrl.Database.Save(item))

	return item
}

func token(t *testing.T, ctrl server.Controller, user *model.User) string {
	t.Helper()

	sessions := session.NewManager(ctrl.Database, ctrl.SessionSecret, ctrl.SessionTTL)

	s, err := sessions.Create(user, "Go-http-client/1.1")
	require.NoError(t, err)

	token, err := sessions.Token(s)
	require.NoError(t, err)
	return token
}

func bearer(t *testing.T, ctrl server.Controller, user *model.User) gofight.H {
	return gofight.H{"Authorization": "Bearer " + token(t, ctrl, user)}
}

// failingDB is a database client whose mocked methods fail.
type failingDB struct {
	database.Client
	mock.Mock
}

func (m *failingDB) FindItems(filter database.ItemFilter, page, limit int) ([]*model.Item, int, error) {
	args := m.Called(filter, page, limit)
	return nil, args.Int(1), args.Error(2)
}
