package database_test

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mdouchement/itemtrack/internal/database"
	"github.com/mdouchement/itemtrack/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stormClient(t *testing.T, codec string) database.Client {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "itemtrack.db")
	require.NoError(t, database.StormInit(filename, codec))

	db, err := database.StormOpen(filename, codec)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func mongoClient(t *testing.T) database.Client {
	t.Helper()

	url := os.Getenv("ITEMTRACK_TEST_MONGODB_URL")
	if url == "" {
		t.Skip("ITEMTRACK_TEST_MONGODB_URL is not set")
	}

	db, err := database.MongoOpen(url, fmt.Sprintf("itemtrack_test_%d", time.Now().UnixNano()))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestStorm(t *testing.T) {
	testClient(t, func(t *testing.T) database.Client {
		return stormClient(t, database.CodecMsgpack)
	})
}

func TestStorm_CBOR(t *testing.T) {
	testClient(t, func(t *testing.T) database.Client {
		return stormClient(t, database.CodecCBOR)
	})
}

func TestStorm_Binc(t *testing.T) {
	testClient(t, func(t *testing.T) database.Client {
		return stormClient(t, database.CodecBinc)
	})
}

func TestMongo(t *testing.T) {
	testClient(t, mongoClient)
}

func TestOpen(t *testing.T) {
	_, err := database.Open(database.Options{Driver: "sqlite"})
	assert.EqualError(t, err, "unsupported database driver: sqlite")

	_, err = database.Open(database.Options{Path: filepath.Join(t.TempDir(), "a.db"), Codec: "gob"})
	assert.EqualError(t, err, "unsupported storm codec: gob")

	db, err := database.Open(database.Options{Path: filepath.Join(t.TempDir(), "a.db")})
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, database.Offset(0, 10))
	assert.Equal(t, 0, database.Offset(1, 10))
	assert.Equal(t, 10, database.Offset(2, 10))
	assert.Equal(t, 30, database.Offset(4, 10))
	assert.Equal(t, 0, database.Offset(4, 0))

	// Unreachable pages saturate instead of overflowing.
	assert.Equal(t, math.MaxInt, database.Offset(math.MaxInt, 10))
	assert.Equal(t, math.MaxInt, database.Offset(math.MaxInt/10+2, 10))
	assert.Equal(t, math.MaxInt/10*10, database.Offset(math.MaxInt/10+1, 10))
}

func testClient(t *testing.T, open func(t *testing.T) database.Client) {
	t.Run("users", func(t *testing.T) {
		db := open(t)

		user := newUser(t, db, "George Abitbol", "george.abitbol@nowhere.lan")
		assert.NotEmpty(t, user.ID)
		assert.NotNil(t, user.CreatedAt)
		assert.NotNil(t, user.UpdatedAt)

		found, err := db.FindUser(user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, found.Email)
		assert.Equal(t, user.Name, found.Name)
		assert.Equal(t, model.RoleUser, found.Role)

		found, err = db.FindUserByMail("  George.Abitbol@NOWHERE.lan")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		found, err = db.FindUserByIdentifier("George Abitbol")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		found, err = db.FindUserByIdentifier("george.abitbol@nowhere.lan")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		_, err = db.FindUserByIdentifier("Peter")
		assert.True(t, db.IsNotFound(err))

		_, err = db.FindUser("unknown")
		assert.True(t, db.IsNotFound(err))

		duplicate := model.NewUser()
		duplicate.Name = "Impostor"
		duplicate.Email = user.Email
		err = db.Save(duplicate)
		assert.True(t, db.IsAlreadyExists(err))
	})

	t.Run("users by ids", func(t *testing.T) {
		db := open(t)

		a := newUser(t, db, "Alice", "a@x.com")
		b := newUser(t, db, "Bob", "b@x.com")
		newUser(t, db, "Carol", "c@x.com")

		users, err := db.FindUsersByIDs([]string{a.ID, b.ID, a.ID, "", "unknown"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a.ID, b.ID}, ids(users))

		users, err = db.FindUsersByIDs(nil)
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("items", func(t *testing.T) {
		db := open(t)
		owner := newUser(t, db, "Alice", "a@x.com")

		item := newItem(t, db, owner.ID, "Alpha Report", model.StatusActive)
		found, err := db.FindItem(item.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alpha Report", found.Title)
		assert.Equal(t, owner.ID, found.UserID)
		assert.Equal(t, model.StatusActive, found.Status)

		found.Title = "Alpha Report v2"
		require.NoError(t, db.Save(found))
		found, err = db.FindItem(item.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alpha Report v2", found.Title)

		require.NoError(t, db.DeleteItem(item.ID))
		_, err = db.FindItem(item.ID)
		assert.True(t, db.IsNotFound(err))

		err = db.DeleteItem(item.ID)
		assert.True(t, db.IsNotFound(err))
	})

	t.Run("find items", func(t *testing.T) {
		db := open(t)
		a := newUser(t, db, "Alice", "a@x.com")
		b := newUser(t, db, "Bob", "b@x.com")

		base := time.Now().Add(-time.Hour).UTC()
		for i := 0; i < 25; i++ {
			status := model.StatusActive
			if i%5 == 0 {
				status = model.StatusCompleted
			}
			item := newItem(t, db, a.ID, fmt.Sprintf("Item %02d", i), status)
			item.SetCreatedAt(base.Add(time.Duration(i) * time.Second))
			require.NoError(t, db.Save(item))
		}
		newItem(t, db, b.ID, "beta alpha notes", model.StatusActive)

		items, total, err := db.FindItems(database.ItemFilter{UserID: a.ID}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 25, total)
		assert.Len(t, items, 10)
		assert.Equal(t, "Item 24", items[0].Title)
		assert.Equal(t, "Item 15", items[9].Title)
		for _, item := range items {
			assert.Equal(t, a.ID, item.UserID)
		}

		items, total, err = db.FindItems(database.ItemFilter{UserID: a.ID}, 3, 10)
		require.NoError(t, err)
		assert.Equal(t, 25, total)
		assert.Len(t, items, 5)
		assert.Equal(t, "Item 00", items[4].Title)

		items, total, err = db.FindItems(database.ItemFilter{UserID: a.ID}, 4, 10)
		require.NoError(t, err)
		assert.Equal(t, 25, total)
		assert.Empty(t, items)

		items, total, err = db.FindItems(database.ItemFilter{UserID: a.ID}, math.MaxInt, 100)
		require.NoError(t, err)
		assert.Equal(t, 25, total)
		assert.Empty(t, items)

		items, total, err = db.FindItems(database.ItemFilter{UserID: b.ID}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, b.ID, items[0].UserID)

		_, total, err = db.FindItems(database.ItemFilter{}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 26, total)

		_, total, err = db.FindItems(database.ItemFilter{UserID: a.ID, Status: model.StatusCompleted}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 5, total)

		_, total, err = db.FindItems(database.ItemFilter{UserID: "unknown"}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, total)
	})

	t.Run("search", func(t *testing.T) {
		db := open(t)
		a := newUser(t, db, "Alice", "a@x.com")

		newItem(t, db, a.ID, "Alpha Report", model.StatusActive)
		newItem(t, db, a.ID, "beta alpha notes", model.StatusActive)
		newItem(t, db, a.ID, "Gamma", model.StatusActive)
		other := newItem(t, db, a.ID, "Delta", model.StatusInactive)
		other.Description = "Mentions ALPHA in the body"
		require.NoError(t, db.Save(other))
		newItem(t, db, a.ID, "a.pha", model.StatusActive)

		items, total, err := db.FindItems(database.ItemFilter{Search: "alpha"}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.ElementsMatch(t, []string{"Alpha Report", "beta alpha notes", "Delta"}, titles(items))

		items, _, err = db.FindItems(database.ItemFilter{Search: "alpha", Status: model.StatusInactive}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"Delta"}, titles(items))

		// Regexp metacharacters are matched literally.
		items, _, err = db.FindItems(database.ItemFilter{Search: "a.p"}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.pha"}, titles(items))
	})

	t.Run("sessions", func(t *testing.T) {
		db := open(t)
		a := newUser(t, db, "Alice", "a@x.com")
		b := newUser(t, db, "Bob", "b@x.com")

		active := newSession(t, db, a.ID, "active", time.Hour)
		expired := newSession(t, db, a.ID, "expired", -time.Hour)
		other := newSession(t, db, b.ID, "other", time.Hour)

		sessions, err := db.FindSessionsByUserID(a.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{active.ID}, ids(sessions))

		session, err := db.FindSessionByUserID(active.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "active", session.Token)

		_, err = db.FindSessionByUserID(other.ID, a.ID)
		assert.True(t, db.IsNotFound(err))

		require.NoError(t, db.RevokeExpiredSessions())
		_, err = db.FindSession(expired.ID)
		assert.True(t, db.IsNotFound(err))
		_, err = db.FindSession(active.ID)
		assert.NoError(t, err)

		require.NoError(t, db.Delete(active))
		_, err = db.FindSession(active.ID)
		assert.True(t, db.IsNotFound(err))

		require.NoError(t, db.DeleteSessionsByUserID(b.ID))
		_, err = db.FindSession(other.ID)
		assert.True(t, db.IsNotFound(err))
	})

	t.Run("user data removal", func(t *testing.T) {
		db := open(t)
		a := newUser(t, db, "Alice", "a@x.com")
		b := newUser(t, db, "Bob", "b@x.com")
		newItem(t, db, a.ID, "Alpha", model.StatusActive)
		newItem(t, db, a.ID, "Bravo", model.StatusActive)
		kept := newItem(t, db, b.ID, "Charlie", model.StatusActive)

		require.NoError(t, db.DeleteItemsByUserID(a.ID))
		require.NoError(t, db.DeleteItemsByUserID(a.ID))

		items, total, err := db.FindItems(database.ItemFilter{}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, kept.ID, items[0].ID)
	})
}

func newUser(t *testing.T, db database.Client, name, email string) *model.User {
	t.Helper()

	user := model.NewUser()
	user.Name = name
	user.Email = model.NormalizeEmail(email)
	user.Password = "hash"
	require.NoError(t, db.Save(user))
	return user
}

func newItem(t *testing.T, db database.Client, userID, title, status string) *model.Item {
	t.Helper()

	item := model.NewItem()
	item.Title = title
	item.Description = "Some description"
	item.Status = status
	item.UserID = userID
	require.NoError(t, db.Save(item))
	return item
}

func newSession(t *testing.T, db database.Client, userID, token string, ttl time.Duration) *model.Session {
	t.Helper()

	session := &model.Session{
		UserID:    userID,
		UserAgent: "Go-http-client/1.1",
		Token:     token,
		ExpireAt:  time.Now().Add(ttl).UTC(),
	}
	require.NoError(t, db.Save(session))
	return session
}

func ids[T model.Model](models []T) []string {
	result := make([]string, 0, len(models))
	for _, m := range models {
		result = append(result, m.GetID())
	}
	return result
}

func titles(items []*model.Item) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		result = append(result, item.Title)
	}
	return result
}
