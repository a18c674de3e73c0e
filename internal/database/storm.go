package database

import (
	"regexp"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/q"
	"github.com/gofrs/uuid"
	"github.com/mdouchement/itemtrack/internal/model"
	"github.com/pkg/errors"
)

type strm struct {
	db *storm.DB
}

var stormModels = []any{&model.User{}, &model.Item{}, &model.Session{}}

// StormConnect returns a raw Storm database connection.
// It is used by the maintenance tools that query the buckets directly.
func StormConnect(database, codec string) (*storm.DB, error) {
	c, err := StormCodec(codec)
	if err != nil {
		return nil, err
	}

	db, err := storm.Open(database, storm.Codec(c))
	return db, errors.Wrap(err, "could not get database connection")
}

// StormInit initializes Storm database.
func StormInit(database, codec string) error {
	db, err := StormConnect(database, codec)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, m := range stormModels {
		if err := db.Init(m); err != nil {
			return errors.Wrapf(err, "could not init %T index", m)
		}
	}
	return nil
}

// StormReIndex reindex Storm database.
func StormReIndex(database, codec string) error {
	db, err := StormConnect(database, codec)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, m := range stormModels {
		if err := db.ReIndex(m); err != nil {
			return errors.Wrapf(err, "could not ReIndex %T", m)
		}
	}
	return nil
}

// StormOpen returns a new Storm database connection.
func StormOpen(database, codec string) (Client, error) {
	db, err := StormConnect(database, codec)
	if err != nil {
		return nil, err
	}

	return &strm{
		db: db,
	}, nil
}

// Save inserts or updates the entry in database with the given model.
func (c *strm) Save(m model.Model) error {
	t := time.Now().UTC()
	m.SetUpdatedAt(t)

	if m.GetID() == "" {
		m.SetID(uuid.Must(uuid.NewV4()).String())
		m.SetCreatedAt(t)
	}

	return errors.Wrap(c.db.Save(m), "could not save the model")
}

// Delete deletes the entry in database with the given model.
func (c *strm) Delete(m model.Model) error {
	return errors.Wrap(c.db.DeleteStruct(m), "could not delete the model")
}

// Close the database.
func (c *strm) Close() error {
	return c.db.Close()
}

// IsNotFound returns true if err is a not found error.
func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

// IsAlreadyExists returns true if err is a unique constraint violation.
func (c *strm) IsAlreadyExists(err error) bool {
	return errors.Cause(err) == storm.ErrAlreadyExists
}

// FindUser returns the user for the given id.
func (c *strm) FindUser(id string) (*model.User, error) {
	var user model.User
	if err := c.db.One("ID", id, &user); err != nil {
		return nil, errors.Wrap(err, "find user by id")
	}
	return &user, nil
}

// FindUserByMail returns the user for the given email.
func (c *strm) FindUserByMail(email string) (*model.User, error) {
	var user model.User
	if err := c.db.One("Email", model.NormalizeEmail(email), &user); err != nil {
		return nil, errors.Wrap(err, "find user by mail")
	}
	return &user, nil
}

// FindUserByIdentifier returns the user matching the given email or, failing that, name.
func (c *strm) FindUserByIdentifier(identifier string) (*model.User, error) {
	user, err := c.FindUserByMail(identifier)
	if err == nil || !c.IsNotFound(err) {
		return user, err
	}

	var u model.User
	if err := c.db.One("Name", identifier, &u); err != nil {
		return nil, errors.Wrap(err, "find user by name")
	}
	return &u, nil
}

// FindUsersByIDs returns the users for the given ids.
func (c *strm) FindUsersByIDs(ids []string) ([]*model.User, error) {
	users := make([]*model.User, 0)

	ids = distinct(ids)
	if len(ids) == 0 {
		return users, nil
	}

	err := c.db.Select(q.In("ID", ids)).Find(&users)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find users by ids")
	}
	return users, nil
}

// FindSession returns the session for the given id.
func (c *strm) FindSession(id string) (*model.Session, error) {
	var session model.Session
	if err := c.db.One("ID", id, &session); err != nil {
		return nil, errors.Wrap(err, "find session by id")
	}
	return &session, nil
}

// FindSessionByUserID returns the session for the given id and user id.
func (c *strm) FindSessionByUserID(id, userID string) (*model.Session, error) {
	var session model.Session
	err := c.db.Select(q.Eq("ID", id), q.Eq("UserID", userID)).First(&session)
	if err != nil {
		return nil, errors.Wrap(err, "find session by id and user id")
	}
	return &session, nil
}

// FindSessionsByUserID returns all active sessions for the given user id.
func (c *strm) FindSessionsByUserID(userID string) ([]*model.Session, error) {
	sessions := make([]*model.Session, 0)
	err := c.db.Select(q.Eq("UserID", userID), q.Gt("ExpireAt", time.Now())).OrderBy("CreatedAt").Find(&sessions)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find sessions by user id")
	}
	return sessions, nil
}

// RevokeExpiredSessions removes from database all the expired sessions.
func (c *strm) RevokeExpiredSessions() error {
	err := c.db.Select(q.Lte("ExpireAt", time.Now())).Delete(&model.Session{})
	if err != nil && !c.IsNotFound(err) {
		return errors.Wrap(err, "could not revoke expired sessions")
	}
	return nil
}

// DeleteSessionsByUserID removes all the sessions of the given user.
func (c *strm) DeleteSessionsByUserID(userID string) error {
	err := c.db.Select(q.Eq("UserID", userID)).Delete(&model.Session{})
	if err != nil && !c.IsNotFound(err) {
		return errors.Wrap(err, "could not delete sessions by user id")
	}
	return nil
}

// FindItem returns the item for the given id.
func (c *strm) FindItem(id string) (*model.Item, error) {
	var item model.Item
	if err := c.db.One("ID", id, &item); err != nil {
		return nil, errors.Wrap(err, "could not find item")
	}
	return &item, nil
}

// FindItems returns a page of the items matching the given filter, newest first.
func (c *strm) FindItems(filter ItemFilter, page, limit int) ([]*model.Item, int, error) {
	var query []q.Matcher

	if filter.UserID != "" {
		query = append(query, q.Eq("UserID", filter.UserID))
	}

	if filter.Status != "" {
		query = append(query, q.Eq("Status", filter.Status))
	}

	if filter.Search != "" {
		pattern := "(?i)" + regexp.QuoteMeta(filter.Search)
		query = append(query, q.Or(
			q.Re("Title", pattern),
			q.Re("Description", pattern),
		))
	}

	total, err := c.db.Select(query...).Count(&model.Item{})
	if err != nil && !c.IsNotFound(err) {
		return nil, 0, errors.Wrap(err, "could not count items")
	}

	items := make([]*model.Item, 0)

	skip := Offset(page, limit)
	if skip < 0 || skip >= total {
		return items, total, nil
	}

	sq := c.db.Select(query...).OrderBy("CreatedAt").Reverse().Skip(skip)
	if limit > 0 {
		sq.Limit(limit)
	}

	err = sq.Find(&items)
	if err != nil && !c.IsNotFound(err) {
		return nil, 0, errors.Wrap(err, "could not find items")
	}

	return items, total, nil
}

// DeleteItem deletes the item for the given id.
func (c *strm) DeleteItem(id string) error {
	item, err := c.FindItem(id)
	if err != nil {
		return err
	}
	return errors.Wrap(c.db.DeleteStruct(item), "could not delete item")
}

// DeleteItemsByUserID deletes all the items of the given user.
func (c *strm) DeleteItemsByUserID(userID string) error {
	err := c.db.Select(q.Eq("UserID", userID)).Delete(&model.Item{})
	if err != nil && !c.IsNotFound(err) {
		return errors.Wrap(err, "could not delete items by user id")
	}
	return nil
}
