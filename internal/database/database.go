package database

import (
	"math"

	"github.com/mdouchement/itemtrack/internal/model"
	"github.com/pkg/errors"
)

// Supported drivers.
const (
	DriverStorm = "storm"
	DriverMongo = "mongo"
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		// ID and timestamps are assigned on the first save.
		Save(m model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool
		// IsAlreadyExists returns true if err is a unique constraint violation.
		IsAlreadyExists(err error) bool

		UserInteraction
		SessionInteraction
		ItemInteraction
	}

	// An UserInteraction defines all the methods used to interact with a user record.
	UserInteraction interface {
		// FindUser returns the user for the given id.
		FindUser(id string) (*model.User, error)
		// FindUserByMail returns the user for the given email.
		FindUserByMail(email string) (*model.User, error)
		// FindUserByIdentifier returns the user matching the given email or, failing that, name.
		FindUserByIdentifier(identifier string) (*model.User, error)
		// FindUsersByIDs returns the users for the given ids. Unknown ids are ignored.
		FindUsersByIDs(ids []string) ([]*model.User, error)
	}

	// An SessionInteraction defines all the methods used to interact with a session record.
	SessionInteraction interface {
		// FindSession returns the session for the given id.
		FindSession(id string) (*model.Session, error)
		// FindSessionByUserID returns the session for the given id and user id.
		FindSessionByUserID(id, userID string) (*model.Session, error)
		// FindSessionsByUserID returns all active sessions for the given user id.
		FindSessionsByUserID(userID string) ([]*model.Session, error)
		// RevokeExpiredSessions removes from database all the expired sessions.
		RevokeExpiredSessions() error
		// DeleteSessionsByUserID removes all the sessions of the given user.
		DeleteSessionsByUserID(userID string) error
	}

	// An ItemInteraction defines all the methods used to interact with a item record(s).
	ItemInteraction interface {
		// FindItem returns the item for the given id.
		FindItem(id string) (*model.Item, error)
		// FindItems returns a page of the items matching the given filter, newest first,
		// along with the total number of matching items.
		FindItems(filter ItemFilter, page, limit int) ([]*model.Item, int, error)
		// DeleteItem deletes the item for the given id.
		DeleteItem(id string) error
		// DeleteItemsByUserID deletes all the items of the given user.
		DeleteItemsByUserID(userID string) error
	}

	// An ItemFilter restricts the items returned by FindItems.
	// Empty fields are ignored.
	ItemFilter struct {
		UserID string
		Status string
		// Search is a case-insensitive substring matched against title and description.
		Search string
	}

	// Options are used to open a database connection.
	Options struct {
		Driver string
		// Path of the storm database file.
		Path string
		// Codec used by storm to serialize records.
		Codec string
		// URL of the mongo server.
		URL string
		// Name of the mongo database.
		Name string
	}
)

// Open returns a new database connection for the given options.
func Open(opts Options) (Client, error) {
	switch opts.Driver {
	case "", DriverStorm:
		return StormOpen(opts.Path, opts.Codec)
	case DriverMongo:
		return MongoOpen(opts.URL, opts.Name)
	default:
		return nil, errors.Errorf("unsupported database driver: %s", opts.Driver)
	}
}

// Init initializes the database indexes.
func Init(opts Options) error {
	switch opts.Driver {
	case "", DriverStorm:
		return StormInit(opts.Path, opts.Codec)
	case DriverMongo:
		db, err := MongoOpen(opts.URL, opts.Name) // Indexes are created on open.
		if err != nil {
			return err
		}
		return db.Close()
	default:
		return errors.Errorf("unsupported database driver: %s", opts.Driver)
	}
}

// Offset returns the number of records to skip for the given page.
// It saturates at math.MaxInt when the page is too far to be reached.
func Offset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// distinct returns the non-empty ids without duplicates, in order of appearance.
func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
