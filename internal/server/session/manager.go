package session

import (
	"time"

	"github.com/mdouchement/itemtrack/internal/apperror"
	"github.com/mdouchement/itemtrack/internal/database"
	"github.com/mdouchement/itemtrack/internal/model"
	"github.com/o1egl/paseto/v2"
	"github.com/pkg/errors"
)

const (
	issuer   = "itemtrack"
	audience = "session"
	// claim holding the session secret.
	tokenClaim = "tk"
	tokenSize  = 32
)

// ErrUnauthenticated is returned when a token can not be resolved to a live session.
var ErrUnauthenticated = apperror.Unauthorized("Authentication required")

type (
	// A Manager manages sessions.
	Manager interface {
		// Create creates and persists a new session for the given user.
		Create(user *model.User, userAgent string) (*model.Session, error)
		// Token returns the encrypted token that identifies the given session.
		Token(session *model.Session) (string, error)
		// Authenticate returns the session and its user for the given token.
		Authenticate(token string) (*model.Session, *model.User, error)
		// Revoke deletes the given session.
		Revoke(session *model.Session) error
		// TTL returns the lifetime of a new session.
		TTL() time.Duration
	}

	manager struct {
		db     database.Client
		secret []byte
		ttl    time.Duration
		v2     *paseto.V2
	}
)

// NewManager returns a new manager.
// The secret must be 32 bytes long.
func NewManager(db database.Client, secret []byte, ttl time.Duration) Manager {
	return &manager{
		db:     db,
		secret: secret,
		ttl:    ttl,
		v2:     paseto.NewV2(),
	}
}

func (m *manager) TTL() time.Duration {
	return m.ttl
}

func (m *manager) Create(user *model.User, userAgent string) (*model.Session, error) {
	if err := m.db.RevokeExpiredSessions(); err != nil {
		return nil, err
	}

	session := &model.Session{
		UserID:    user.ID,
		UserAgent: userAgent,
		ExpireAt:  time.Now().Add(m.ttl).UTC(),
		Token:     SecureToken(tokenSize),
	}

	return session, errors.Wrap(m.db.Save(session), "could not persist session")
}

func (m *manager) Token(session *model.Session) (string, error) {
	now := time.Now().UTC()

	jsonToken := paseto.JSONToken{
		Jti:        session.ID,
		Subject:    session.UserID,
		Issuer:     issuer,
		Audience:   audience,
		IssuedAt:   now,
		NotBefore:  now.Add(-time.Minute),
		Expiration: session.ExpireAt,
	}
	jsonToken.Set(tokenClaim, session.Token)

	token, err := m.v2.Encrypt(m.secret, jsonToken, nil)
	return token, errors.Wrap(err, "could not encrypt session token")
}

func (m *manager) Authenticate(token string) (*model.Session, *model.User, error) {
	if token == "" {
		return nil, nil, ErrUnauthenticated
	}

	var jsonToken paseto.JSONToken
	if err := m.v2.Decrypt(token, m.secret, &jsonToken, nil); err != nil {
		return nil, nil, ErrUnauthenticated
	}

	err := jsonToken.Validate(
		paseto.IssuedBy(issuer),
		paseto.ForAudience(audience),
		paseto.ValidAt(time.Now()),
	)
	if err != nil {
		return nil, nil, ErrUnauthenticated
	}

	session, err := m.db.FindSessionByUserID(jsonToken.Jti, jsonToken.Subject)
	if err != nil {
		if m.db.IsNotFound(err) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, errors.Wrap(err, "could not get session")
	}

	var secret string
	if err := jsonToken.Get(tokenClaim, &secret); err != nil {
		return nil, nil, ErrUnauthenticated
	}

	if session.IsExpired() || !SecureCompare(session.Token, secret) {
		return nil, nil, ErrUnauthenticated
	}

	user, err := m.db.FindUser(session.UserID)
	if err != nil {
		if m.db.IsNotFound(err) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, errors.Wrap(err, "could not get session user")
	}

	return session, user, nil
}

func (m *manager) Revoke(session *model.Session) error {
	err := m.db.Delete(session)
	if err != nil && !m.db.IsNotFound(err) {
		return errors.Wrap(err, "could not revoke session")
	}
	return nil
}
