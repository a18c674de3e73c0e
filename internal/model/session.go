package model

import (
	"time"
)

// A Session represents a database record.
type Session struct {
	Base `msgpack:",inline" storm:"inline"`

	ExpireAt  time.Time `msgpack:"expire_at"`
	UserID    string    `msgpack:"user_id"    storm:"index"`
	UserAgent string    `msgpack:"user_agent"`
	Token     string    `msgpack:"token"      storm:"unique"`

	Current bool `msgpack:"-"` // Only used for render
}

// IsExpired returns true if the session can no longer be used.
func (m *Session) IsExpired() bool {
	return m.ExpireAt.Before(time.Now())
}
