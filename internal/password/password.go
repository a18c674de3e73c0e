// Package password hashes and verifies user passwords.
package password

import (
	"strings"

	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned when the password does not match the hash.
var ErrMismatch = errors.New("password: hash and password mismatch")

// Hash returns the argon2id digest of the given password.
func Hash(password string) (string, error) {
	hash, err := argon2.GenerateFromPasswordString(password, argon2.Default)
	return hash, errors.Wrap(err, "could not hash password")
}

// Compare checks the given password against hash.
// Both argon2 and bcrypt digests are supported.
func Compare(hash, password string) error {
	if isBcrypt(hash) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return ErrMismatch
		}
		return errors.Wrap(err, "could not compare bcrypt hash")
	}

	err := argon2.CompareHashAndPasswordString(hash, password)
	if err == argon2.ErrMismatchedHashAndPassword {
		return ErrMismatch
	}
	return errors.Wrap(err, "could not compare argon2 hash")
}

func isBcrypt(hash string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(hash, prefix) {
			return true
		}
	}
	return false
}
