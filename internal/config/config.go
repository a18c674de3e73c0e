// Package config loads the application settings from defaults, a YAML file and the environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/mdouchement/itemtrack/internal/database"
	"github.com/mdouchement/itemtrack/internal/logger"
	"github.com/pkg/errors"
)

// EnvPrefix is the prefix of the environment variables overriding the configuration.
// Nested keys use a double underscore (e.g. ITEMTRACK_SESSION__SECRET).
const EnvPrefix = "ITEMTRACK_"

type (
	// A Config holds the application settings.
	Config struct {
		Address           string
		NoRegistration    bool
		AdminRegistration bool
		PagesPath         string
		Database          database.Options
		Session           Session
		Log               logger.Options
	}

	// Session holds the session settings.
	Session struct {
		Secret       []byte
		TTL          time.Duration
		Cookie       string
		SecureCookie bool
	}
)

var defaults = map[string]any{
	"address":               "localhost:5000",
	"no_registration":       false,
	"admin_registration":    false,
	"database.driver":       database.DriverStorm,
	"database.path":         "itemtrack.db",
	"database.codec":        database.CodecMsgpack,
	"database.name":         "itemtrack",
	"session.ttl":           "720h",
	"session.cookie":        "itemtrack_session",
	"session.secure_cookie": false,
	"log.level":             "info",
	"log.format":            logger.FormatText,
}

// Load reads the configuration.
// An empty filename only uses the defaults and the environment.
func Load(filename string) (*Config, error) {
	// Values from .env are exported unless already set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrap(err, "could not load .env")
	}

	konf := koanf.New(".")
	if err := konf.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, errors.Wrap(err, "could not load defaults")
	}

	if filename != "" {
		if err := konf.Load(file.Provider(filename), yaml.Parser()); err != nil {
			return nil, errors.Wrap(err, "could not load configuration file")
		}
	}

	if url := os.Getenv("MONGODB_URL"); url != "" {
		if err := konf.Load(confmap.Provider(map[string]any{"database.url": url}, "."), nil); err != nil {
			return nil, errors.Wrap(err, "could not load MONGODB_URL")
		}
	}

	err := konf.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not load environment")
	}

	ttl, err := time.ParseDuration(konf.String("session.ttl"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid session.ttl")
	}
	if ttl <= 0 {
		return nil, errors.New("session.ttl must be positive")
	}

	return &Config{
		Address:           konf.String("address"),
		NoRegistration:    konf.Bool("no_registration"),
		AdminRegistration: konf.Bool("admin_registration"),
		PagesPath:         konf.String("pages_path"),
		Database: database.Options{
			Driver: konf.String("database.driver"),
			Path:   konf.String("database.path"),
			Codec:  konf.String("database.codec"),
			URL:    konf.String("database.url"),
			Name:   konf.String("database.name"),
		},
		Session: Session{
			Secret:       konf.Bytes("session.secret"),
			TTL:          ttl,
			Cookie:       konf.String("session.cookie"),
			SecureCookie: konf.Bool("session.secure_cookie"),
		},
		Log: logger.Options{
			Level:  konf.String("log.level"),
			Format: konf.String("log.format"),
			File:   konf.String("log.file"),
		},
	}, nil
}
