package main

import (
	"fmt"
	"hash"
	"io"
	"log"
	"net"
	"os"
	"runtime"
	"strings"

	"github.com/mdouchement/itemtrack/internal/config"
	"github.com/mdouchement/itemtrack/internal/database"
	"github.com/mdouchement/itemtrack/internal/logger"
	"github.com/mdouchement/itemtrack/internal/server"
	"github.com/mdouchement/itemtrack/internal/server/session"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg string
)

func main() {
	c := &coral.Command{
		Use:     "itemtrack",
		Short:   "Multi-tenant item tracking server",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    coral.ExactArgs(0),
	}
	initCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(initCmd)

	reindexCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(reindexCmd)

	serverCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(serverCmd)

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func kdf(l int, k []byte) []byte {
	nhash := func() hash.Hash {
		h, err := blake2b.New256(nil)
		if err != nil {
			panic(err)
		}
		return h
	}

	payload := make([]byte, l)

	kdf := hkdf.New(nhash, k, nil, nil)
	_, err := io.ReadFull(kdf, payload)
	if err != nil {
		panic(err)
	}

	return payload
}

var (
	initCmd = &coral.Command{
		Use:   "init",
		Short: "Init the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := config.Load(cfg)
			if err != nil {
				return err
			}

			return database.Init(konf.Database)
		},
	}

	//
	reindexCmd = &coral.Command{
		Use:   "reindex",
		Short: "Reindex the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := config.Load(cfg)
			if err != nil {
				return err
			}

			if konf.Database.Driver != database.DriverStorm {
				return errors.Errorf("reindex is not supported by the %s driver", konf.Database.Driver)
			}
			return database.StormReIndex(konf.Database.Path, konf.Database.Codec)
		},
	}

	//
	//
	serverCmd = &coral.Command{
		Use:   "server",
		Short: "Start server",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := config.Load(cfg)
			if err != nil {
				return err
			}

			if len(konf.Session.Secret) == 0 {
				return errors.New("session secret not found")
			}

			l, err := logger.New(konf.Log)
			if err != nil {
				return errors.Wrap(err, "could not initialize logger")
			}

			db, err := database.Open(konf.Database)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			engine := server.EchoEngine(server.Controller{
				Version:           version,
				Database:          db,
				Logger:            l,
				NoRegistration:    konf.NoRegistration,
				AdminRegistration: konf.AdminRegistration,
				PagesPath:         konf.PagesPath,
				SessionSecret:     kdf(32, konf.Session.Secret),
				SessionTTL:        konf.Session.TTL,
				Cookie: session.CookieConfig{
					Name:   konf.Session.Cookie,
					Secure: konf.Session.SecureCookie,
				},
			})
			server.PrintRoutes(engine)

			address := konf.Address
			message := "could not run server"
			l.Infof("Server listening on %s", address)
			parts := strings.Split(address, ":")
			if len(parts) == 2 && parts[0] == "unix" {
				socketFile := parts[1]
				if _, err := os.Stat(socketFile); err == nil {
					l.Infof("Removing existing %s", socketFile)
					os.Remove(socketFile)
				}
				defer os.Remove(socketFile)
				listener, err := net.Listen(parts[0], socketFile)
				if err != nil {
					return err
				}
				return errors.Wrap(engine.Server.Serve(listener), message)
			}
			return errors.Wrap(engine.Start(address), message)
		},
	}
)
