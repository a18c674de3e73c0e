package main

import (
	"fmt"
	"log"

	"github.com/mdouchement/itemtrack/internal/database"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
)

var codec string

func main() {
	c := &coral.Command{
		Use:   "rmuser <database> <email-or-name>",
		Short: "Remove a user, its items and its sessions from the database",
		Args:  coral.ExactArgs(2),
		RunE: func(_ *coral.Command, args []string) error {
			//
			//
			fmt.Println("Opening", args[0])
			db, err := database.StormOpen(args[0], codec)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			// Fetch user
			user, err := db.FindUserByIdentifier(args[1])
			if err != nil {
				if db.IsNotFound(err) {
					fmt.Println("No account for this email or name")
					return nil
				}
				return errors.Wrap(err, "find user")
			}

			fmt.Println("User found:", user.ID)

			// Deleting user's items
			if err = db.DeleteItemsByUserID(user.ID); err != nil {
				return errors.Wrap(err, "delete items")
			}
			fmt.Println("Items removed")

			// Deleting user's sessions
			if err = db.DeleteSessionsByUserID(user.ID); err != nil {
				return errors.Wrap(err, "delete sessions")
			}
			fmt.Println("Sessions removed")

			// Delete user
			err = db.Delete(user)
			if err != nil && !db.IsNotFound(err) {
				return errors.Wrap(err, "delete user")
			}
			fmt.Println("User removed")

			return nil
		},
	}
	c.Flags().StringVarP(&codec, "codec", "", database.CodecMsgpack, "Storm codec (msgpack, cbor or binc)")

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}
