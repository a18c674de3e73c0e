package main

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"

	"github.com/asdine/storm/v3"
	"github.com/mdouchement/itemtrack/internal/database"
	"github.com/mdouchement/itemtrack/internal/model"
	"github.com/mdouchement/itemtrack/pkg/stormsql"
	"github.com/mdouchement/itemtrack/pkg/structs"
	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"
)

// go run tools/console/main.go itemtrack.db " SELECT count(*) FROM items WHERE UserID = 'f2a98ab0-2c40-42b4-be08-da3b771be935' AND UpdatedAt > '2019-02-16 20:52:55';  "
// go run tools/console/main.go itemtrack.db " SELECT Title, Status FROM items WHERE Title LIKE '%report%' ORDER BY CreatedAt DESC LIMIT 10" --format litter

var (
	codec  string
	format string
)

func main() {
	c := &cobra.Command{
		Use:   "console <database> <query>",
		Short: "SQL console for itemtrack database",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			//
			//
			sc, err := stormsql.ParseSelect(args[1], table)
			if err != nil {
				return err
			}

			//
			//
			fmt.Println("Opening", args[0])
			db, err := database.StormConnect(args[0], codec)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			//
			// Prepare request
			//

			query := db.Select(sc.Matcher)
			if sc.Skip > 0 {
				query.Skip(sc.Skip)
			}
			if sc.Limit > 0 {
				query.Limit(sc.Limit)
			}
			if len(sc.OrderBy) > 0 {
				query.OrderBy(sc.OrderBy...)
				if sc.OrderByReversed {
					query.Reverse()
				}
			}

			// Execute

			if sc.Count {
				return count(sc, query)
			}

			return list(sc, query)
		},
	}
	c.Flags().StringVarP(&codec, "codec", "", database.CodecMsgpack, "Storm codec (msgpack, cbor or binc)")
	c.Flags().StringVarP(&format, "format", "f", "json", "Output format (json or litter)")

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

// table returns an empty record of the given table.
func table(name string) (any, error) {
	switch name {
	case "users":
		return &model.User{}, nil
	case "items":
		return &model.Item{}, nil
	case "sessions":
		return &model.Session{}, nil
	default:
		return nil, errors.Errorf("unknown tablename: %s", name)
	}
}

func count(sc *stormsql.SelectClause, query storm.Query) error {
	record, err := table(sc.Tablename)
	if err != nil {
		return err
	}

	n, err := query.Count(record)
	if err != nil {
		return errors.Wrap(err, "could not perform query")
	}

	fmt.Println("Count:", n)

	return nil
}

func list(sc *stormsql.SelectClause, query storm.Query) error {
	record, err := table(sc.Tablename)
	if err != nil {
		return err
	}

	// Slice of the table's record type.
	records := reflect.New(reflect.SliceOf(reflect.TypeOf(record)))

	err = query.Find(records.Interface())
	if err == storm.ErrNotFound {
		fmt.Println("[]")
		return nil
	}

	if err != nil {
		return errors.Wrap(err, "could not perform query")
	}

	rows := records.Elem()
	projections := make([]map[string]any, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		projection, err := structs.Project(rows.Index(i).Interface(), sc.SelectedFields...)
		if err != nil {
			return errors.Wrap(err, "could not select fields")
		}
		projections = append(projections, projection)
	}

	return dump(projections)
}

func dump(v any) error {
	switch format {
	case "litter":
		fmt.Println(litter.Sdump(v))
		return nil
	case "json":
		d, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errors.Wrap(err, "could not render records")
		}
		fmt.Println(string(d))
		return nil
	default:
		return errors.Errorf("unknown format: %s", format)
	}
}
