// Command dc_user provisions a worker account: it generates a
// UUIDv4 bearer token, stores its bcrypt hash, and prints the token
// once (the only time it is ever recoverable).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/dcollide/birthdayparty/pkg/clock"
	"github.com/dcollide/birthdayparty/pkg/store"
	"github.com/dcollide/birthdayparty/pkg/userstore"
	"github.com/dcollide/birthdayparty/pkg/util"
)

// newToken is the util.UUIDGenerator used to mint bearer tokens. Held
// as a variable rather than called directly so it can be swapped for
// a deterministic generator in tests.
var newToken util.UUIDGenerator = uuid.NewRandom

func main() {
	dbPath := flag.String("db", "birthdayparty.db", "path to the SQLite database file")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: dc_user [--db path] <username>")
	}
	username := flag.Arg(0)

	tokenUUID, err := newToken()
	if err != nil {
		log.Fatal("Failed to generate token: ", err)
	}
	token := tokenUUID.String()

	tokenHash, err := userstore.HashToken(token)
	if err != nil {
		log.Fatal("Failed to hash token: ", err)
	}

	db, err := store.Open(*dbPath, clock.SystemClock)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.CreateUser(context.Background(), username, tokenHash); err != nil {
		log.Fatal("Failed to create user: ", err)
	}

	fmt.Printf("created user %q\ntoken: %s\n", username, token)
}
