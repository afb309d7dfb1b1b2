// Command dc_server runs the collision server: it authenticates
// worker submissions, persists distinguished points, detects
// pre-collisions, and serves the dashboard.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/dcollide/birthdayparty/pkg/clock"
	"github.com/dcollide/birthdayparty/pkg/hashparams"
	"github.com/dcollide/birthdayparty/pkg/httpserver"
	"github.com/dcollide/birthdayparty/pkg/program"
	"github.com/dcollide/birthdayparty/pkg/store"
)

func main() {
	host := flag.String("host", "0.0.0.0", "address to listen on")
	port := flag.String("port", "8080", "port to listen on")
	dbPath := flag.String("db", "birthdayparty.db", "path to the SQLite database file")
	prefixBytes := flag.Int("prefix-bytes", 8, "number of leading SHA-256 digest bytes kept")
	suffixBytes := flag.Int("suffix-bytes", 0, "number of trailing SHA-256 digest bytes kept")
	dpBits := flag.Int("dp-bits", 16, "number of leading zero bits required of a distinguished point")
	flag.Parse()

	params, err := hashparams.Validate(*prefixBytes, *suffixBytes, *dpBits)
	if err != nil {
		log.Fatal("Invalid hash parameters: ", err)
	}

	program.RunMain(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		db, err := store.Open(*dbPath, clock.SystemClock)
		if err != nil {
			return err
		}
		dependenciesGroup.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
			<-ctx.Done()
			return db.Close()
		})

		server := httpserver.New(params, db, clock.SystemClock)
		httpserver.Serve(*host+":"+*port, server.NewRouter(), siblingsGroup)
		log.Printf("dc_server listening on %s:%s (db=%s, prefix_bytes=%d suffix_bytes=%d dp_bits=%d)",
			*host, *port, *dbPath, *prefixBytes, *suffixBytes, *dpBits)
		return nil
	})
}
