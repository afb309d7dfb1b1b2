// Command dc_mine runs a worker: it walks many parallel Pollard-rho
// chains looking for distinguished points and reports them to a
// collision server.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/dcollide/birthdayparty/pkg/hashparams"
	"github.com/dcollide/birthdayparty/pkg/program"
	"github.com/dcollide/birthdayparty/pkg/random"
	"github.com/dcollide/birthdayparty/pkg/worker"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080/submit_work", "collision server submit_work URL")
	prefixBytes := flag.Int("prefix-bytes", 8, "number of leading SHA-256 digest bytes kept")
	suffixBytes := flag.Int("suffix-bytes", 0, "number of trailing SHA-256 digest bytes kept")
	dpBits := flag.Int("dp-bits", 16, "number of leading zero bits required of a distinguished point")
	lanes := flag.Int("lanes", 1<<14, "number of resident walker lanes (W)")
	steps := flag.Int("steps", 1024, "number of F applications per dispatch (S)")
	dpBuffer := flag.Int("dp-buffer", 1024, "maximum distinguished points reported per dispatch (M)")
	maxInFlight := flag.Int("max-in-flight", 4, "maximum concurrent submission requests")
	flag.Parse()

	if flag.NArg() != 2 {
		log.Fatal("usage: dc_mine [flags] <username> <usertoken>")
	}
	username, userToken := flag.Arg(0), flag.Arg(1)

	params, err := hashparams.Validate(*prefixBytes, *suffixBytes, *dpBits)
	if err != nil {
		log.Fatal("Invalid hash parameters: ", err)
	}

	cfg := worker.Config{
		ServerURL:        *serverURL,
		Username:         username,
		UserToken:        userToken,
		Lanes:            *lanes,
		StepsPerDispatch: *steps,
		DPBufferSize:     *dpBuffer,
		MaxInFlight:      *maxInFlight,
	}

	program.RunMain(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		gen := random.NewFastSingleThreadedGenerator()
		reporter := worker.NewReporter(*serverURL, username, userToken)
		m := worker.New(cfg, params, reporter, gen)

		siblingsGroup.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
			return m.Run(ctx)
		})
		return nil
	})
}
