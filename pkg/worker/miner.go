// Package worker is the mining loop that drives a kernel.Dispatch and
// reports its distinguished points to a collision server. It is
// grounded on the original implementation's slow_example_miner.py:
// the same prepare->walk->collect->report cycle, generalised from a
// single Python loop to W parallel lanes batched through pkg/kernel,
// and from a blocking requests.post to a bounded-concurrency,
// backoff-retrying HTTP client.
package worker

import (
	"context"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dcollide/birthdayparty/pkg/hashparams"
	"github.com/dcollide/birthdayparty/pkg/kernel"
	"github.com/dcollide/birthdayparty/pkg/random"
)

// Config controls one Miner's behaviour.
type Config struct {
	ServerURL string
	Username  string
	UserToken string

	Lanes            int // W
	StepsPerDispatch int // S
	DPBufferSize     int // M
	MaxInFlight      int // bounded concurrent POSTs

	Workers int // goroutines used by the kernel dispatch itself
}

// Miner owns one kernel.Dispatch and reports the distinguished points
// it finds to a Reporter.
type Miner struct {
	cfg      Config
	params   hashparams.Params
	dispatch *kernel.Dispatch
	reporter *Reporter
	gen      random.SingleThreadedGenerator

	inFlight atomic.Int32
}

// New constructs a Miner. gen seeds both the lanes' initial starts and
// the dp_buffer's stolen-start pool, per the per-dispatch protocol.
func New(cfg Config, params hashparams.Params, reporter *Reporter, gen random.SingleThreadedGenerator) *Miner {
	m := &Miner{
		cfg:      cfg,
		params:   params,
		dispatch: kernel.New(params, cfg.Lanes, cfg.DPBufferSize, cfg.Workers),
		reporter: reporter,
		gen:      gen,
	}
	for i := 0; i < cfg.Lanes; i++ {
		start := make([]byte, params.TotalBytes())
		gen.Read(start)
		start[0] |= 0x80 // avoid a degenerate zero-length chain on the very first lane seed
		m.dispatch.SeedLane(i, start)
	}
	return m
}

// Run drives dispatches until ctx is cancelled. Each cycle: re-seed
// the dp_buffer, walk every lane S steps, and fire off a bounded,
// non-blocking report of whatever distinguished points were found —
// if the in-flight submission queue is full, this cycle's results are
// dropped and mining continues rather than stalling on a slow server,
// matching the backpressure rule in the concurrency model.
func (m *Miner) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for ctx.Err() == nil {
		m.dispatch.PrepareBuffers(m.gen)
		results, overflowed := m.dispatch.Run(ctx, m.cfg.StepsPerDispatch)
		if overflowed {
			log.Printf("worker %s: dp_count exceeded the dp_buffer size; consider raising dp_bits", m.cfg.Username)
		}
		if len(results) == 0 {
			continue
		}

		if m.inFlight.Load() >= int32(m.cfg.MaxInFlight) {
			log.Printf("worker %s: submission queue full, dropping %d results this cycle", m.cfg.Username, len(results))
			continue
		}

		m.inFlight.Add(1)
		batch := results
		group.Go(func() error {
			defer m.inFlight.Add(-1)
			if err := m.reporter.Report(groupCtx, batch); err != nil {
				if !isRetryable(err) {
					return err
				}
				log.Printf("worker %s: report failed, continuing: %s", m.cfg.Username, err)
			}
			return nil
		})
	}
	return group.Wait()
}

// jitteredBackoff returns a delay for retry attempt n (0-based) with
// exponential growth and up to 20% jitter, so many workers retrying at
// once don't synchronise their hammering of a recovering server.
func jitteredBackoff(n int, base time.Duration, max time.Duration) time.Duration {
	d := base << n
	if d > max || d <= 0 {
		d = max
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 5))
	return d + jitter
}
