package kernel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcollide/birthdayparty/pkg/hashparams"
	"github.com/dcollide/birthdayparty/pkg/kernel"
	"github.com/dcollide/birthdayparty/pkg/random"
	"github.com/dcollide/birthdayparty/pkg/walker"
)

func TestRunEmitsOnlyGenuineDistinguishedPoints(t *testing.T) {
	p := hashparams.New(8, 0, 6) // shallow difficulty so DPs show up within a short dispatch
	d := kernel.New(p, 64, 256, 2)

	gen := random.NewFastSingleThreadedGenerator()
	start := make([]byte, p.TotalBytes())
	for i := 0; i < d.NumLanes(); i++ {
		gen.Read(start)
		start[0] |= 0x80 // a seed must not itself be a distinguished point
		d.SeedLane(i, start)
	}
	d.PrepareBuffers(gen)

	// 64 lanes x 128 steps at dp_bits=6 yields about 128 DPs, well
	// within the 256-slot dp_buffer.
	results, overflowed := d.Run(context.Background(), 128)
	require.False(t, overflowed)
	require.NotEmpty(t, results)

	for _, r := range results {
		require.True(t, p.IsDistinguished(r.DP), "dp %x must satisfy the distinguished point predicate", r.DP)
		// The reported dp must actually be reachable from the
		// reported start by walking F.
		end, _ := walker.WalkToDistinguishedPoint(p, r.Start)
		require.Equal(t, end, r.DP)
	}
}

func TestPrepareBuffersSetsMSBOnStolenStarts(t *testing.T) {
	p := hashparams.New(8, 0, 6)
	d := kernel.New(p, 64, 256, 2)
	gen := random.NewFastSingleThreadedGenerator()

	start := make([]byte, p.TotalBytes())
	for i := 0; i < d.NumLanes(); i++ {
		gen.Read(start)
		start[0] |= 0x80 // lane seeds follow the same MSB rule as stolen starts
		d.SeedLane(i, start)
	}
	d.PrepareBuffers(gen)

	results, _ := d.Run(context.Background(), 4096)
	require.NotEmpty(t, results)
	for _, r := range results {
		require.NotZero(t, r.Start[0]&0x80, "stolen start %x must have its MSB set", r.Start)
	}
}

func TestDPOverflowIsReported(t *testing.T) {
	p := hashparams.New(8, 0, 1) // dp_bits=1: roughly half of states qualify
	d := kernel.New(p, 256, 4, 4) // tiny dp_buffer, guaranteed to overflow

	gen := random.NewFastSingleThreadedGenerator()
	start := make([]byte, p.TotalBytes())
	for i := 0; i < d.NumLanes(); i++ {
		gen.Read(start)
		d.SeedLane(i, start)
	}
	d.PrepareBuffers(gen)

	_, overflowed := d.Run(context.Background(), 32)
	require.True(t, overflowed)
}
