// Package kernel simulates the GPU walker kernel's per-dispatch
// contract on the CPU: W resident lanes, each repeatedly applying F for
// S steps, swapping onto a fresh start whenever a lane's state becomes
// a distinguished point. The design note in the source repo observes
// that the WGSL and OpenCL kernels must be behaviourally identical;
// this Go implementation is a third, goroutine-parallel backend held
// to the same bit-exactness requirement, built on pkg/walker's F.
package kernel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/dcollide/birthdayparty/pkg/hashparams"
	"github.com/dcollide/birthdayparty/pkg/random"
	"github.com/dcollide/birthdayparty/pkg/walker"
)

// Lane is one resident walk slot. State is the lane's current position
// in its chain; Start is the seed that produced the chain the lane is
// currently on. Both are reused across dispatches.
type Lane struct {
	State []byte
	Start []byte
}

// dpSlot is one element of the shared dp_buffer. It plays both roles
// described in the design notes: before a dispatch, A holds a random
// seed a lane may steal as a fresh start; after a lane claims the
// slot, A holds the outgoing "start" and B the outgoing "dp".
type dpSlot struct {
	A []byte
	B []byte
}

// Result is one emitted (start, dp) pair, copied out of the dp_buffer
// so it outlives the next call to PrepareBuffers.
type Result struct {
	Start []byte
	DP    []byte
}

// Dispatch holds the persistent, device-side state of one walker
// kernel instance: W lanes and an M-slot dp_buffer, plus the atomic
// dp_count described in the per-dispatch protocol.
type Dispatch struct {
	Params hashparams.Params

	lanes    []Lane
	dpBuffer []dpSlot
	dpCount  atomic.Uint32
	workers  int
}

// New allocates a Dispatch with w lanes and an m-slot dp_buffer. Lane
// state is left zeroed; call SeedLane for every lane before the first
// Run. workers bounds the number of goroutines used to process
// lanes in parallel; 0 selects runtime.GOMAXPROCS(0).
func New(p hashparams.Params, w, m, workers int) *Dispatch {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	d := &Dispatch{
		Params:   p,
		lanes:    make([]Lane, w),
		dpBuffer: make([]dpSlot, m),
		workers:  workers,
	}
	total := p.TotalBytes()
	for i := range d.lanes {
		d.lanes[i] = Lane{State: make([]byte, total), Start: make([]byte, total)}
	}
	for i := range d.dpBuffer {
		d.dpBuffer[i] = dpSlot{A: make([]byte, total), B: make([]byte, total)}
	}
	return d
}

// NumLanes returns W.
func (d *Dispatch) NumLanes() int { return len(d.lanes) }

// MaxDPsPerCall returns M.
func (d *Dispatch) MaxDPsPerCall() int { return len(d.dpBuffer) }

// SeedLane sets lane i onto a fresh chain starting at start.
func (d *Dispatch) SeedLane(i int, start []byte) {
	copy(d.lanes[i].Start, start)
	copy(d.lanes[i].State, start)
}

// PrepareBuffers resets dp_count to zero and re-seeds every dp_buffer
// slot's random-start half with fresh bytes from gen, setting the MSB
// of each so a freshly stolen start cannot itself already be a
// distinguished point (which would otherwise produce a length-0
// chain). This must be called before every Run.
func (d *Dispatch) PrepareBuffers(gen random.SingleThreadedGenerator) {
	d.dpCount.Store(0)
	for i := range d.dpBuffer {
		gen.Read(d.dpBuffer[i].A)
		d.dpBuffer[i].A[0] |= 0x80
	}
}

// Run executes S steps of F across every lane, in parallel across
// d.workers goroutines, and returns the (start, dp) pairs emitted
// during this dispatch plus whether dp_count exceeded M (in which case
// the host should consider raising dp_bits). Run respects ctx
// cancellation between chunks of lanes but always finishes any chunk
// it has started, so a lane's (state, start) invariant is never left
// half-updated.
func (d *Dispatch) Run(ctx context.Context, steps int) (results []Result, overflowed bool) {
	numLanes := len(d.lanes)
	chunk := (numLanes + d.workers - 1) / d.workers
	if chunk == 0 {
		chunk = numLanes
	}

	var wg sync.WaitGroup
	for start := 0; start < numLanes; start += chunk {
		end := start + chunk
		if end > numLanes {
			end = numLanes
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			d.runLaneRange(lo, hi, steps)
		}(start, end)
	}
	wg.Wait()

	count := d.dpCount.Load()
	emitted := int(count)
	if emitted > len(d.dpBuffer) {
		overflowed = true
		emitted = len(d.dpBuffer)
	}
	results = make([]Result, emitted)
	for i := 0; i < emitted; i++ {
		results[i] = Result{
			Start: append([]byte(nil), d.dpBuffer[i].A...),
			DP:    append([]byte(nil), d.dpBuffer[i].B...),
		}
	}
	return results, overflowed
}

// runLaneRange runs steps applications of F across lanes[lo:hi],
// handling DP detection and the dp_buffer swap per lane. This is the
// kernel's per-lane loop; lanes in disjoint ranges never touch the
// same dp_buffer slot because each claims its index via an atomic
// fetch-and-add, so this function needs no locking beyond that.
func (d *Dispatch) runLaneRange(lo, hi int, steps int) {
	p := d.Params
	for s := 0; s < steps; s++ {
		for i := lo; i < hi; i++ {
			lane := &d.lanes[i]
			walker.Step(p, lane.State, lane.State)
			if !p.IsDistinguished(lane.State) {
				continue
			}

			idx := d.dpCount.Add(1) - 1
			if int(idx) >= len(d.dpBuffer) {
				// Overflow: the DP is dropped and the lane
				// continues walking from it.
				continue
			}

			slot := &d.dpBuffer[idx]
			newStart := append([]byte(nil), slot.A...)
			copy(slot.A, lane.Start)
			copy(slot.B, lane.State)

			lane.Start = newStart
			lane.State = append([]byte(nil), newStart...)
		}
	}
}
