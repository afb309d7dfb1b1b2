// Package finalizer recovers a collision witness from a pre-collision:
// given two starts that walked to the same distinguished point, it
// rewalks both chains to find the first state at which they converge.
// The algorithm is grounded on the same equalise-then-walk-together
// technique used by findExactCollision in the retrieval pack's Pollard
// rho simulation, generalised from a single-difficulty toy to
// Params-driven chains.
package finalizer

import (
	"github.com/dcollide/birthdayparty/pkg/apierr"
	"github.com/dcollide/birthdayparty/pkg/hashparams"
	"github.com/dcollide/birthdayparty/pkg/walker"
)

// Witness is a collision: two distinct states whose images under F
// coincide.
type Witness struct {
	A, B []byte
}

// Finalize walks startA and startB to their shared distinguished point
// and locates the first pair of states at which the two chains
// converge. It returns apierr.KindNoCollision if the two starts turn
// out to be on the same chain (the "robin hood" case) or are equal.
func Finalize(p hashparams.Params, startA, startB []byte) (Witness, error) {
	if bytesEqual(startA, startB) {
		return Witness{}, apierr.Newf(apierr.KindNoCollision, "start_a and start_b are identical")
	}

	_, lenA := walker.WalkToDistinguishedPoint(p, startA)
	_, lenB := walker.WalkToDistinguishedPoint(p, startB)

	curA := clone(startA)
	curB := clone(startB)

	// Advance the longer chain so both are equidistant from the
	// shared distinguished point.
	if lenA > lenB {
		for i := 0; i < lenA-lenB; i++ {
			walker.Step(p, curA, curA)
		}
	} else {
		for i := 0; i < lenB-lenA; i++ {
			walker.Step(p, curB, curB)
		}
	}

	steps := lenA
	if lenB < steps {
		steps = lenB
	}

	for i := 0; i < steps; i++ {
		prevA, prevB := clone(curA), clone(curB)
		walker.Step(p, curA, curA)
		walker.Step(p, curB, curB)
		if bytesEqual(curA, curB) {
			if bytesEqual(prevA, prevB) {
				return Witness{}, apierr.Newf(apierr.KindNoCollision, "chains merged before diverging; starts were on the same chain")
			}
			return Witness{A: prevA, B: prevB}, nil
		}
	}

	return Witness{}, apierr.Newf(apierr.KindNoCollision, "chains never converged within the expected number of steps")
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
