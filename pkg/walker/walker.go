// Package walker implements the iteration function F that every
// worker, the collision server's validation path, and the finalizer
// must agree on bit-exactly: F(x) = truncate(SHA256(ascii_hex(x))).
//
// Chains are never materialised as a slice of states; callers that
// need a chain walk it one State at a time with Step, exactly as the
// distinguished-point predicate only ever needs to see the current
// state.
package walker

import (
	"crypto/sha256"

	"github.com/dcollide/birthdayparty/pkg/hashparams"
)

// asciiBase is added to a nibble (0-15) to get the ASCII character
// used to render it: 'A' + nibble, so every rendered byte is two characters in
// ['A'..'P']. This keeps the rendered message independent of the
// input's value distribution and, combined with a fixed-size State,
// means the SHA-256 padding is known statically.
const asciiBase = 'A'

// Render writes the ASCII hex-like encoding of state into a caller
// supplied buffer. buf must be exactly 2*len(state) bytes long (i.e.
// Params.AsciiBytes()). Each byte of state becomes two characters,
// high nibble first.
func Render(state []byte, buf []byte) {
	for i, b := range state {
		buf[2*i] = asciiBase + (b >> 4)
		buf[2*i+1] = asciiBase + (b & 0x0F)
	}
}

// Step applies F once: render state to ASCII, hash it with SHA-256,
// and truncate the digest according to p. dst must be p.TotalBytes()
// long; it is overwritten with the next state. dst and state may
// overlap only if they are the same slice (in-place stepping).
func Step(p hashparams.Params, state []byte, dst []byte) {
	var ascii [2 * 32]byte // 2*27 max, generously sized for any valid Params
	asciiMsg := ascii[:p.AsciiBytes()]
	Render(state, asciiMsg)

	digest := sha256.Sum256(asciiMsg)
	Truncate(p, digest, dst)
}

// Truncate keeps the first p.PrefixBytes and last p.SuffixBytes bytes
// of a full 32-byte SHA-256 digest, concatenated in that order, and
// writes the result (p.TotalBytes() bytes) into dst.
func Truncate(p hashparams.Params, digest [32]byte, dst []byte) {
	n := copy(dst, digest[:p.PrefixBytes])
	copy(dst[n:], digest[32-p.SuffixBytes:])
}

// Next is a convenience wrapper around Step that allocates the
// returned state. Hot paths (the kernel's per-lane loop) use Step
// directly against a reused buffer instead.
func Next(p hashparams.Params, state []byte) []byte {
	dst := make([]byte, p.TotalBytes())
	Step(p, state, dst)
	return dst
}

// WalkToDistinguishedPoint repeatedly applies F to a copy of start
// until the distinguished point predicate holds, returning the
// resulting state and the number of applications of F. It is used by
// the finalizer to measure chain length and by tests to build golden
// vectors; workers use the batched kernel instead.
func WalkToDistinguishedPoint(p hashparams.Params, start []byte) (state []byte, steps int) {
	state = append([]byte(nil), start...)
	for !p.IsDistinguished(state) {
		Step(p, state, state)
		steps++
	}
	return state, steps
}
