// Package hashparams defines the process-wide immutable configuration
// of the truncated-hash collision search: how many bytes of the
// SHA-256 digest are kept, and how many leading zero bits qualify a
// state as a distinguished point.
package hashparams

import (
	"fmt"

	"github.com/dcollide/birthdayparty/pkg/util"
)

// Params is a process-wide immutable configuration for the truncated
// hash function and distinguished point predicate. It is the Go
// equivalent of the "HashParams" data model described for this search:
// comparable to how digest.Function in the teacher codebase bundles
// together the knobs that every Digest computed from it must agree on.
type Params struct {
	// PrefixBytes is the number of leading bytes kept from the full
	// SHA-256 digest.
	PrefixBytes int
	// SuffixBytes is the number of trailing bytes kept from the full
	// SHA-256 digest.
	SuffixBytes int
	// DPBits is the number of leading zero bits that qualify a
	// truncated state as a distinguished point.
	DPBits int

	totalBytes int
	asciiBytes int
	numWords   int
	mask0      uint32
	mask1      uint32
}

// New validates prefix_bytes, suffix_bytes and dp_bits against the
// constraints from the data model (1 <= prefix <= 32, 0 <= suffix <=
// 32, 5 <= prefix+suffix <= 27) and derives the DP bitmasks. It panics
// on invalid input via util.Must, following the teacher's convention
// for configuration that is wrong by construction rather than by bad
// runtime input.
func New(prefixBytes, suffixBytes, dpBits int) Params {
	return util.Must(Validate(prefixBytes, suffixBytes, dpBits))
}

// Validate performs the same checks as New, returning an error instead
// of panicking. This is used at the CLI boundary, where bad flags are
// an operator mistake rather than a programming error.
func Validate(prefixBytes, suffixBytes, dpBits int) (Params, error) {
	if prefixBytes < 1 || prefixBytes > 32 {
		return Params{}, fmt.Errorf("prefix_bytes must be in [1,32], got %d", prefixBytes)
	}
	if suffixBytes < 0 || suffixBytes > 32 {
		return Params{}, fmt.Errorf("suffix_bytes must be in [0,32], got %d", suffixBytes)
	}
	total := prefixBytes + suffixBytes
	if total < 5 || total > 27 {
		return Params{}, fmt.Errorf("prefix_bytes+suffix_bytes must be in [5,27], got %d", total)
	}
	if dpBits < 0 || dpBits > 64 {
		return Params{}, fmt.Errorf("dp_bits must be in [0,64], got %d", dpBits)
	}

	mask0, mask1 := dpMasks(dpBits)
	return Params{
		PrefixBytes: prefixBytes,
		SuffixBytes: suffixBytes,
		DPBits:      dpBits,
		totalBytes:  total,
		asciiBytes:  2 * total,
		numWords:    (total + 3) / 4,
		mask0:       mask0,
		mask1:       mask1,
	}, nil
}

// dpMasks derives (mask0, mask1) so that state&mask==0 iff the leading
// dp_bits bits of the 64-bit (word0 || word1) value are zero. Shifts
// saturate to mask=0 at dp_bits=0, per the kernel contract.
func dpMasks(dpBits int) (uint32, uint32) {
	switch {
	case dpBits <= 0:
		return 0, 0
	case dpBits <= 32:
		return 0xFFFFFFFF << uint(32-dpBits), 0
	case dpBits < 64:
		return 0xFFFFFFFF, 0xFFFFFFFF << uint(64-dpBits)
	default:
		return 0xFFFFFFFF, 0xFFFFFFFF
	}
}

// TotalBytes is prefix_bytes+suffix_bytes, the length of a State.
func (p Params) TotalBytes() int { return p.totalBytes }

// AsciiBytes is the length of the ASCII rendering of a State, always
// 2*TotalBytes().
func (p Params) AsciiBytes() int { return p.asciiBytes }

// NumWords is ceil(TotalBytes()/4), the number of big-endian 32-bit
// words a State unpacks into.
func (p Params) NumWords() int { return p.numWords }

// Masks returns the (mask0, mask1) pair used by the DP predicate.
func (p Params) Masks() (uint32, uint32) { return p.mask0, p.mask1 }

// IsDistinguished reports whether state (a TotalBytes()-long byte
// string) satisfies the distinguished point predicate: its first word
// ANDed with mask0 is zero and its second word (if any) ANDed with
// mask1 is zero.
func (p Params) IsDistinguished(state []byte) bool {
	w0, w1 := firstTwoWords(state)
	return w0&p.mask0 == 0 && w1&p.mask1 == 0
}

// firstTwoWords reads the first two big-endian 32-bit words out of
// state, treating any bytes beyond the slice's length as zero. This is
// safe for TotalBytes() as small as 5 (one full word plus one partial
// word).
func firstTwoWords(state []byte) (uint32, uint32) {
	var w [2]uint32
	for i := 0; i < 8 && i < len(state); i++ {
		w[i/4] = w[i/4]<<8 | uint32(state[i])
	}
	// Words that ran out of input bytes before reaching 4 bytes were
	// left shifted only partially; pad them out to a full 32 bits so
	// the "leading zero bits" interpretation is well defined even for
	// TotalBytes() < 8.
	for i := len(state); i < 8; i++ {
		w[i/4] <<= 8
	}
	return w[0], w[1]
}
