package walker_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcollide/birthdayparty/pkg/hashparams"
	"github.com/dcollide/birthdayparty/pkg/walker"
)

func TestRenderUsesUppercaseAPRange(t *testing.T) {
	state := []byte{0x00, 0x0F, 0xF0, 0xFF}
	buf := make([]byte, 2*len(state))
	walker.Render(state, buf)
	require.Equal(t, "AAAPPAPP", string(buf))
}

func TestStepMatchesManualShaComputation(t *testing.T) {
	p := hashparams.New(8, 0, 16)
	state := []byte{0x44, 0x43, 0x50, 0x4d, 0x4c, 0x42, 0x41, 0x49}

	ascii := make([]byte, p.AsciiBytes())
	walker.Render(state, ascii)
	digest := sha256.Sum256(ascii)

	want := digest[:8]
	got := walker.Next(p, state)
	require.Equal(t, want, got)
}

// TestTenStepsAreDeterministic pins S1 from the collision search's
// golden scenarios: the same starting state, iterated the same number
// of times under the same parameters, must always land on the same
// value.
func TestTenStepsAreDeterministic(t *testing.T) {
	p := hashparams.New(8, 0, 16)
	start, err := hex.DecodeString("4443504d4c424149")
	require.NoError(t, err)

	state := append([]byte(nil), start...)
	for i := 0; i < 10; i++ {
		walker.Step(p, state, state)
	}

	require.Equal(t, "53ed248c8e97e6c3", hex.EncodeToString(state))

	// Recomputed independently via Next, which writes each step into a
	// fresh buffer, to catch accidental aliasing bugs in Step's
	// in-place overwrite.
	other := append([]byte(nil), start...)
	for i := 0; i < 10; i++ {
		other = walker.Next(p, other)
	}
	require.Equal(t, other, state)
}

func TestTruncateKeepsPrefixAndSuffix(t *testing.T) {
	p := hashparams.New(4, 4, 0)
	var digest [32]byte
	for i := range digest {
		digest[i] = byte(i)
	}
	dst := make([]byte, p.TotalBytes())
	walker.Truncate(p, digest, dst)
	require.Equal(t, digest[:4], dst[:4])
	require.Equal(t, digest[28:], dst[4:])
}

func TestWalkToDistinguishedPointTerminatesOnPredicate(t *testing.T) {
	p := hashparams.New(8, 0, 4) // dp_bits=4 terminates quickly on average
	start := []byte{0x81, 2, 3, 4, 5, 6, 7, 8} // MSB set: start is not itself a DP

	end, steps := walker.WalkToDistinguishedPoint(p, start)
	require.True(t, p.IsDistinguished(end))
	require.Greater(t, steps, 0)

	// Re-walking the same number of steps manually must reach the same
	// state, confirming F is a pure function of its input.
	manual := append([]byte(nil), start...)
	for i := 0; i < steps; i++ {
		walker.Step(p, manual, manual)
	}
	require.Equal(t, end, manual)
}
