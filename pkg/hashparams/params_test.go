package hashparams_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcollide/birthdayparty/pkg/hashparams"
)

func TestValidate(t *testing.T) {
	for name, tc := range map[string]struct {
		prefix, suffix, dpBits int
		wantErr                bool
	}{
		"valid-prefix-only":  {prefix: 8, suffix: 0, dpBits: 16, wantErr: false},
		"valid-prefix-suffix": {prefix: 4, suffix: 4, dpBits: 8, wantErr: false},
		"prefix-too-small":   {prefix: 0, suffix: 0, dpBits: 16, wantErr: true},
		"prefix-too-large":   {prefix: 33, suffix: 0, dpBits: 16, wantErr: true},
		"suffix-too-large":   {prefix: 8, suffix: 33, dpBits: 16, wantErr: true},
		"total-too-small":    {prefix: 1, suffix: 1, dpBits: 1, wantErr: true},
		"total-too-large":    {prefix: 20, suffix: 20, dpBits: 1, wantErr: true},
		"dp-bits-negative":   {prefix: 8, suffix: 0, dpBits: -1, wantErr: true},
		"dp-bits-too-large":  {prefix: 8, suffix: 0, dpBits: 65, wantErr: true},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := hashparams.Validate(tc.prefix, tc.suffix, tc.dpBits)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestMasksReference(t *testing.T) {
	// Reference masks, computed directly from the "leading dp_bits
	// bits of word0||word1 are zero" definition rather than from the
	// shift expressions under test.
	reference := func(dpBits int) (uint32, uint32) {
		var mask0, mask1 uint32
		for i := 0; i < dpBits && i < 32; i++ {
			mask0 |= 1 << (31 - i)
		}
		for i := 32; i < dpBits && i < 64; i++ {
			mask1 |= 1 << (63 - i)
		}
		return mask0, mask1
	}

	for _, dpBits := range []int{0, 1, 15, 16, 32, 33, 48, 64} {
		p, err := hashparams.Validate(8, 0, dpBits)
		require.NoError(t, err)
		wantMask0, wantMask1 := reference(dpBits)
		gotMask0, gotMask1 := p.Masks()
		require.Equal(t, wantMask0, gotMask0, "dpBits=%d mask0", dpBits)
		require.Equal(t, wantMask1, gotMask1, "dpBits=%d mask1", dpBits)
	}
}

func TestIsDistinguishedFrequency(t *testing.T) {
	const dpBits = 8
	p := hashparams.New(8, 0, dpBits)

	r := rand.New(rand.NewSource(42))
	const trials = 200000
	hits := 0
	state := make([]byte, p.TotalBytes())
	for i := 0; i < trials; i++ {
		r.Read(state)
		if p.IsDistinguished(state) {
			hits++
		}
	}

	prob := 1.0 / float64(int(1)<<dpBits)
	expected := float64(trials) * prob
	sigma := 3 * math.Sqrt(float64(trials)*prob*(1-prob))
	require.InDelta(t, expected, float64(hits), sigma)
}

func TestZeroDPBitsMatchesEveryState(t *testing.T) {
	p := hashparams.New(8, 0, 0)
	state := make([]byte, p.TotalBytes())
	for i := range state {
		state[i] = 0xFF
	}
	require.True(t, p.IsDistinguished(state))
}
