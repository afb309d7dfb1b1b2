package random

import (
	"math/rand/v2"
)

type fastSingleThreadedGenerator struct {
	*rand.Rand
}

// NewFastSingleThreadedGenerator creates a new SingleThreadedGenerator
// that is not suitable for cryptographic purposes. The generator is
// randomly seeded.
func NewFastSingleThreadedGenerator() SingleThreadedGenerator {
	return fastSingleThreadedGenerator{
		Rand: rand.New(
			rand.NewPCG(
				CryptoThreadSafeGenerator.Uint64(),
				CryptoThreadSafeGenerator.Uint64(),
			),
		),
	}
}

func (fastSingleThreadedGenerator) Read(p []byte) (int, error) {
	return mustCryptoRandRead(p)
}

// Int63n and Intn adapt math/rand/v2's Int64N/IntN onto the
// SingleThreadedGenerator interface's v1-style method names, so this
// generator satisfies the same interface as the crypto-backed one.
func (g fastSingleThreadedGenerator) Int63n(n int64) int64 {
	return g.Rand.Int64N(n)
}

func (g fastSingleThreadedGenerator) Intn(n int) int {
	return g.Rand.IntN(n)
}
