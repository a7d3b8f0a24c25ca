package simulator

import "math/rand/v2"

// Rand is the random stream consumed by one simulated life.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Streams hands out one independent random stream per history index.
// Implementations must be safe for concurrent use.
type Streams interface {
	Stream(history int) Rand
}

// PCGStreams derives the stream for history i from a PCG generator seeded
// with (Seed, i). A given seed always reproduces the same run, whatever the
// worker count, and two runs with the same seed share random numbers history
// by history.
type PCGStreams struct {
	Seed uint64
}

// Stream implements Streams.
func (s PCGStreams) Stream(history int) Rand {
	return rand.New(rand.NewPCG(s.Seed, uint64(history)))
}

// NewSeed draws a fresh seed from the runtime's random source.
func NewSeed() uint64 {
	return rand.Uint64()
}
