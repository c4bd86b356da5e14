package game

import (
	"math/rand"
	"time"
)

// Rand is the single source of randomness threaded through the core.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a seeded generator. A zero seed means "random".
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// rollRange returns a uniform integer in [r.Min, r.Max], swapping inverted bounds.
func rollRange(rng Rand, r Range) int {
	lo, hi := r.Min, r.Max
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// rollFloat returns a uniform float in [r.Min, r.Max].
func rollFloat(rng Rand, r FloatRange) float64 {
	lo, hi := r.Min, r.Max
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + rng.Float64()*(hi-lo)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
