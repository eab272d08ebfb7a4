// Package sampler picks a bounded, uniformly shuffled subset of decoded images.
package sampler

import (
	"math/rand/v2"
)

// Sampler shuffles with its own random source so tests can pin the sequence.
type Sampler struct {
	rng *rand.Rand
}

// New returns a Sampler drawing from rng. A nil rng uses the global source.
func New(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

// SampleAndShuffle returns the first min(maxItems, len(items)) elements of a
// uniform random permutation of items. The input slice is left untouched.
func SampleAndShuffle[T any](s *Sampler, items []T, maxItems int) []T {
	if maxItems < 0 {
		maxItems = 0
	}

	out := make([]T, len(items))
	copy(out, items)

	shuffle := rand.Shuffle
	if s != nil && s.rng != nil {
		shuffle = s.rng.Shuffle
	}
	shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})

	if maxItems < len(out) {
		out = out[:maxItems]
	}
	return out
}
