package catalog

import (
	"math"
	"math/rand/v2"

	"dewey/internal/ridset"
)

// allocateRid picks an unused rid from [0, 2^31). It starts from a random
// point and increments, skipping any rid already present in existing; if
// the probe wraps all the way back to its own starting point (the rid
// space is exhausted, astronomically unlikely in practice), it restarts
// from a fresh random point.
func allocateRid(existing *ridset.Set) int32 {
	for {
		start := rand.Int32()
		candidate := start
		for ridset.Contains(existing, candidate) {
			if candidate == math.MaxInt32 {
				candidate = 0
			} else {
				candidate++
			}
			if candidate == start {
				break
			}
		}
		if !ridset.Contains(existing, candidate) {
			return candidate
		}
	}
}
