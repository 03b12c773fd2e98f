package filter

import (
	"github.com/bits-and-blooms/bloom/v3"
)

// minBits keeps tiny word lists from producing a degenerate filter.
const minBits = 64

// OptimalBits returns the bit-array length that bounds the false-positive
// rate at fpRate once expectedWords distinct words are added.
func OptimalBits(expectedWords uint, fpRate float64) uint {
	if expectedWords == 0 {
		expectedWords = 1
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}
	m, _ := bloom.EstimateParameters(expectedWords, fpRate)
	return max(m, minBits)
}

// OptimalK is the hash-function count that minimizes false positives for
// the same parameters. Configured algorithm lists are compared against it
// at start-up.
func OptimalK(expectedWords uint, fpRate float64) uint {
	if expectedWords == 0 {
		expectedWords = 1
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}
	_, k := bloom.EstimateParameters(expectedWords, fpRate)
	return k
}
