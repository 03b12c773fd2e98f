// Package filter implements the membership filter that fronts every
// dictionary: a fixed-size bit array populated once from the word list,
// answering "possibly present" or "definitely absent".
//
// A word is added by setting bit h(word) mod m for every configured hash
// function; it is reported as possibly present only when all of those bits
// are set. Bits are never cleared, so false negatives cannot occur while
// false positives grow with the fill ratio.
//
// Filter is not safe for concurrent use. The owning dictionary index
// serializes access.
package filter

import (
	"math"
	"strings"

	"github.com/bits-and-blooms/bitset"

	apperrors "github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/errors"
)

// Filter is a bloom-style membership filter with named hash functions.
type Filter struct {
	bits   *bitset.BitSet
	m      uint
	names  []string
	hashes []HashFunc
	count  uint64
}

// New creates a filter of m bits using the named hash algorithms, in order.
// Unknown or repeated names fail here rather than on first use.
func New(m uint, names ...string) (*Filter, error) {
	if m == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidFilterSize, "bit array length must be positive")
	}
	if err := CheckAlgorithms(names...); err != nil {
		return nil, err
	}
	f := &Filter{
		bits:   bitset.New(m),
		m:      m,
		names:  make([]string, 0, len(names)),
		hashes: make([]HashFunc, 0, len(names)),
	}
	for _, name := range names {
		key, _ := Canonical(name)
		f.names = append(f.names, key)
		f.hashes = append(f.hashes, algorithms[key])
	}
	return f, nil
}

// Add sets the bits for word.
func (f *Filter) Add(word string) {
	for _, h := range f.hashes {
		f.bits.Set(f.index(h, word))
	}
	f.count++
}

// Contains returns false only when word was never added.
func (f *Filter) Contains(word string) bool {
	for _, h := range f.hashes {
		if !f.bits.Test(f.index(h, word)) {
			return false
		}
	}
	return true
}

func (f *Filter) index(h HashFunc, word string) uint {
	return uint(h(word) % uint64(f.m))
}

// Cap returns the bit-array length m.
func (f *Filter) Cap() uint {
	return f.m
}

// K returns the number of hash functions.
func (f *Filter) K() int {
	return len(f.hashes)
}

// Algorithms returns the hash algorithm names in probe order.
func (f *Filter) Algorithms() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Count returns the number of Add calls, duplicates included.
func (f *Filter) Count() uint64 {
	return f.count
}

// FillRatio returns the share of bits currently set.
func (f *Filter) FillRatio() float64 {
	return float64(f.bits.Count()) / float64(f.m)
}

// EstimatedFalsePositiveRate returns the probability that an absent word
// probes only set bits, given the current fill.
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	return math.Pow(f.FillRatio(), float64(len(f.hashes)))
}

// String renders the bit array as 0/1 characters up to the highest set bit.
func (f *Filter) String() string {
	var sb strings.Builder
	last, ok := lastSet(f.bits)
	if !ok {
		return ""
	}
	sb.Grow(int(last) + 1)
	for i := uint(0); i <= last; i++ {
		if f.bits.Test(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func lastSet(b *bitset.BitSet) (uint, bool) {
	var last uint
	found := false
	for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
		last = i
		found = true
	}
	return last, found
}
