// Package eviction provides the two victim-selection strategies used by the
// result caches: recency (least recently recorded word goes first) and
// frequency (fewest records goes first, earliest first sighting breaks ties).
//
// The set of strategies is closed. Policy carries an unexported method so
// only this package can implement it.
package eviction

import "fmt"

// Kind identifies an eviction strategy.
type Kind int

const (
	Recency Kind = iota
	Frequency
)

func (k Kind) String() string {
	switch k {
	case Recency:
		return "recency"
	case Frequency:
		return "frequency"
	default:
		return "unknown"
	}
}

// Policy tracks exactly the words resident in the owning cache.
//
// Record is called on every insertion or repeated insertion of a word.
// Victim picks one word, drops its bookkeeping and returns it; calling it on
// an empty policy is a contract violation and panics. Forget drops the
// bookkeeping for a word removed by the cache itself.
type Policy interface {
	Record(word string)
	Victim() string
	Forget(word string)
	Len() int
	Kind() Kind
	sealed()
}

// New returns an empty policy of the given kind.
func New(kind Kind) Policy {
	switch kind {
	case Recency:
		return newRecency()
	case Frequency:
		return newFrequency()
	default:
		panic(fmt.Sprintf("eviction: unknown policy kind %d", int(kind)))
	}
}

func mustNotBeEmpty(p Policy) {
	if p.Len() == 0 {
		panic(fmt.Sprintf("eviction: Victim called on empty %s policy", p.Kind()))
	}
}
