// Package cache holds resolved words in a fixed-capacity set whose
// eviction order is delegated to an eviction.Policy.
package cache

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/dictionary/eviction"
)

// ResultCache is a bounded set of words. Contains is a pure lookup; only
// Add feeds the policy. ResultCache is not safe for concurrent use.
type ResultCache struct {
	capacity int
	words    map[string]struct{}
	policy   eviction.Policy
}

// New creates a cache holding at most capacity words, evicted by a policy
// of the given kind.
func New(capacity int, kind eviction.Kind) *ResultCache {
	if capacity <= 0 {
		panic(fmt.Sprintf("cache: capacity must be positive, got %d", capacity))
	}
	return &ResultCache{
		capacity: capacity,
		words:    make(map[string]struct{}, capacity),
		policy:   eviction.New(kind),
	}
}

// Contains reports whether word is cached.
func (c *ResultCache) Contains(word string) bool {
	_, ok := c.words[word]
	return ok
}

// Add inserts word, evicting one victim first when the cache is full. A
// word already present is only recorded again. The evicted word, if any,
// is returned.
func (c *ResultCache) Add(word string) (evicted string, didEvict bool) {
	if _, ok := c.words[word]; ok {
		c.policy.Record(word)
		return "", false
	}
	if len(c.words) >= c.capacity {
		evicted = c.policy.Victim()
		delete(c.words, evicted)
		didEvict = true
	}
	c.words[word] = struct{}{}
	c.policy.Record(word)
	return evicted, didEvict
}

// Remove drops word and its policy bookkeeping. It reports whether the word
// was present.
func (c *ResultCache) Remove(word string) bool {
	if _, ok := c.words[word]; !ok {
		return false
	}
	delete(c.words, word)
	c.policy.Forget(word)
	return true
}

// Len returns the number of cached words.
func (c *ResultCache) Len() int {
	return len(c.words)
}

// Cap returns the capacity.
func (c *ResultCache) Cap() int {
	return c.capacity
}

// Kind returns the eviction strategy in use.
func (c *ResultCache) Kind() eviction.Kind {
	return c.policy.Kind()
}
