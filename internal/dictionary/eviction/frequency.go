package eviction

import "container/heap"

type freqEntry struct {
	word  string
	count int
	seq   uint64 // first-sighting order
	index int
}

// freqHeap is a min-heap on (count, seq).
type freqHeap []*freqEntry

func (h freqHeap) Len() int { return len(h) }

func (h freqHeap) Less(i, j int) bool {
	if h[i].count != h[j].count {
		return h[i].count < h[j].count
	}
	return h[i].seq < h[j].seq
}

func (h freqHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *freqHeap) Push(x any) {
	e := x.(*freqEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *freqHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// frequency counts records per word. A word that is evicted or forgotten
// and later recorded again starts over at count 1 with a fresh sequence.
type frequency struct {
	entries map[string]*freqEntry
	heap    freqHeap
	nextSeq uint64
}

func newFrequency() *frequency {
	return &frequency{entries: make(map[string]*freqEntry)}
}

func (f *frequency) Record(word string) {
	if e, ok := f.entries[word]; ok {
		e.count++
		heap.Fix(&f.heap, e.index)
		return
	}
	e := &freqEntry{word: word, count: 1, seq: f.nextSeq}
	f.nextSeq++
	f.entries[word] = e
	heap.Push(&f.heap, e)
}

func (f *frequency) Victim() string {
	mustNotBeEmpty(f)
	e := heap.Pop(&f.heap).(*freqEntry)
	delete(f.entries, e.word)
	return e.word
}

func (f *frequency) Forget(word string) {
	if e, ok := f.entries[word]; ok {
		heap.Remove(&f.heap, e.index)
		delete(f.entries, word)
	}
}

// Count returns how many times word has been recorded, or 0.
func (f *frequency) Count(word string) int {
	if e, ok := f.entries[word]; ok {
		return e.count
	}
	return 0
}

func (f *frequency) Len() int   { return len(f.entries) }
func (f *frequency) Kind() Kind { return Frequency }
func (f *frequency) sealed()    {}
