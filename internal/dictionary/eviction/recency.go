package eviction

import "container/list"

// recency keeps words ordered from most to least recently recorded.
type recency struct {
	order *list.List
	nodes map[string]*list.Element
}

func newRecency() *recency {
	return &recency{
		order: list.New(),
		nodes: make(map[string]*list.Element),
	}
}

func (r *recency) Record(word string) {
	if e, ok := r.nodes[word]; ok {
		r.order.MoveToFront(e)
		return
	}
	r.nodes[word] = r.order.PushFront(word)
}

func (r *recency) Victim() string {
	mustNotBeEmpty(r)
	e := r.order.Back()
	word := r.order.Remove(e).(string)
	delete(r.nodes, word)
	return word
}

func (r *recency) Forget(word string) {
	if e, ok := r.nodes[word]; ok {
		r.order.Remove(e)
		delete(r.nodes, word)
	}
}

func (r *recency) Len() int   { return len(r.nodes) }
func (r *recency) Kind() Kind { return Recency }
func (r *recency) sealed()    {}
