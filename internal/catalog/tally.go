package catalog

import "slices"

// Tally counts per key and remembers the order in which keys first appeared.
type Tally struct {
	order  []string
	counts map[string]int
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// Add increments key by n.
func (t *Tally) Add(key string, n int) {
	if _, ok := t.counts[key]; !ok {
		t.order = append(t.order, key)
	}
	t.counts[key] += n
}

// Get returns the count for key.
func (t *Tally) Get(key string) int { return t.counts[key] }

// Keys returns the keys in first-seen order.
func (t *Tally) Keys() []string { return slices.Clone(t.order) }

// Len returns the number of distinct keys.
func (t *Tally) Len() int { return len(t.order) }
