package alphabet

import "sort"

// Builder accumulates item counts during a counting pass. It has no
// translation; call Translate to obtain a resolved Alphabet.
type Builder struct {
	counts map[string]int64
	items  []string // insertion order
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{counts: make(map[string]int64)}
}

// Increment adds one occurrence of item, creating it with count 0 first if absent.
func (b *Builder) Increment(item string) {
	b.ensure(item)
	b.counts[item]++
}

// Add sets the count of item, appending it to the enumeration order if new.
func (b *Builder) Add(item string, count int64) {
	b.ensure(item)
	b.counts[item] = count
}

func (b *Builder) ensure(item string) {
	if b.counts == nil {
		b.counts = make(map[string]int64)
	}
	if _, ok := b.counts[item]; !ok {
		b.counts[item] = 0
		b.items = append(b.items, item)
	}
}

// Count returns the count of item, or 0 if it was never seen.
func (b *Builder) Count(item string) int64 {
	return b.counts[item]
}

// Contains reports whether item has an entry.
func (b *Builder) Contains(item string) bool {
	_, ok := b.counts[item]
	return ok
}

// Len returns the number of distinct items.
func (b *Builder) Len() int {
	return len(b.items)
}

// Total returns the sum of all counts.
func (b *Builder) Total() int64 {
	var n int64
	for _, c := range b.counts {
		n += c
	}
	return n
}

// Items returns the items in insertion order.
func (b *Builder) Items() []string {
	out := make([]string, len(b.items))
	copy(out, b.items)
	return out
}

// ResetCounts sets every count to zero without forgetting any item.
func (b *Builder) ResetCounts() {
	for k := range b.counts {
		b.counts[k] = 0
	}
}

// Translate ranks the items by descending count and assigns dense codes
// starting at first. Ties keep insertion order.
func (b *Builder) Translate(first int) *Alphabet {
	order := b.Items()
	sort.SliceStable(order, func(i, j int) bool {
		return b.counts[order[i]] > b.counts[order[j]]
	})

	counts := make(map[string]int64, len(b.counts))
	for k, v := range b.counts {
		counts[k] = v
	}
	return newAlphabet(counts, b.Items(), order, first)
}
