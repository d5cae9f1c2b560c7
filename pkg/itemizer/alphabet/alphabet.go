// Package alphabet implements the frequency-ranked symbol table shared by every
// pipeline stage.
//
// Counting happens on a Builder. Translate freezes a Builder into an Alphabet,
// whose translation maps each item to a dense integer code assigned by
// descending count. Filters and encoders only accept an Alphabet, so a table
// cannot be used for translation before it has been ranked.
package alphabet

import (
	"fmt"
	"strings"

	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
)

// CountPolicy selects how Intersect computes the counts of shared items.
type CountPolicy int

const (
	// Keep uses the receiver's counts.
	Keep CountPolicy = iota
	// Take uses the other alphabet's counts.
	Take
	// Add sums both counts.
	Add
)

// ParseCountPolicy maps "keep", "take" and "add" to a CountPolicy.
func ParseCountPolicy(s string) (CountPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep":
		return Keep, nil
	case "take":
		return Take, nil
	case "add", "sum":
		return Add, nil
	}
	return 0, fmt.Errorf("%w: %q", internalerr.ErrUnknownCountPolicy, s)
}

func (p CountPolicy) String() string {
	switch p {
	case Keep:
		return "keep"
	case Take:
		return "take"
	case Add:
		return "add"
	}
	return fmt.Sprintf("CountPolicy(%d)", int(p))
}

// Alphabet is a resolved, read-only symbol table with a translation.
type Alphabet struct {
	counts map[string]int64
	keys   []string // insertion order, as counted
	order  []string // rank order
	codes  map[string]int
	first  int
}

func newAlphabet(counts map[string]int64, keys, order []string, first int) *Alphabet {
	codes := make(map[string]int, len(order))
	for i, item := range order {
		codes[item] = first + i
	}
	return &Alphabet{
		counts: counts,
		keys:   keys,
		order:  order,
		codes:  codes,
		first:  first,
	}
}

// Len returns the number of translated items.
func (a *Alphabet) Len() int {
	return len(a.order)
}

// First returns the code assigned to the most frequent item.
func (a *Alphabet) First() int {
	return a.first
}

// Contains reports whether item is part of the alphabet.
func (a *Alphabet) Contains(item string) bool {
	_, ok := a.codes[item]
	return ok
}

// Count returns the count of item, or 0 if absent.
func (a *Alphabet) Count(item string) int64 {
	return a.counts[item]
}

// Code returns the dense code of item.
func (a *Alphabet) Code(item string) (int, bool) {
	c, ok := a.codes[item]
	return c, ok
}

// TranslateItem returns the dense code of item or ErrUnknownItem.
// Callers on the hot path check Contains or use Code instead.
func (a *Alphabet) TranslateItem(item string) (int, error) {
	c, ok := a.codes[item]
	if !ok {
		return 0, fmt.Errorf("%w: %q", internalerr.ErrUnknownItem, item)
	}
	return c, nil
}

// Order returns the items in rank order.
func (a *Alphabet) Order() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Items returns the items in the order they were first counted.
func (a *Alphabet) Items() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Builder returns a mutable copy of the counts, keeping the counting order.
func (a *Alphabet) Builder() *Builder {
	b := NewBuilder()
	for _, k := range a.keys {
		b.Add(k, a.counts[k])
	}
	return b
}

// KeepN keeps the first n items of the rank order and renumbers them from 0.
// It does not re-sort.
func (a *Alphabet) KeepN(n int) *Alphabet {
	if n < 0 {
		n = 0
	}
	if n > len(a.order) {
		n = len(a.order)
	}
	return a.restrict(a.order[:n])
}

// KeepMinFrequency keeps items whose count is at least f and renumbers them from 0.
func (a *Alphabet) KeepMinFrequency(f int64) *Alphabet {
	kept := make([]string, 0, len(a.order))
	for _, item := range a.order {
		if a.counts[item] >= f {
			kept = append(kept, item)
		}
	}
	return a.restrict(kept)
}

func (a *Alphabet) restrict(order []string) *Alphabet {
	survivors := make(map[string]int64, len(order))
	for _, item := range order {
		survivors[item] = a.counts[item]
	}
	keys := make([]string, 0, len(order))
	for _, k := range a.keys {
		if _, ok := survivors[k]; ok {
			keys = append(keys, k)
		}
	}
	kept := make([]string, len(order))
	copy(kept, order)
	return newAlphabet(survivors, keys, kept, 0)
}

// Intersect returns the items of a that are also in other, with counts chosen
// by policy, freshly ranked from code 0.
func (a *Alphabet) Intersect(other *Alphabet, policy CountPolicy) (*Alphabet, error) {
	if other == nil {
		return nil, internalerr.ErrNoAlphabet
	}
	if policy != Keep && policy != Take && policy != Add {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrUnknownCountPolicy, policy)
	}

	b := NewBuilder()
	for _, item := range a.order {
		if !other.Contains(item) {
			continue
		}
		var count int64
		switch policy {
		case Keep:
			count = a.counts[item]
		case Take:
			count = other.counts[item]
		case Add:
			count = a.counts[item] + other.counts[item]
		}
		b.Add(item, count)
	}
	return b.Translate(0), nil
}
