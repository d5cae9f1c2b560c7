package pipe

import (
	"strconv"

	"github.com/cognicore/itemizer/pkg/itemizer/alphabet"
	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
)

// Filter drops items missing from a reference alphabet and forwards the rest.
// With translate set, surviving items are replaced by their codes. Itemsets
// left empty are not forwarded.
type Filter struct {
	Outlet

	ref       *alphabet.Alphabet
	translate bool
	seen      *alphabet.Builder
	stats     FilterStats
}

// FilterStats counts what a Filter let through.
type FilterStats struct {
	ItemsetsIn  int64
	ItemsetsOut int64
	ItemsIn     int64
	ItemsOut    int64
}

// Dropped returns the number of items removed.
func (s FilterStats) Dropped() int64 {
	return s.ItemsIn - s.ItemsOut
}

// NewFilter creates a filter over ref. ref is required.
func NewFilter(ref *alphabet.Alphabet, translate bool) (*Filter, error) {
	if ref == nil {
		return nil, internalerr.ErrNoAlphabet
	}
	return &Filter{
		ref:       ref,
		translate: translate,
		seen:      alphabet.NewBuilder(),
	}, nil
}

// Consume implements Stage.
func (f *Filter) Consume(is itemset.Itemset) error {
	if f.ref == nil {
		return internalerr.ErrNoAlphabet
	}
	if f.seen == nil {
		f.seen = alphabet.NewBuilder()
	}

	out := is.Derive()
	for _, item := range is.Items {
		code, ok := f.ref.Code(item)
		if !ok {
			continue
		}
		if f.translate {
			item = strconv.Itoa(code)
		}
		f.seen.Increment(item)
		out.Append(item)
	}

	f.stats.ItemsetsIn++
	f.stats.ItemsIn += int64(len(is.Items))
	f.stats.ItemsOut += int64(len(out.Items))
	if len(out.Items) == 0 {
		return nil
	}
	f.stats.ItemsetsOut++
	return f.Forward(out)
}

// Finish implements Stage.
func (f *Filter) Finish() error {
	return f.FinishAll()
}

// Seen returns the counts of the items the filter forwarded, keyed by code
// when translating.
func (f *Filter) Seen() *alphabet.Builder {
	if f.seen == nil {
		f.seen = alphabet.NewBuilder()
	}
	return f.seen
}

// Stats returns the running counters.
func (f *Filter) Stats() FilterStats {
	return f.stats
}
