package pipe

import (
	"github.com/cognicore/itemizer/pkg/itemizer/alphabet"
	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
)

// Extractor counts every item it sees into its own alphabet. It does not forward.
type Extractor struct {
	counts   *alphabet.Builder
	itemsets int64
	finished bool
}

// NewExtractor creates an extractor with an empty alphabet.
func NewExtractor() *Extractor {
	return &Extractor{counts: alphabet.NewBuilder()}
}

// Consume implements Stage.
func (e *Extractor) Consume(is itemset.Itemset) error {
	if e.counts == nil {
		e.counts = alphabet.NewBuilder()
	}
	e.itemsets++
	for _, item := range is.Items {
		e.counts.Increment(item)
	}
	return nil
}

// Finish implements Stage.
func (e *Extractor) Finish() error {
	e.finished = true
	return nil
}

// Finished reports whether the stream has ended.
func (e *Extractor) Finished() bool {
	return e.finished
}

// Itemsets returns the number of itemsets consumed.
func (e *Extractor) Itemsets() int64 {
	return e.itemsets
}

// Counts returns the accumulated alphabet.
func (e *Extractor) Counts() *alphabet.Builder {
	if e.counts == nil {
		e.counts = alphabet.NewBuilder()
	}
	return e.counts
}

// WriteMeta writes the accumulated alphabet to path. With translate set the
// alphabet is ranked first and the file carries the translation; paths ending
// in ".cbor" always get a translated snapshot.
func (e *Extractor) WriteMeta(path, sep string, translate bool) error {
	counts := e.Counts()
	if translate || alphabet.IsSnapshot(path) {
		return alphabet.Save(path, sep, counts.Translate(0))
	}
	return alphabet.WriteFile(path, sep, counts)
}
