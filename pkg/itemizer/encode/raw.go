package encode

import (
	"fmt"
	"io"
	"os"

	"github.com/cognicore/itemizer/pkg/itemizer/alphabet"
	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
)

// Raw writes fixed-width binary records: one count byte per alphabet symbol,
// saturating at MaxCount, followed by one label byte when the itemset has a
// label. Records are not delimited.
type Raw struct {
	sink
	ab     *alphabet.Alphabet
	counts []byte
}

// NewRaw writes records to w. Close flushes but leaves w open.
func NewRaw(w io.Writer, ab *alphabet.Alphabet) (*Raw, error) {
	if err := requireAlphabet(ab); err != nil {
		return nil, err
	}
	return &Raw{sink: newSink(w, nil), ab: ab, counts: make([]byte, ab.Len())}, nil
}

// CreateRaw creates path and writes records to it.
func CreateRaw(path string, ab *alphabet.Alphabet) (*Raw, error) {
	if err := requireAlphabet(ab); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Raw{sink: newSink(f, f), ab: ab, counts: make([]byte, ab.Len())}, nil
}

// RecordSize returns the width of a record, including the label byte if labeled.
func (r *Raw) RecordSize(labeled bool) int {
	if labeled {
		return len(r.counts) + 1
	}
	return len(r.counts)
}

// Consume implements pipe.Stage.
func (r *Raw) Consume(is itemset.Itemset) error {
	if is.Labeled && (is.Label < 0 || is.Label > MaxCount) {
		return fmt.Errorf("%w: %d", internalerr.ErrLabelRange, is.Label)
	}

	for i := range r.counts {
		r.counts[i] = 0
	}
	first := r.ab.First()
	for _, item := range is.Items {
		code, ok := r.ab.Code(item)
		if !ok {
			continue
		}
		if slot := code - first; r.counts[slot] < MaxCount {
			r.counts[slot]++
		}
	}

	if err := r.write(r.counts); err != nil {
		return err
	}
	if is.Labeled {
		if err := r.write([]byte{byte(is.Label)}); err != nil {
			return err
		}
	}
	r.records++
	return nil
}

// Finish implements pipe.Stage.
func (r *Raw) Finish() error { return nil }
