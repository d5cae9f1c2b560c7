package encode

import (
	"io"
	"os"

	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
)

// Text writes each itemset in its own text form, one per line.
type Text struct {
	sink
	withLabel bool
}

// NewText writes lines to w. With withLabel set, labels are written as a
// trailing " [n]" field so the output parses back into the same itemsets.
func NewText(w io.Writer, withLabel bool) *Text {
	return &Text{sink: newSink(w, nil), withLabel: withLabel}
}

// CreateText creates path and writes lines to it.
func CreateText(path string, withLabel bool) (*Text, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Text{sink: newSink(f, f), withLabel: withLabel}, nil
}

// Consume implements pipe.Stage.
func (t *Text) Consume(is itemset.Itemset) error {
	line := is.Join()
	if t.withLabel {
		line = is.String()
	}
	if err := t.writeString(line + "\n"); err != nil {
		return err
	}
	t.records++
	return nil
}

// Finish implements pipe.Stage.
func (t *Text) Finish() error { return nil }
