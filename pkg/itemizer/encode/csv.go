package encode

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cognicore/itemizer/pkg/itemizer/alphabet"
	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
)

// CSV writes one line of separator-joined per-symbol counts per itemset, with
// the label as a trailing field when present.
type CSV struct {
	sink
	ab     *alphabet.Alphabet
	sep    string
	counts []int
	fields []string
}

// NewCSV writes records to w using sep between fields. Close flushes but
// leaves w open.
func NewCSV(w io.Writer, ab *alphabet.Alphabet, sep string) (*CSV, error) {
	if err := requireAlphabet(ab); err != nil {
		return nil, err
	}
	return newCSV(newSink(w, nil), ab, sep), nil
}

// CreateCSV creates path and writes records to it.
func CreateCSV(path string, ab *alphabet.Alphabet, sep string) (*CSV, error) {
	if err := requireAlphabet(ab); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return newCSV(newSink(f, f), ab, sep), nil
}

func newCSV(s sink, ab *alphabet.Alphabet, sep string) *CSV {
	if sep == "" {
		sep = " "
	}
	return &CSV{
		sink:   s,
		ab:     ab,
		sep:    sep,
		counts: make([]int, ab.Len()),
		fields: make([]string, 0, ab.Len()+1),
	}
}

// Consume implements pipe.Stage.
func (c *CSV) Consume(is itemset.Itemset) error {
	for i := range c.counts {
		c.counts[i] = 0
	}
	first := c.ab.First()
	for _, item := range is.Items {
		if code, ok := c.ab.Code(item); ok {
			c.counts[code-first]++
		}
	}

	c.fields = c.fields[:0]
	for _, n := range c.counts {
		c.fields = append(c.fields, strconv.Itoa(n))
	}
	if is.Labeled {
		c.fields = append(c.fields, strconv.Itoa(is.Label))
	}
	if err := c.writeString(strings.Join(c.fields, c.sep) + "\n"); err != nil {
		return err
	}
	c.records++
	return nil
}

// Finish implements pipe.Stage.
func (c *CSV) Finish() error { return nil }
