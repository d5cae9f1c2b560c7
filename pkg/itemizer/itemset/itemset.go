// Package itemset defines the unit of streaming data: an ordered sequence of
// items with an optional integer label, plus the raw text element consumed by
// the normalizer and tokenizer.
package itemset

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultSeparator joins items in the text line format.
const DefaultSeparator = " "

var (
	labelPattern       = regexp.MustCompile(`^\[(-?[0-9]+)\]$`)
	labelSuffixPattern = regexp.MustCompile(`^(.*) \[(-?[0-9]+)\]$`)
)

// Itemset is an ordered sequence of items plus an optional label.
type Itemset struct {
	Items     []string
	Label     int
	Labeled   bool
	Separator string
}

// New creates an empty itemset using sep for text rendering.
func New(sep string) Itemset {
	if sep == "" {
		sep = DefaultSeparator
	}
	return Itemset{Separator: sep}
}

// Parse reads one line of the itemset text format:
//
//	<item><sep><item>...<sep><item> [<label>]
//
// Exactly one trailing "[n]" field is taken as the label when n is an integer.
// Empty fields are skipped.
func Parse(line, sep string) Itemset {
	is := New(sep)
	if line == "" {
		return is
	}

	parts := strings.Split(line, is.Separator)
	last := len(parts) - 1
	if m := labelPattern.FindStringSubmatch(parts[last]); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			is.SetLabel(n)
			parts = parts[:last]
		}
	} else if m := labelSuffixPattern.FindStringSubmatch(parts[last]); m != nil {
		// String always renders the label after a space, whatever the separator.
		if n, err := strconv.Atoi(m[2]); err == nil {
			is.SetLabel(n)
			parts[last] = m[1]
		}
	}

	is.Items = make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		is.Items = append(is.Items, p)
	}
	return is
}

// Len returns the number of items.
func (is Itemset) Len() int { return len(is.Items) }

// Append adds an item at the end.
func (is *Itemset) Append(item string) {
	is.Items = append(is.Items, item)
}

// SetLabel attaches a label.
func (is *Itemset) SetLabel(label int) {
	is.Label = label
	is.Labeled = true
}

// Derive returns an empty itemset carrying the separator and label of is.
func (is Itemset) Derive() Itemset {
	return Itemset{
		Items:     make([]string, 0, len(is.Items)),
		Label:     is.Label,
		Labeled:   is.Labeled,
		Separator: is.Separator,
	}
}

// Join renders the items joined by the separator, without the label.
func (is Itemset) Join() string {
	sep := is.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	return strings.Join(is.Items, sep)
}

// String renders the itemset in the text line format.
func (is Itemset) String() string {
	s := is.Join()
	if is.Labeled {
		s += " [" + strconv.Itoa(is.Label) + "]"
	}
	return s
}
