package itemset

import (
	"regexp"
	"strconv"
)

var textLabelPattern = regexp.MustCompile(`^(.*)\[(-?[0-9]+)\]$`)

// Text is one raw line of prose with an optional trailing "[label]".
type Text struct {
	Body    string
	Label   int
	Labeled bool
}

// ParseText splits a trailing integer "[n]" label off line.
func ParseText(line string) Text {
	if m := textLabelPattern.FindStringSubmatch(line); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			return Text{Body: m[1], Label: n, Labeled: true}
		}
	}
	return Text{Body: line}
}

// String renders the text with its label, if any.
func (t Text) String() string {
	if t.Labeled {
		return t.Body + " [" + strconv.Itoa(t.Label) + "]"
	}
	return t.Body
}

// Itemset returns an empty itemset inheriting the label of t.
func (t Text) Itemset(sep string) Itemset {
	is := New(sep)
	if t.Labeled {
		is.SetLabel(t.Label)
	}
	return is
}
