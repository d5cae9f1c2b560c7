package alphabet

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
)

// Line prefixes of the text format:
//
//	SI:<n>
//	AB:<sep><items>
//	CT:<sep><counts>
//	IT:<sep><items in rank order>
//	FI:<first code>
//
// IT is present only for translated alphabets and FI only when the
// translation does not start at 0.
const (
	prefixSize  = "SI:"
	prefixItems = "AB:"
	prefixCount = "CT:"
	prefixOrder = "IT:"
	prefixFirst = "FI:"
)

const maxLineSize = 256 * 1024 * 1024

// Encode writes the counts without a translation.
func (b *Builder) Encode(w io.Writer, sep string) error {
	counts := make([]int64, len(b.items))
	for i, k := range b.items {
		counts[i] = b.counts[k]
	}
	return encode(w, sep, b.items, counts, nil, 0)
}

// Encode writes the counts and the translation.
func (a *Alphabet) Encode(w io.Writer, sep string) error {
	counts := make([]int64, len(a.keys))
	for i, k := range a.keys {
		counts[i] = a.counts[k]
	}
	return encode(w, sep, a.keys, counts, a.Order(), a.first)
}

// String renders the alphabet with a space separator.
func (a *Alphabet) String() string {
	var sb strings.Builder
	_ = a.Encode(&sb, " ")
	return sb.String()
}

func encode(w io.Writer, sep string, items []string, counts []int64, order []string, first int) error {
	if sep == "" {
		sep = " "
	}
	bw := bufio.NewWriter(w)

	size := len(items)
	if order != nil {
		size = len(order)
	}
	fmt.Fprintf(bw, "%s%d\n", prefixSize, size)

	bw.WriteString(prefixItems + sep + strings.Join(items, sep) + "\n")

	nums := make([]string, len(counts))
	for i, c := range counts {
		nums[i] = strconv.FormatInt(c, 10)
	}
	bw.WriteString(prefixCount + sep + strings.Join(nums, sep) + "\n")

	// an empty translation still gets its IT line
	if order != nil {
		bw.WriteString(prefixOrder + sep + strings.Join(order, sep) + "\n")
		if first != 0 {
			fmt.Fprintf(bw, "%s%d\n", prefixFirst, first)
		}
	}
	return bw.Flush()
}

// Decode reads the text format. The Builder always carries the counts in file
// order; the Alphabet is nil unless the input had an IT line.
func Decode(r io.Reader, sep string) (*Builder, *Alphabet, error) {
	if sep == "" {
		sep = " "
	}

	var (
		items, order       []string
		counts             []int64
		hasItems, hasCount bool
		first              int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, prefixItems):
			items = splitField(line, prefixItems, sep)
			hasItems = true
		case strings.HasPrefix(line, prefixCount):
			fields := splitField(line, prefixCount, sep)
			counts = make([]int64, len(fields))
			for i, f := range fields {
				n, err := strconv.ParseInt(f, 10, 64)
				if err != nil {
					return nil, nil, fmt.Errorf("%w: count %q: %v", internalerr.ErrFormat, f, err)
				}
				counts[i] = n
			}
			hasCount = true
		case strings.HasPrefix(line, prefixOrder):
			order = splitField(line, prefixOrder, sep)
		case strings.HasPrefix(line, prefixFirst):
			n, err := strconv.Atoi(strings.TrimSpace(line[len(prefixFirst):]))
			if err != nil {
				return nil, nil, fmt.Errorf("%w: first code: %v", internalerr.ErrFormat, err)
			}
			first = n
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}

	if !hasItems {
		return nil, nil, fmt.Errorf("%w: alphabet not present in file", internalerr.ErrFormat)
	}
	if !hasCount {
		return nil, nil, fmt.Errorf("%w: counts not present in file", internalerr.ErrFormat)
	}
	if order == nil {
		b, err := newCounted(items, counts)
		if err != nil {
			return nil, nil, err
		}
		return b, nil, nil
	}
	a, err := Restore(items, counts, order, first)
	if err != nil {
		return nil, nil, err
	}
	return a.Builder(), a, nil
}

// Restore rebuilds a translated alphabet from its stored parts: items and
// counts in counting order, items in rank order, and the first code.
func Restore(items []string, counts []int64, order []string, first int) (*Alphabet, error) {
	b, err := newCounted(items, counts)
	if err != nil {
		return nil, err
	}
	if order == nil {
		order = []string{}
	}
	return resolve(b, order, first)
}

func newCounted(items []string, counts []int64) (*Builder, error) {
	if len(items) != len(counts) {
		return nil, fmt.Errorf("%w: alphabet and counts do not have the same length (%d != %d)",
			internalerr.ErrFormat, len(items), len(counts))
	}
	b := NewBuilder()
	for i, item := range items {
		b.Add(item, counts[i])
	}
	if b.Len() != len(items) {
		return nil, fmt.Errorf("%w: duplicate items in alphabet", internalerr.ErrFormat)
	}
	return b, nil
}

// resolve attaches a stored rank order to counted items.
func resolve(b *Builder, order []string, first int) (*Alphabet, error) {
	if len(order) != b.Len() {
		return nil, fmt.Errorf("%w: translator length is different from alphabet's length (%d != %d)",
			internalerr.ErrFormat, len(order), b.Len())
	}
	seen := make(map[string]struct{}, len(order))
	for _, item := range order {
		if !b.Contains(item) {
			return nil, fmt.Errorf("%w: translated item %q has no count", internalerr.ErrFormat, item)
		}
		if _, dup := seen[item]; dup {
			return nil, fmt.Errorf("%w: item %q translated twice", internalerr.ErrFormat, item)
		}
		seen[item] = struct{}{}
	}

	counts := make(map[string]int64, b.Len())
	for k, v := range b.counts {
		counts[k] = v
	}
	kept := make([]string, len(order))
	copy(kept, order)
	return newAlphabet(counts, b.Items(), kept, first), nil
}

func splitField(line, prefix, sep string) []string {
	rest := strings.TrimPrefix(line[len(prefix):], sep)
	if rest == "" {
		return []string{}
	}
	return strings.Split(rest, sep)
}

// Encoder is implemented by Builder and Alphabet.
type Encoder interface {
	Encode(w io.Writer, sep string) error
}

// WriteFile writes e to path in the text format.
func WriteFile(path, sep string, e Encoder) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return e.Encode(f, sep)
}

// ReadFile reads an alphabet in the text format from path.
func ReadFile(path, sep string) (*Builder, *Alphabet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	b, a, err := Decode(f, sep)
	if err != nil {
		return nil, nil, fmt.Errorf("read alphabet %s: %w", path, err)
	}
	return b, a, nil
}

// Load reads a translated alphabet, choosing the CBOR snapshot format for
// paths ending in ".cbor" and the text format otherwise.
func Load(path, sep string) (*Alphabet, error) {
	if IsSnapshot(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		a, err := ReadSnapshot(f)
		if err != nil {
			return nil, fmt.Errorf("read snapshot %s: %w", path, err)
		}
		return a, nil
	}

	_, a, err := ReadFile(path, sep)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%s: %w", path, internalerr.ErrNotTranslated)
	}
	return a, nil
}

// Save writes a translated alphabet in the format implied by the path.
func Save(path, sep string, a *Alphabet) (err error) {
	if !IsSnapshot(path) {
		return WriteFile(path, sep, a)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteSnapshot(f, a)
}

// IsSnapshot reports whether path names a CBOR snapshot.
func IsSnapshot(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".cbor")
}
