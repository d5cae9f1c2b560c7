package alphabet

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
)

// snapshot is the CBOR form of a translated alphabet.
type snapshot struct {
	Items  []string `cbor:"1,keyasint"`
	Counts []int64  `cbor:"2,keyasint"`
	Order  []string `cbor:"3,keyasint"`
	First  int      `cbor:"4,keyasint,omitempty"`
}

// WriteSnapshot encodes a as CBOR.
func WriteSnapshot(w io.Writer, a *Alphabet) error {
	s := snapshot{
		Items:  a.Items(),
		Counts: make([]int64, len(a.keys)),
		Order:  a.Order(),
		First:  a.first,
	}
	for i, k := range a.keys {
		s.Counts[i] = a.counts[k]
	}
	return cbor.NewEncoder(w).Encode(s)
}

// ReadSnapshot decodes an alphabet written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Alphabet, error) {
	var s snapshot
	if err := cbor.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrFormat, err)
	}
	return Restore(s.Items, s.Counts, s.Order, s.First)
}
