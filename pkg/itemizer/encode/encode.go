// Package encode holds the terminal stages that serialize itemsets against a
// fixed, translated alphabet.
//
// Every encoder owns its destination. Create* constructors open a file that
// Close flushes and releases, so callers pair them with defer:
//
//	enc, err := encode.CreateRaw(path, ab)
//	if err != nil {
//		return err
//	}
//	defer enc.Close()
//
// Finish is a no-op; the stream ends when the encoder is closed.
package encode

import (
	"bufio"
	"io"

	"github.com/cognicore/itemizer/pkg/itemizer/alphabet"
	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
)

// MaxCount is the value a Raw count byte saturates at.
const MaxCount = 255

// sink is the buffered destination shared by the encoders.
type sink struct {
	w       *bufio.Writer
	closer  io.Closer
	records int64
	bytes   int64
	closed  bool
}

// newSink buffers w. closer is nil when the caller owns the destination.
func newSink(w io.Writer, closer io.Closer) sink {
	return sink{w: bufio.NewWriter(w), closer: closer}
}

func (s *sink) write(p []byte) error {
	n, err := s.w.Write(p)
	s.bytes += int64(n)
	return err
}

func (s *sink) writeString(str string) error {
	n, err := s.w.WriteString(str)
	s.bytes += int64(n)
	return err
}

// Close flushes buffered output and closes the destination if the encoder
// opened it. It is safe to call more than once.
func (s *sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Records returns the number of itemsets written.
func (s *sink) Records() int64 { return s.records }

// Bytes returns the number of bytes written.
func (s *sink) Bytes() int64 { return s.bytes }

func requireAlphabet(ab *alphabet.Alphabet) error {
	if ab == nil {
		return internalerr.ErrNoAlphabet
	}
	return nil
}
