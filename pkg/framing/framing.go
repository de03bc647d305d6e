// Package framing length-prefixes compressed records on a byte stream.
//
// Each record travels as one frame:
//
//	Frame := varint(len) bytes[len]
//
// Frames are written back-to-back; a clean EOF between frames ends the
// stream. There is no resynchronisation: a torn frame is fatal.
package framing

import (
	"bufio"
	"io"

	"github.com/pkg/errors"

	"github.com/bahusvel/dssc/pkg/varint"
)

// ErrMalformed indicates a frame that cannot be read in full: a torn length
// varint or a body shorter than its declared length.
var ErrMalformed = errors.New("framing: malformed frame")

// MaxFrameLen caps a single frame. The codec targets line-sized records, so
// anything this large is a corrupt length, not data; refusing it also stops
// a bad varint from triggering a giant allocation.
const MaxFrameLen = 1 << 26 // 64 MiB

// LenPrefixSize returns the number of bytes the length prefix of an n-byte
// frame occupies on the wire.
func LenPrefixSize(n int) int {
	var buf [varint.MaxLen]byte

	return varint.PutUvarint(buf[:], uint64(n))
}

// Writer frames records onto w.
type Writer struct {
	w      io.Writer
	lenBuf [varint.MaxLen]byte
}

// NewWriter returns a Writer framing onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRecord writes one frame.
func (w *Writer) WriteRecord(p []byte) error {
	n := varint.PutUvarint(w.lenBuf[:], uint64(len(p)))

	if _, err := w.w.Write(w.lenBuf[:n]); err != nil {
		return errors.Wrap(err, "writing frame length")
	}

	if _, err := w.w.Write(p); err != nil {
		return errors.Wrap(err, "writing frame body")
	}

	return nil
}

// Reader reads frames from a byte stream.
type Reader struct {
	r   *bufio.Reader
	buf []byte
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadRecord returns the next frame body. io.EOF marks a clean end of
// stream; an EOF inside a frame surfaces as ErrMalformed. The returned
// slice is reused by the next call.
func (r *Reader) ReadRecord() ([]byte, error) {
	length, err := varint.ReadUvarint(r.r)
	if err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return nil, io.EOF
		case errors.Is(err, varint.ErrTruncated), errors.Is(err, varint.ErrOverflow):
			return nil, errors.Wrap(ErrMalformed, err.Error())
		default:
			return nil, errors.Wrap(err, "reading frame length")
		}
	}

	if length > MaxFrameLen {
		return nil, errors.Wrapf(ErrMalformed, "frame length %d exceeds limit", length)
	}

	if uint64(cap(r.buf)) < length {
		r.buf = make([]byte, length)
	}

	r.buf = r.buf[:length]

	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.Wrap(ErrMalformed, "frame body truncated")
		}

		return nil, errors.Wrap(err, "reading frame body")
	}

	return r.buf, nil
}
