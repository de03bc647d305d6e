// Package varint implements unsigned little-endian base-128 integers.
//
// The wire format is the one used by encoding/binary and protobuf: seven
// value bits per byte, low groups first, high bit set on every byte except
// the last. A uint64 occupies between 1 and 10 bytes.
//
// The buffer decoder reports truncation and overflow through its consumed
// count instead of an error so hot decode loops can branch on an int; the
// stream decoder returns classified errors.
package varint

import (
	"errors"
	"io"
)

// MaxLen is the maximum number of bytes a uint64 varint occupies.
const MaxLen = 10

// Decode errors for the stream variant.
var (
	// ErrOverflow indicates a value wider than 64 bits.
	ErrOverflow = errors.New("varint: overflows 64 bits")
	// ErrTruncated indicates the input ended inside a varint.
	ErrTruncated = errors.New("varint: truncated")
)

// PutUvarint encodes x into buf and returns the number of bytes written.
// It panics if buf is shorter than the encoding; MaxLen bytes are always
// enough.
func PutUvarint(buf []byte, x uint64) int {
	i := 0
	for x >= 0x80 {
		buf[i] = byte(x) | 0x80
		x >>= 7
		i++
	}
	buf[i] = byte(x)

	return i + 1
}

// AppendUvarint appends the encoding of x to dst and returns the extended
// slice.
func AppendUvarint(dst []byte, x uint64) []byte {
	for x >= 0x80 {
		dst = append(dst, byte(x)|0x80)
		x >>= 7
	}

	return append(dst, byte(x))
}

// Uvarint decodes a uint64 from buf and returns the value and the number of
// bytes consumed. If the buffer ends inside the varint, consumed is 0. If
// the varint does not fit in 64 bits, consumed is negative (the negated
// count of bytes read).
func Uvarint(buf []byte) (uint64, int) {
	var x uint64

	var s uint

	for i, b := range buf {
		if i == MaxLen {
			return 0, -(i + 1) // more than 10 bytes
		}

		if b < 0x80 {
			if i == MaxLen-1 && b > 1 {
				return 0, -(i + 1) // 10th byte carries more than one bit
			}

			return x | uint64(b)<<s, i + 1
		}

		x |= uint64(b&0x7f) << s
		s += 7
	}

	return 0, 0
}

// ReadUvarint decodes a uint64 from r one byte at a time.
// Truncation surfaces as ErrTruncated (or the reader's own error), overflow
// as ErrOverflow. A clean EOF before the first byte is returned as io.EOF so
// callers can distinguish end-of-stream from a torn value.
func ReadUvarint(r io.ByteReader) (uint64, error) {
	var x uint64

	var s uint

	for i := 0; ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && i > 0 {
				return 0, ErrTruncated
			}

			return 0, err
		}

		if i == MaxLen {
			return 0, ErrOverflow
		}

		if b < 0x80 {
			if i == MaxLen-1 && b > 1 {
				return 0, ErrOverflow
			}

			return x | uint64(b)<<s, nil
		}

		x |= uint64(b&0x7f) << s
		s += 7
	}
}
