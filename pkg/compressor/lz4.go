package compressor

import (
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/bahusvel/dssc/pkg/varint"
)

// lz4Codec is the lz4 block-format baseline. A record travels as
//
//	[tag] varint(rawLen) payload
//
// where tag 1 means an lz4 block and tag 0 means the record is stored
// uncompressed (lz4 refuses incompressible input).
const (
	lz4Stored     = 0
	lz4Compressed = 1
)

type lz4Codec struct {
	c lz4.Compressor
}

func newLZ4(Options) Codec {
	return &lz4Codec{}
}

func (l *lz4Codec) Encode(record []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(record))
	dst := make([]byte, bound)

	n, err := l.c.CompressBlock(record, dst)
	if err != nil || n == 0 || n >= len(record) {
		out := []byte{lz4Stored}
		out = varint.AppendUvarint(out, uint64(len(record)))

		return append(out, record...), nil
	}

	out := []byte{lz4Compressed}
	out = varint.AppendUvarint(out, uint64(len(record)))

	return append(out, dst[:n]...), nil
}

func (l *lz4Codec) Decode(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: empty lz4 frame", ErrMalformed)
	}

	tag := frame[0]

	rawLen, n := varint.Uvarint(frame[1:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad raw length varint", ErrMalformed)
	}

	payload := frame[1+n:]

	switch tag {
	case lz4Stored:
		if uint64(len(payload)) != rawLen {
			return nil, fmt.Errorf("%w: stored payload is %d bytes, want %d", ErrMalformed, len(payload), rawLen)
		}

		record := make([]byte, rawLen)
		copy(record, payload)

		return record, nil

	case lz4Compressed:
		// An lz4 block expands at most ~255x; anything wilder is a
		// corrupt length, and it must not trigger a giant allocation.
		if rawLen > uint64(len(payload))*256+64 {
			return nil, fmt.Errorf("%w: raw length %d implausible for %d payload bytes", ErrMalformed, rawLen, len(payload))
		}

		record := make([]byte, rawLen)

		n, err := lz4.UncompressBlock(payload, record)
		if err != nil || uint64(n) != rawLen {
			return nil, fmt.Errorf("%w: lz4 block decode failed", ErrMalformed)
		}

		return record, nil

	default:
		return nil, fmt.Errorf("%w: unknown lz4 tag %d", ErrMalformed, tag)
	}
}
