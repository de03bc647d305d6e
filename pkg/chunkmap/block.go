package chunkmap

import (
	"fmt"

	"github.com/bahusvel/dssc/pkg/varint"
)

// Wire grammar for one block:
//
//	Delta    := varint(line+1) varint(len) varint(lineOffset)
//	Original := 0x00           varint(len) raw[len]
//
// The tag varint doubles as the biased line id; 0 is reserved for literal
// blocks, which is why MaxLines is capped so line+1 fits in one byte. A
// record is a plain concatenation of blocks; its overall length comes from
// the outer framing, never from the blocks themselves.

// originalTag is the reserved tag for literal blocks.
const originalTag = 0

// appendDelta serialises one delta block.
func appendDelta(dst []byte, r run) []byte {
	dst = varint.AppendUvarint(dst, uint64(r.line+1))
	dst = varint.AppendUvarint(dst, uint64(r.length))
	dst = varint.AppendUvarint(dst, uint64(r.lineOff))

	return dst
}

// appendOriginal serialises one literal block.
func appendOriginal(dst []byte, lit []byte) []byte {
	dst = append(dst, originalTag)
	dst = varint.AppendUvarint(dst, uint64(len(lit)))
	dst = append(dst, lit...)

	return dst
}

// BlockInfo describes one decoded or emitted block, for inspection and
// tests. Delta blocks carry the referenced line and offset; literal blocks
// have Delta == false and Line/LineOffset zero.
type BlockInfo struct {
	Delta      bool
	Line       int
	LineOffset int
	RecordOff  int // offset of the block's output within the record
	Len        int
}

func (b BlockInfo) String() string {
	if b.Delta {
		return fmt.Sprintf("delta(%d-%d)@%d:%d", b.RecordOff, b.RecordOff+b.Len, b.Line, b.LineOffset)
	}

	return fmt.Sprintf("original(%d-%d)", b.RecordOff, b.RecordOff+b.Len)
}

// parseBlocks decodes a whole block stream against the cache, returning the
// reconstructed record and the blocks it was built from. It validates every
// block before touching any state: the cache is not mutated here, so a
// failed record leaves the decoder exactly where it was.
func parseBlocks(buf []byte, c *cache) ([]byte, []BlockInfo, error) {
	var (
		out    []byte
		blocks []BlockInfo
	)

	for pos := 0; pos < len(buf); {
		tag, n := varint.Uvarint(buf[pos:])
		if n <= 0 {
			return nil, nil, fmt.Errorf("%w: bad tag varint at %d", ErrMalformed, pos)
		}

		pos += n

		if tag == originalTag {
			length, n := varint.Uvarint(buf[pos:])
			if n <= 0 {
				return nil, nil, fmt.Errorf("%w: bad length varint at %d", ErrMalformed, pos)
			}

			pos += n

			if uint64(len(buf)-pos) < length {
				return nil, nil, fmt.Errorf("%w: literal block overruns frame", ErrMalformed)
			}

			blocks = append(blocks, BlockInfo{RecordOff: len(out), Len: int(length)})
			out = append(out, buf[pos:pos+int(length)]...)
			pos += int(length)

			continue
		}

		if tag > MaxLines {
			return nil, nil, fmt.Errorf("%w: tag %d exceeds line space", ErrMalformed, tag)
		}

		line := int(tag) - 1

		data := c.get(line)
		if data == nil {
			return nil, nil, fmt.Errorf("%w: line %d not allocated", ErrDesync, line)
		}

		length, n := varint.Uvarint(buf[pos:])
		if n <= 0 {
			return nil, nil, fmt.Errorf("%w: bad length varint at %d", ErrMalformed, pos)
		}

		pos += n

		lineOff, n := varint.Uvarint(buf[pos:])
		if n <= 0 {
			return nil, nil, fmt.Errorf("%w: bad offset varint at %d", ErrMalformed, pos)
		}

		pos += n

		if lineOff > uint64(len(data)) || length > uint64(len(data))-lineOff {
			return nil, nil, fmt.Errorf("%w: copy [%d,+%d) outside line %d (%d bytes)",
				ErrDesync, lineOff, length, line, len(data))
		}

		blocks = append(blocks, BlockInfo{
			Delta:      true,
			Line:       line,
			LineOffset: int(lineOff),
			RecordOff:  len(out),
			Len:        int(length),
		})
		out = append(out, data[lineOff:lineOff+length]...)
	}

	return out, blocks, nil
}
