package compressor

import (
	"fmt"

	"github.com/bahusvel/dssc/pkg/varint"
)

// The convolve codec XOR-deltas each record against the single best-aligned
// history entry, found by sliding the record over every cached entry and
// counting matching bytes. The XOR residue is then zero-run-length encoded.
//
// Wire format for one record:
//
//	[entry byte] varint(offset) zrle(residue)
//
// With an empty history the residue is the record itself and entry/offset
// are zero. History admission uses the same ratio rule as the chunkmap
// codec, and entry hit counters bump on both encode and decode, so the two
// sides stay in lockstep. It is quadratic in record x entry size and kept
// as the original brute-force reference the chunk index replaced.

// convCacheSize is the convolve history capacity; entry ids travel as one
// unbiased byte.
const convCacheSize = 256

const convDefaultThreshold = 0.5

type convEntry struct {
	hits uint64
	data []byte
}

// convCache is an index-stable history. Eviction overwrites the entry with
// the fewest hits (lowest index on ties) in place, which keeps every other
// id valid on both sides.
type convCache struct {
	entries []convEntry
}

func (c *convCache) insert(data []byte) {
	owned := make([]byte, len(data))
	copy(owned, data)

	if len(c.entries) < convCacheSize {
		c.entries = append(c.entries, convEntry{data: owned})
		return
	}

	victim := 0
	for i, e := range c.entries {
		if e.hits < c.entries[victim].hits {
			victim = i
		}
	}

	c.entries[victim] = convEntry{data: owned}
}

type convolveCodec struct {
	encCache  convCache
	decCache  convCache
	threshold float64
}

func newConvolve(opts Options) Codec {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = convDefaultThreshold
	}

	return &convolveCodec{threshold: threshold}
}

func (c *convolveCodec) Encode(record []byte) ([]byte, error) {
	bestEntry, bestOff := 0, 0

	var residue []byte

	if len(c.encCache.entries) == 0 {
		residue = record
	} else {
		bestScore := 0

		for i, e := range c.encCache.entries {
			off, score := convolve(record, e.data)
			if score > bestScore {
				bestEntry, bestOff, bestScore = i, off, score
			}
		}

		residue = xorDelta(record, c.encCache.entries[bestEntry].data, bestOff)
		c.encCache.entries[bestEntry].hits++
	}

	out := []byte{byte(bestEntry)}
	out = varint.AppendUvarint(out, uint64(bestOff))
	out = zrle(residue, out)

	if len(record) != 0 {
		ratio := float64(len(out)) / float64(len(record))
		if ratio > c.threshold {
			c.encCache.insert(record)
		}
	}

	return out, nil
}

func (c *convolveCodec) Decode(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: empty convolve frame", ErrMalformed)
	}

	entryIdx := int(frame[0])

	offset, n := varint.Uvarint(frame[1:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad offset varint", ErrMalformed)
	}

	record := zrld(frame[1+n:])

	if len(c.decCache.entries) != 0 {
		if entryIdx >= len(c.decCache.entries) {
			return nil, fmt.Errorf("%w: entry %d not allocated", ErrDesync, entryIdx)
		}

		data := c.decCache.entries[entryIdx].data
		if offset > uint64(len(data)) {
			return nil, fmt.Errorf("%w: offset %d outside entry %d (%d bytes)", ErrDesync, offset, entryIdx, len(data))
		}

		undelta(record, data, int(offset))
		c.decCache.entries[entryIdx].hits++
	}

	if len(record) != 0 {
		ratio := float64(len(frame)) / float64(len(record))
		if ratio > c.threshold {
			c.decCache.insert(record)
		}
	}

	return record, nil
}

// convolve slides needle over haystack and returns the offset with the most
// matching bytes. The earliest best offset wins, deterministically.
func convolve(needle, haystack []byte) (offset, score int) {
	for off := 0; off < len(haystack); off++ {
		n := len(needle)
		if over := off + n - len(haystack); over > 0 {
			n -= over
		}

		s := 0

		for i := 0; i < n; i++ {
			if haystack[off+i] == needle[i] {
				s++
			}
		}

		if s > score {
			offset, score = off, s
		}
	}

	return offset, score
}

// xorDelta XORs buf against deltasource starting at offset; bytes past the
// end of deltasource pass through unchanged.
func xorDelta(buf, deltasource []byte, offset int) []byte {
	d := make([]byte, len(buf))
	copy(d, buf)
	undelta(d, deltasource, offset)

	return d
}

// undelta XORs buf in place with deltasource[offset:], stopping at the end
// of either buffer. XOR is its own inverse, so this both applies and
// removes a delta.
func undelta(buf, deltasource []byte, offset int) {
	n := len(buf)
	if avail := len(deltasource) - offset; avail < n {
		n = avail
	}

	for i := 0; i < n; i++ {
		buf[i] ^= deltasource[offset+i]
	}
}

// zrle appends buf to out with zero runs collapsed to (0x00, count) pairs.
// Runs longer than 255 are emitted as multiple pairs.
func zrle(buf []byte, out []byte) []byte {
	zcount := 0

	flush := func() {
		for zcount > 255 {
			out = append(out, 0, 255)
			zcount -= 255
		}

		if zcount > 0 {
			out = append(out, 0, byte(zcount))
			zcount = 0
		}
	}

	for _, b := range buf {
		if b == 0 {
			zcount++
			continue
		}

		flush()

		out = append(out, b)
	}

	flush()

	return out
}

// zrld reverses zrle.
func zrld(buf []byte) []byte {
	var out []byte

	wasZero := false

	for _, b := range buf {
		switch {
		case b == 0:
			wasZero = true
		case wasZero:
			for i := 0; i < int(b); i++ {
				out = append(out, 0)
			}

			wasZero = false
		default:
			out = append(out, b)
		}
	}

	return out
}
