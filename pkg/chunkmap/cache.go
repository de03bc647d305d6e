package chunkmap

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

// Tunables of the codec. Changing any of them is a wire-format change: both
// ends of a stream must be built with the same values.
const (
	// MaxLines is the history cache capacity. Line ids are sent as line+1
	// in a varint with 0 reserved for literal blocks; MaxLines+1 stays
	// below 256 so every biased id fits in a byte's range. As a varint,
	// ids up to 127 take one byte and larger ones two.
	MaxLines = 245

	// ChunkSize is the window width of the chunk index.
	ChunkSize = 4

	// DefaultThreshold is the compression ratio above which a record is
	// admitted to the history cache.
	DefaultThreshold = 0.5
)

// entry is one cached record. data is immutable for the entry's lifetime;
// usefulness counts the bytes the entry has contributed to delta blocks.
type entry struct {
	data       []byte
	usefulness uint64
	sum        uint64 // xxhash of data, for the duplicate-insert guard
}

// cache is the bounded history store plus its chunk index. The two are
// mutated strictly together: every insert/remove updates the index in the
// same call so the site invariant holds between operations.
type cache struct {
	entries [MaxLines]*entry
	size    int
	index   chunkIndex
	sums    map[uint64]int // content hash -> line
}

func newCache() *cache {
	return &cache{
		index: make(chunkIndex),
		sums:  make(map[uint64]int),
	}
}

func (c *cache) len() int { return c.size }

// get returns the bytes of line, or nil if the line is not allocated.
func (c *cache) get(line int) []byte {
	if line < 0 || line >= MaxLines || c.entries[line] == nil {
		return nil
	}

	return c.entries[line].data
}

// bump adds by to the usefulness of line, saturating at the counter's max.
func (c *cache) bump(line int, by uint64) {
	e := c.entries[line]
	if e == nil {
		return
	}

	if e.usefulness > math.MaxUint64-by {
		e.usefulness = math.MaxUint64
		return
	}

	e.usefulness += by
}

// insert stores data under a free line id and returns it. At capacity the
// least useful entry is evicted first, lowest id breaking ties, and its id
// is reused. Exact duplicates of an existing entry are refused (both sides
// of a stream compute the same hash, so the refusal is symmetric); insert
// then returns the existing line and evicted=false.
//
// The caller keeps ownership of data; the cache stores its own copy.
func (c *cache) insert(data []byte) (line int, evicted bool) {
	sum := xxhash.Sum64(data)
	if existing, ok := c.sums[sum]; ok {
		return existing, false
	}

	if c.size == MaxLines {
		line = c.leastUseful()
		c.remove(line)
		evicted = true
	} else {
		for c.entries[line] != nil {
			line++
		}
	}

	owned := make([]byte, len(data))
	copy(owned, data)

	c.entries[line] = &entry{data: owned, sum: sum}
	c.size++
	c.sums[sum] = line
	c.index.add(line, owned)

	return line, evicted
}

// remove frees line and drops its sites from the index.
func (c *cache) remove(line int) []byte {
	e := c.entries[line]
	if e == nil {
		return nil
	}

	c.entries[line] = nil
	c.size--
	delete(c.sums, e.sum)
	c.index.drop(line, e.data)

	return e.data
}

// leastUseful returns the line with the smallest usefulness; the lowest id
// wins ties. This is the eviction rule, and it must be a pure function of
// (usefulness, id) so that encoder and decoder evict in lockstep.
func (c *cache) leastUseful() int {
	best := -1

	var bestUse uint64

	for line, e := range c.entries {
		if e == nil {
			continue
		}

		if best == -1 || e.usefulness < bestUse {
			best = line
			bestUse = e.usefulness
		}
	}

	return best
}
