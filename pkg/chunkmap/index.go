package chunkmap

import "encoding/binary"

// site is one occurrence of a 4-byte chunk inside a cached entry. It holds
// only primitive fields and never owns entry bytes.
type site struct {
	line int
	off  int
}

// chunkIndex maps every ChunkSize-byte window of every cached entry to the
// sites where it occurs. An entry of n bytes contributes max(0, n-3) sites;
// a (line, off) pair appears at most once because entries are immutable and
// sites are added exactly once per entry lifetime.
type chunkIndex map[uint32][]site

// chunkKey reinterprets four bytes as the index key. Little-endian on both
// ends of a stream; the value never travels on the wire.
func chunkKey(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

// add indexes every window of data under line.
func (ix chunkIndex) add(line int, data []byte) {
	for i := 0; i+ChunkSize <= len(data); i++ {
		key := chunkKey(data[i:])
		ix[key] = append(ix[key], site{line: line, off: i})
	}
}

// drop removes every site of line, walking the same windows add walked.
// Keys left with no sites are deleted so the index never grows tombstones.
func (ix chunkIndex) drop(line int, data []byte) {
	for i := 0; i+ChunkSize <= len(data); i++ {
		key := chunkKey(data[i:])

		sites := ix[key]
		kept := sites[:0]

		for _, s := range sites {
			if s.line != line {
				kept = append(kept, s)
			}
		}

		if len(kept) == 0 {
			delete(ix, key)
		} else {
			ix[key] = kept
		}
	}
}

// lookup returns the sites of key. The returned slice is owned by the index
// and must not be mutated or retained across add/drop.
func (ix chunkIndex) lookup(key uint32) []site {
	return ix[key]
}

// siteCount returns the total number of sites across all keys.
func (ix chunkIndex) siteCount() int {
	n := 0
	for _, sites := range ix {
		n += len(sites)
	}

	return n
}
