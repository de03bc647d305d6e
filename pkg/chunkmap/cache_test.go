package chunkmap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheInsertGetRemove(t *testing.T) {
	t.Parallel()

	c := newCache()

	line, evicted := c.insert([]byte("alpha line\n"))
	require.Equal(t, 0, line)
	require.False(t, evicted)
	require.Equal(t, 1, c.len())
	require.Equal(t, []byte("alpha line\n"), c.get(0))

	line, _ = c.insert([]byte("beta line\n"))
	require.Equal(t, 1, line)

	got := c.remove(0)
	require.Equal(t, []byte("alpha line\n"), got)
	require.Nil(t, c.get(0))
	require.Equal(t, 1, c.len())

	// Freed id is reused before higher ids.
	line, _ = c.insert([]byte("gamma line\n"))
	require.Equal(t, 0, line)
}

func TestCacheInsertCopies(t *testing.T) {
	t.Parallel()

	c := newCache()

	record := []byte("mutable record\n")
	line, _ := c.insert(record)
	record[0] = 'X'

	require.Equal(t, []byte("mutable record\n"), c.get(line))
}

func TestCacheGetOutOfRange(t *testing.T) {
	t.Parallel()

	c := newCache()

	require.Nil(t, c.get(-1))
	require.Nil(t, c.get(MaxLines))
	require.Nil(t, c.get(7))
}

func TestCacheEvictsLeastUseful(t *testing.T) {
	t.Parallel()

	c := newCache()

	for i := 0; i < MaxLines; i++ {
		line, evicted := c.insert([]byte(fmt.Sprintf("record number %d with some padding\n", i)))
		require.Equal(t, i, line)
		require.False(t, evicted)
	}

	// Every entry except line 3 earns usefulness.
	for i := 0; i < MaxLines; i++ {
		if i != 3 {
			c.bump(i, 10)
		}
	}

	line, evicted := c.insert([]byte("the straw that breaks the cache\n"))
	require.True(t, evicted)
	require.Equal(t, 3, line, "the least useful line's id is reused")
	require.Equal(t, MaxLines, c.len())
	require.Equal(t, []byte("the straw that breaks the cache\n"), c.get(3))
}

func TestCacheEvictionTieBreaksLowestID(t *testing.T) {
	t.Parallel()

	c := newCache()

	for i := 0; i < MaxLines; i++ {
		_, _ = c.insert([]byte(fmt.Sprintf("tied usefulness record %d\n", i)))
	}

	// All tied at zero: line 0 goes first. Its replacement also starts at
	// zero usefulness, so it is still the lowest tied id and goes next.
	line, evicted := c.insert([]byte("first eviction victim replacement\n"))
	require.True(t, evicted)
	require.Equal(t, 0, line)

	line, evicted = c.insert([]byte("second eviction victim replacement\n"))
	require.True(t, evicted)
	require.Equal(t, 0, line)
}

func TestCacheDuplicateInsertRefused(t *testing.T) {
	t.Parallel()

	c := newCache()

	first, _ := c.insert([]byte("same bytes\n"))
	second, evicted := c.insert([]byte("same bytes\n"))

	require.Equal(t, first, second)
	require.False(t, evicted)
	require.Equal(t, 1, c.len())

	// Removing the entry clears the guard.
	c.remove(first)
	third, _ := c.insert([]byte("same bytes\n"))
	require.Equal(t, first, third)
}

func TestCacheBumpSaturates(t *testing.T) {
	t.Parallel()

	c := newCache()

	line, _ := c.insert([]byte("bump target entry\n"))
	c.bump(line, ^uint64(0)-5)
	c.bump(line, 100)

	require.Equal(t, ^uint64(0), c.entries[line].usefulness)

	// Bumping a free line is a no-op, not a panic.
	c.bump(line+1, 1)
}

func TestIndexSiteInvariant(t *testing.T) {
	t.Parallel()

	c := newCache()

	// 9 bytes -> 6 sites, 3 -> 0, 4 -> 1; repeated windows in the last
	// record still contribute one site per position.
	records := [][]byte{
		[]byte("abcdefgh\n"),
		[]byte("abc"),
		[]byte("abcd"),
		[]byte("hello world hello world\n"),
	}

	want := 0

	for _, r := range records {
		_, _ = c.insert(r)

		if n := len(r) - (ChunkSize - 1); n > 0 {
			want += n
		}
	}

	require.Equal(t, want, c.index.siteCount())

	// Removing an entry removes exactly its sites.
	c.remove(0)
	require.Equal(t, want-6, c.index.siteCount())

	c.remove(3)
	require.Equal(t, 1, c.index.siteCount())

	c.remove(2)
	c.remove(1)
	require.Equal(t, 0, c.index.siteCount())
	require.Empty(t, c.index)
}

func TestIndexLookup(t *testing.T) {
	t.Parallel()

	c := newCache()

	_, _ = c.insert([]byte("the quick brown fox\n"))
	_, _ = c.insert([]byte("the quiet brown cat\n"))

	sites := c.index.lookup(chunkKey([]byte("the ")))
	require.Len(t, sites, 2)

	for _, s := range sites {
		require.Equal(t, 0, s.off)
	}

	require.Empty(t, c.index.lookup(chunkKey([]byte("zzzz"))))
}
