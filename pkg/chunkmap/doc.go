// Package chunkmap implements a chunk-indexed delta codec for line-sized
// records.
//
// Every record is compressed against a bounded history of previously seen
// records. The history is held in a cache of at most MaxLines entries, and a
// chunk index maps every 4-byte window of every cached entry to the sites
// where it occurs. Encoding greedily locates long shared substrings via the
// index, extends them byte-wise, and emits a mixed stream of delta blocks
// (copy from a cached entry) and original blocks (literal bytes).
//
// The history itself is never transmitted. The decoder rebuilds the record
// from the block stream and then applies the exact same cache-admission rule
// the encoder applied, so both sides converge on identical caches without
// any cache-control messages.
//
// # Usage
//
//	enc := chunkmap.NewEncoder(chunkmap.Options{})
//	dec := chunkmap.NewDecoder(chunkmap.Options{})
//
//	frame := enc.Encode(record)
//	got, err := dec.Decode(frame)
//
// An Encoder and a Decoder each own their cache and are not safe for
// concurrent use. Independent pairs share nothing and may run in parallel.
package chunkmap
