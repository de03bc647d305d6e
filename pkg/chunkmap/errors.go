package chunkmap

import "errors"

// Error classification for decode failures.
//
// Callers MUST classify with errors.Is; messages may carry extra context.
var (
	// ErrMalformed indicates a byte stream that does not parse: varint
	// overflow or truncation, a literal block running past the end of the
	// frame, or trailing bytes after the last block.
	ErrMalformed = errors.New("chunkmap: malformed input")

	// ErrDesync indicates a parseable stream that references history the
	// decoder does not have: an unallocated line, or a copy range outside
	// the referenced entry. The encoder and decoder caches have diverged
	// and the stream cannot be trusted past this record.
	ErrDesync = errors.New("chunkmap: history cache desync")
)
