// Package compressor abstracts the per-record compression algorithms the
// CLI can drive: the chunk-indexed delta codec, the convolve XOR-delta
// codec, and stateless baselines (flate, snappy, lz4) used for comparison.
//
// Every Codec consumes and produces whole records; the stream framing lives
// in package framing. Stateful codecs (chunkmap, convolve) assume records
// arrive in stream order on both sides.
package compressor

import (
	"fmt"
	"sort"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"
)

// Codec compresses and decompresses one record at a time. Implementations
// are not safe for concurrent use; in the history codecs the Encode and
// Decode sides own independent histories, so one instance can serve both
// ends of a test harness without cross-talk.
type Codec interface {
	// Encode compresses record into a fresh buffer.
	Encode(record []byte) ([]byte, error)
	// Decode reconstructs the record from one encoded frame.
	Decode(frame []byte) ([]byte, error)
}

// ErrUnknownAlgorithm is returned by New for names not in Names.
var ErrUnknownAlgorithm = errors.New("compressor: unknown algorithm")

// ErrMalformed indicates an encoded frame that does not parse.
var ErrMalformed = errors.New("compressor: malformed frame")

// ErrDesync indicates a frame referencing history this side does not have.
var ErrDesync = errors.New("compressor: history desync")

// Options configure codec construction. Baselines ignore both fields.
type Options struct {
	// Threshold is the cache-admission ratio for the history codecs.
	// Zero means the codec default.
	Threshold float64

	// Logger receives debug records. Nil means no logging.
	Logger log.Logger
}

// DefaultAlgorithm is the codec the CLI selects when -a is not given.
const DefaultAlgorithm = "chunkmap"

var builders = map[string]func(Options) Codec{
	"chunkmap": newChunkmap,
	"convolve": newConvolve,
	"flate":    newFlate,
	"snappy":   newSnappy,
	"lz4":      newLZ4,
}

// New constructs the named codec.
func New(name string, opts Options) (Codec, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownAlgorithm, name, Names())
	}

	return build(opts), nil
}

// Names lists the available algorithms, sorted.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
