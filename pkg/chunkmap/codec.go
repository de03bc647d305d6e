package chunkmap

import (
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Options configure an Encoder or Decoder.
type Options struct {
	// Threshold is the compression ratio (compressed/raw) above which a
	// record is admitted to the history cache. Zero or negative means
	// DefaultThreshold. Both ends of a stream must use the same value.
	Threshold float64

	// Logger receives one debug record per cache admission (line, ratio,
	// whether it evicted). Nil means no logging.
	Logger log.Logger
}

func (o Options) threshold() float64 {
	if o.Threshold <= 0 {
		return DefaultThreshold
	}

	return o.Threshold
}

func (o Options) logger() log.Logger {
	if o.Logger == nil {
		return log.NewNopLogger()
	}

	return o.Logger
}

// Stats are cumulative per-instance counters. They are observational only
// and play no part in the wire format.
type Stats struct {
	Records      uint64
	RawBytes     uint64
	WireBytes    uint64
	DeltaBytes   uint64 // record bytes covered by delta blocks
	LiteralBytes uint64 // record bytes carried literally
	Inserts      uint64
	Evictions    uint64
}

// Encoder compresses a stream of records against its own history cache.
// Not safe for concurrent use.
type Encoder struct {
	cache     *cache
	threshold float64
	logger    log.Logger
	stats     Stats
}

// NewEncoder returns an Encoder with an empty history.
func NewEncoder(opts Options) *Encoder {
	return &Encoder{
		cache:     newCache(),
		threshold: opts.threshold(),
		logger:    opts.logger(),
	}
}

// Encode compresses record and returns the block stream. The returned
// buffer is freshly allocated and owned by the caller.
//
// Encoding cannot fail: a record with no history coverage degrades to a
// single literal block.
func (e *Encoder) Encode(record []byte) []byte {
	out, _ := e.encode(record)
	return out
}

// EncodeTrace is Encode plus the emitted block layout, for inspection.
func (e *Encoder) EncodeTrace(record []byte) ([]byte, []BlockInfo) {
	return e.encode(record)
}

func (e *Encoder) encode(record []byte) ([]byte, []BlockInfo) {
	runs := e.cache.matchRuns(record)

	// Serialise, filling gaps between runs with literal blocks. Delta
	// usefulness is bumped here, during emission, by the same amounts the
	// decoder will bump during parse.
	var (
		out    []byte
		blocks []BlockInfo
	)

	pos := 0

	for _, r := range runs {
		if gap := r.needleOff - pos; gap > 0 {
			out = appendOriginal(out, record[pos:r.needleOff])
			blocks = append(blocks, BlockInfo{RecordOff: pos, Len: gap})
			e.stats.LiteralBytes += uint64(gap)
		}

		out = appendDelta(out, r)
		blocks = append(blocks, BlockInfo{
			Delta:      true,
			Line:       r.line,
			LineOffset: r.lineOff,
			RecordOff:  r.needleOff,
			Len:        r.length,
		})
		e.cache.bump(r.line, uint64(r.length))
		e.stats.DeltaBytes += uint64(r.length)
		pos = r.needleOff + r.length
	}

	if pos < len(record) {
		out = appendOriginal(out, record[pos:])
		blocks = append(blocks, BlockInfo{RecordOff: pos, Len: len(record) - pos})
		e.stats.LiteralBytes += uint64(len(record) - pos)
	}

	e.stats.Records++
	e.stats.RawBytes += uint64(len(record))
	e.stats.WireBytes += uint64(len(out))

	e.maybeInsert(record, len(out), len(record))

	return out, blocks
}

// maybeInsert applies the adaptive-admission rule shared by both sides:
// insert when compressed/raw exceeds the threshold. wire and raw are plain
// byte lengths on both sides, so encoder and decoder admit (and evict) in
// lockstep.
func (e *Encoder) maybeInsert(record []byte, wire, raw int) {
	if raw == 0 {
		return
	}

	ratio := float64(wire) / float64(raw)
	if ratio <= e.threshold {
		return
	}

	line, evicted := e.cache.insert(record)

	e.stats.Inserts++
	if evicted {
		e.stats.Evictions++
	}

	level.Debug(e.logger).Log("msg", "cached record", "line", line, "ratio", ratio, "evicted", evicted)
}

// Stats returns the counters accumulated so far.
func (e *Encoder) Stats() Stats { return e.stats }

// Len returns the number of cached history entries.
func (e *Encoder) Len() int { return e.cache.len() }

// Decoder reconstructs records and mirrors the encoder's cache evolution.
// Not safe for concurrent use.
type Decoder struct {
	cache     *cache
	threshold float64
	logger    log.Logger
	stats     Stats
}

// NewDecoder returns a Decoder with an empty history.
func NewDecoder(opts Options) *Decoder {
	return &Decoder{
		cache:     newCache(),
		threshold: opts.threshold(),
		logger:    opts.logger(),
	}
}

// Decode parses one block stream and returns the reconstructed record.
//
// On ErrMalformed or ErrDesync the decoder's cache is untouched; the record
// is rejected as a unit.
func (d *Decoder) Decode(frame []byte) ([]byte, error) {
	record, blocks, err := parseBlocks(frame, d.cache)
	if err != nil {
		return nil, err
	}

	// Parse succeeded; apply the cache side-effects the encoder applied.
	for _, b := range blocks {
		if !b.Delta {
			d.stats.LiteralBytes += uint64(b.Len)
			continue
		}

		d.cache.bump(b.Line, uint64(b.Len))
		d.stats.DeltaBytes += uint64(b.Len)
	}

	d.stats.Records++
	d.stats.RawBytes += uint64(len(record))
	d.stats.WireBytes += uint64(len(frame))

	if len(record) != 0 {
		ratio := float64(len(frame)) / float64(len(record))
		if ratio > d.threshold {
			line, evicted := d.cache.insert(record)

			d.stats.Inserts++
			if evicted {
				d.stats.Evictions++
			}

			level.Debug(d.logger).Log("msg", "cached record", "line", line, "ratio", ratio, "evicted", evicted)
		}
	}

	return record, nil
}

// Stats returns the counters accumulated so far.
func (d *Decoder) Stats() Stats { return d.stats }

// Len returns the number of cached history entries.
func (d *Decoder) Len() int { return d.cache.len() }
