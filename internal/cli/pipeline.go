package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"

	"github.com/bahusvel/dssc/pkg/compressor"
	"github.com/bahusvel/dssc/pkg/framing"
)

// streamStats counts one pipeline run.
type streamStats struct {
	records  uint64
	bytesIn  uint64
	bytesOut uint64
}

func (s streamStats) print(w io.Writer, decompress bool) {
	verb := "compressed"
	if decompress {
		verb = "decompressed"
	}

	ratio := 0.0
	if s.bytesIn > 0 {
		ratio = float64(s.bytesOut) / float64(s.bytesIn)
	}

	fprintln(w, fmt.Sprintf("%s %d records: %s in, %s out (%.3f)",
		verb, s.records, humanize.Bytes(s.bytesIn), humanize.Bytes(s.bytesOut), ratio))
}

// runPipeline wires input, codec and output together. Paths of "-" mean the
// provided stdin/stdout streams. A file output is staged in memory and
// published atomically, so a mid-stream failure never leaves a partial
// file behind.
func runPipeline(codec compressor.Codec, decompress bool, inputPath, outputPath string, stdin io.Reader, stdout io.Writer) (streamStats, error) {
	input := stdin

	if inputPath != "-" {
		f, err := os.Open(inputPath) //nolint:gosec // user-supplied path is the point
		if err != nil {
			return streamStats{}, err
		}

		defer func() { _ = f.Close() }()

		input = f
	}

	var (
		output  io.Writer = stdout
		staging *bytes.Buffer
	)

	if outputPath != "-" {
		staging = &bytes.Buffer{}
		output = staging
	}

	var (
		stats streamStats
		err   error
	)

	if decompress {
		stats, err = decodeStream(codec, input, output)
	} else {
		stats, err = encodeStream(codec, input, output)
	}

	if err != nil {
		return stats, err
	}

	if staging != nil {
		if err := atomic.WriteFile(outputPath, bytes.NewReader(staging.Bytes())); err != nil {
			return stats, fmt.Errorf("writing %s: %w", outputPath, err)
		}
	}

	return stats, nil
}

// encodeStream reads records (lines, delimiter included) from in and writes
// one frame per record. A final line without a trailing linefeed is still a
// record.
func encodeStream(codec compressor.Codec, in io.Reader, out io.Writer) (streamStats, error) {
	var stats streamStats

	reader := bufio.NewReader(in)
	frames := framing.NewWriter(out)

	for {
		record, readErr := reader.ReadBytes('\n')

		if len(record) > 0 {
			frame, err := codec.Encode(record)
			if err != nil {
				return stats, err
			}

			if err := frames.WriteRecord(frame); err != nil {
				return stats, err
			}

			stats.records++
			stats.bytesIn += uint64(len(record))
			stats.bytesOut += uint64(len(frame)) + uint64(framing.LenPrefixSize(len(frame)))
		}

		if readErr == io.EOF {
			return stats, nil
		}

		if readErr != nil {
			return stats, readErr
		}
	}
}

// decodeStream reads frames from in and writes the reconstructed records to
// out.
func decodeStream(codec compressor.Codec, in io.Reader, out io.Writer) (streamStats, error) {
	var stats streamStats

	frames := framing.NewReader(in)

	for {
		frame, err := frames.ReadRecord()
		if err == io.EOF {
			return stats, nil
		}

		if err != nil {
			return stats, err
		}

		record, err := codec.Decode(frame)
		if err != nil {
			return stats, err
		}

		if _, err := out.Write(record); err != nil {
			return stats, err
		}

		stats.records++
		stats.bytesIn += uint64(len(frame)) + uint64(framing.LenPrefixSize(len(frame)))
		stats.bytesOut += uint64(len(record))
	}
}
