package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/peterh/liner"

	"github.com/bahusvel/dssc/pkg/chunkmap"
)

// The interactive mode compresses typed lines one at a time against a live
// history cache and shows the resulting block layout. It is a debugging
// surface for the chunkmap codec, not a transport.

var errInteractiveAlgorithm = errors.New("interactive mode only supports the chunkmap algorithm")

// historyFile returns the liner history path, or empty if unknown.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".linedssc_history")
}

type repl struct {
	enc   *chunkmap.Encoder
	liner *liner.State
	out   io.Writer
}

func runREPL(out, errOut io.Writer, cfg Config, logger log.Logger) int {
	if cfg.Algorithm != "" && cfg.Algorithm != "chunkmap" {
		fprintln(errOut, "error:", errInteractiveAlgorithm)
		return 1
	}

	r := &repl{
		enc: chunkmap.NewEncoder(chunkmap.Options{
			Threshold: cfg.Threshold,
			Logger:    logger,
		}),
		out: out,
	}

	if err := r.run(); err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}

	return 0
}

func (r *repl) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(func(line string) []string {
		var matches []string

		for _, cmd := range []string{":help", ":stats", ":quit"} {
			if strings.HasPrefix(cmd, line) {
				matches = append(matches, cmd)
			}
		}

		return matches
	})

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}

	fprintln(r.out, "linedssc interactive inspector")
	fprintln(r.out, "Type a line to compress it; :help for commands.")
	fprintln(r.out, "")

	for {
		line, err := r.liner.Prompt("linedssc> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fprintln(r.out, "")

				r.saveHistory()

				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		switch strings.TrimSpace(line) {
		case ":quit", ":q":
			r.saveHistory()
			return nil

		case ":help", ":?":
			fprintln(r.out, "  <text>   compress <text>\\n against the current history")
			fprintln(r.out, "  :stats   cumulative encoder statistics")
			fprintln(r.out, "  :quit    exit")

		case ":stats":
			r.printStats()

		default:
			r.inspect(line)
		}
	}
}

// inspect encodes one typed line and prints the block layout.
func (r *repl) inspect(line string) {
	record := []byte(line + "\n")

	frame, blocks := r.enc.EncodeTrace(record)

	for _, b := range blocks {
		fprintln(r.out, " ", b.String(), "=", quoteRange(record, b.RecordOff, b.Len))
	}

	fprintln(r.out, fmt.Sprintf("  %d -> %d bytes (%.3f), %d cached lines",
		len(record), len(frame), float64(len(frame))/float64(len(record)), r.enc.Len()))
}

func (r *repl) printStats() {
	s := r.enc.Stats()
	fprintln(r.out, fmt.Sprintf("  records=%d raw=%d wire=%d delta=%d literal=%d inserts=%d evictions=%d",
		s.Records, s.RawBytes, s.WireBytes, s.DeltaBytes, s.LiteralBytes, s.Inserts, s.Evictions))
}

func (r *repl) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}

	if f, err := os.Create(path); err == nil { //nolint:gosec // fixed path under $HOME
		_, _ = r.liner.WriteHistory(f)
		_ = f.Close()
	}
}

// quoteRange renders record[off:off+n] for display.
func quoteRange(record []byte, off, n int) string {
	return fmt.Sprintf("%q", record[off:off+n])
}
