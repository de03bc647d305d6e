// Package cli implements the linedssc command: a line-oriented delta
// stream compressor speaking varint-framed records on files or pipes.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	flag "github.com/spf13/pflag"

	"github.com/bahusvel/dssc/pkg/compressor"
)

// Run is the main entry point. Returns the process exit code.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string) int {
	flags := flag.NewFlagSet("linedssc", flag.ContinueOnError)
	flags.SetOutput(&strings.Builder{})
	flags.Usage = func() {}

	flagHelp := flags.BoolP("help", "h", false, "Show help")
	flagDecompress := flags.BoolP("decompress", "d", false, "Decode instead of encode")
	flagThreshold := flags.Float64P("threshold", "t", 0, "Cache-admission ratio (default 0.5)")
	flagAlgorithm := flags.StringP("algorithm", "a", "", "Compression algorithm")
	flagConfig := flags.StringP("config", "c", "", "Use specified config `file`")
	flagInteractive := flags.BoolP("interactive", "i", false, "Inspect compression line by line")
	flagStats := flags.Bool("stats", false, "Print stream statistics on exit")
	flagVerbose := flags.Bool("verbose", false, "Log codec activity to stderr")

	if err := flags.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			printUsage(out, flags)
			return 0
		}

		fprintln(errOut, "error:", err)

		return 1
	}

	if *flagHelp {
		printUsage(out, flags)
		return 0
	}

	workDir, err := os.Getwd()
	if err != nil {
		fprintln(errOut, "error: resolving working directory:", err)
		return 1
	}

	cfg, err := LoadConfig(workDir, *flagConfig, env)
	if err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}

	if flags.Changed("threshold") {
		cfg.Threshold = *flagThreshold
	}

	if flags.Changed("algorithm") {
		cfg.Algorithm = *flagAlgorithm
	}

	logger := log.NewNopLogger()
	if *flagVerbose {
		logger = level.NewFilter(
			log.NewLogfmtLogger(log.NewSyncWriter(errOut)),
			level.AllowDebug(),
		)
	}

	if *flagInteractive {
		return runREPL(out, errOut, cfg, logger)
	}

	codec, err := compressor.New(cfg.Algorithm, compressor.Options{
		Threshold: cfg.Threshold,
		Logger:    logger,
	})
	if err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}

	positional := flags.Args()
	if len(positional) > 2 {
		fprintln(errOut, "error: too many arguments")
		printUsage(errOut, flags)

		return 1
	}

	inputPath, outputPath := "-", "-"
	if len(positional) > 0 {
		inputPath = positional[0]
	}

	if len(positional) > 1 {
		outputPath = positional[1]
	}

	stats, err := runPipeline(codec, *flagDecompress, inputPath, outputPath, in, out)
	if err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}

	if *flagStats {
		stats.print(errOut, *flagDecompress)
	}

	return 0
}

func printUsage(w io.Writer, flags *flag.FlagSet) {
	fprintln(w, "Usage: linedssc [flags] [input] [output]")
	fprintln(w, "")
	fprintln(w, "Compresses a stream of lines against an adaptive history of prior")
	fprintln(w, "lines. input and output default to - (stdin/stdout).")
	fprintln(w, "")
	fprintln(w, "Algorithms:", strings.Join(compressor.Names(), ", "))
	fprintln(w, "")
	fprintln(w, "Flags:")

	var buf strings.Builder
	flags.SetOutput(&buf)
	flags.PrintDefaults()
	fmt.Fprint(w, buf.String())
}

// fprintln writes a line, ignoring I/O errors on the diagnostic path.
func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}
