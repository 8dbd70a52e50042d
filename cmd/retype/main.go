// Command retype recovers types from subtype constraints: it saturates
// constraint graphs, simplifies them to the constraints between interesting
// variables, and builds sketches.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"retype/internal/version"
)

// errFailed signals that diagnostics were already printed and the process
// should exit non-zero.
var errFailed = errors.New("failed")

// newRootCmd builds the command tree. finish releases the tracer and
// profiles set up by the run and must be called after Execute.
func newRootCmd() (root *cobra.Command, finish func()) {
	var cleanups []func()
	root = &cobra.Command{
		Use:           "retype",
		Short:         "Type recovery from subtype constraints",
		Long:          `retype saturates subtype constraint graphs, simplifies them and builds type sketches`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			stopTrace, err := setupTracing(cmd)
			if err != nil {
				return err
			}
			cleanups = append(cleanups, stopTrace)
			stopProf, err := setupProfiling(cmd)
			if err != nil {
				return err
			}
			cleanups = append(cleanups, stopProf)
			return nil
		},
	}
	finish = func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
		cleanups = nil
	}

	flags := root.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	flags.String("config", "", "path to retype.toml (default: search upward from the first input)")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	flags.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	flags.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 = off)")
	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file")
	flags.String("runtime-trace", "", "write a Go runtime trace to this file")

	root.AddCommand(newSolveCmd(), newSketchCmd(), newSummaryCmd(), newCheckCmd(), newCacheCmd(), newVersionCmd())
	return root, finish
}

func main() {
	root, finish := newRootCmd()
	err := root.ExecuteContext(context.Background())
	finish()
	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
