package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"retype/internal/driver"
	"retype/internal/source"
	"retype/internal/summary"
)

type summaryFlags struct {
	solveFlags
	output string
	read   string
}

func newSummaryCmd() *cobra.Command {
	var f summaryFlags
	cmd := &cobra.Command{
		Use:   "summary [flags] FILE...",
		Short: "Write the DOT summaries of solved functions",
		Long: `Solve the given files and write one DOT graph per function. The output
can be passed back with --summaries so callers in other files see these
functions as callees. With --read FILE the summaries in FILE are checked
and printed back in canonical form.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.read != "" {
				return runSummaryRead(cmd, f.read)
			}
			if len(args) == 0 {
				return fmt.Errorf("requires at least 1 constraint file or --read")
			}
			return runSummary(cmd, args, f)
		},
	}
	addSolveFlags(cmd, &f.solveFlags)
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write summaries to this file instead of stdout")
	cmd.Flags().StringVar(&f.read, "read", "", "parse a summary file and print it back")
	return cmd
}

func runSummary(cmd *cobra.Command, args []string, f summaryFlags) error {
	defer dumpTraceOnPanic(cmd)
	g, err := readGlobals(cmd)
	if err != nil {
		return err
	}
	opts, _, err := solveOptions(g, args, f.solveFlags)
	if err != nil {
		return err
	}
	readBag := newBag(g)
	res, err := driver.SolveSources(cmd.Context(), driver.ReadSources(args, readBag), opts)
	if err != nil {
		return err
	}
	res.Bag.Merge(readBag)
	res.Bag.Sort()

	var out bytes.Buffer
	for _, fn := range res.Functions {
		if fn.Err != nil || fn.Summary == "" {
			continue
		}
		out.WriteString(fn.Summary)
		if !strings.HasSuffix(fn.Summary, "\n") {
			out.WriteByte('\n')
		}
	}
	if f.output != "" {
		if err := os.WriteFile(f.output, out.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write summaries: %w", err)
		}
	} else if _, err := cmd.OutOrStdout().Write(out.Bytes()); err != nil {
		return err
	}
	printDiagnostics(cmd.ErrOrStderr(), g, res.Bag, res.Files)
	if res.HasErrors() {
		dumpRingOnFailure(cmd)
		return errFailed
	}
	return nil
}

func runSummaryRead(cmd *cobra.Command, path string) error {
	g, err := readGlobals(cmd)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fs := source.NewFileSet()
	sums, bag := summary.ParseSource(fs, path, data)
	if err := summary.WriteAll(cmd.OutOrStdout(), sums); err != nil {
		return err
	}
	printDiagnostics(cmd.ErrOrStderr(), g, bag, fs)
	if bag.HasErrors() {
		return errFailed
	}
	return nil
}
