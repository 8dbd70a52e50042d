package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"retype/internal/driver"
	"retype/internal/observ"
	"retype/internal/project"
)

type solveFlags struct {
	format      string
	interesting []string
	jobs        int
	noCache     bool
	ui          string
	summaries   []string
	unicode     bool
	sketchAll   bool
}

func newSolveCmd() *cobra.Command {
	var f solveFlags
	cmd := &cobra.Command{
		Use:   "solve [flags] FILE...",
		Short: "Solve constraint files and print the simplified constraints",
		Long: `Solve every function of the given constraint files. Callees are solved
first and their summaries are instantiated at each call site (name<N>).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, args, f)
		},
	}
	addSolveFlags(cmd, &f)
	cmd.Flags().StringVar(&f.ui, "ui", "auto", "progress UI (auto|on|off)")
	cmd.Flags().BoolVar(&f.sketchAll, "sketch", false, "also print sketches of the interesting variables")
	return cmd
}

func addSolveFlags(cmd *cobra.Command, f *solveFlags) {
	cmd.Flags().StringVar(&f.format, "format", "", "output format (text|json|yaml; default from retype.toml)")
	cmd.Flags().StringSliceVar(&f.interesting, "interesting", nil, "interesting variables for every function")
	cmd.Flags().IntVar(&f.jobs, "jobs", 0, "parallel function solves (0 = from config, then GOMAXPROCS)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "do not read or write the result cache")
	cmd.Flags().StringSliceVar(&f.summaries, "summaries", nil, "summary files providing callee graphs")
	cmd.Flags().BoolVar(&f.unicode, "unicode", false, "print ⊑ instead of <=")
}

// solveOptions merges configuration and flags into driver options.
func solveOptions(g globals, args []string, f solveFlags) (driver.Options, project.Config, error) {
	cfg, err := loadConfig(g, args)
	if err != nil {
		return driver.Options{}, cfg, err
	}
	if f.format != "" {
		cfg.Output.Format = f.format
	}
	if f.unicode {
		cfg.Output.Unicode = true
	}
	if err := cfg.Validate(); err != nil {
		return driver.Options{}, cfg, err
	}
	interesting, err := parseVars(f.interesting)
	if err != nil {
		return driver.Options{}, cfg, err
	}
	cache, err := openCache(cfg, f.noCache)
	if err != nil {
		return driver.Options{}, cfg, fmt.Errorf("open cache: %w", err)
	}
	opts := driver.Options{
		Config:         cfg,
		Interesting:    interesting,
		SketchAll:      f.sketchAll,
		Jobs:           f.jobs,
		MaxDiagnostics: g.maxDiagnostics,
		Cache:          cache,
		Summaries:      f.summaries,
	}
	if g.timings {
		opts.Timer = observ.NewTimer()
	}
	return opts, cfg, nil
}

func runSolve(cmd *cobra.Command, args []string, f solveFlags) error {
	defer dumpTraceOnPanic(cmd)
	g, err := readGlobals(cmd)
	if err != nil {
		return err
	}
	mode, err := readUIMode(f.ui)
	if err != nil {
		return err
	}
	opts, cfg, err := solveOptions(g, args, f)
	if err != nil {
		return err
	}

	readBag := newBag(g)
	srcs := driver.ReadSources(args, readBag)
	var res *driver.Result
	if shouldUseTUI(mode) && !g.quiet {
		res, err = solveWithUI(cmd.Context(), "solving", srcs, opts)
	} else {
		res, err = driver.SolveSources(cmd.Context(), srcs, opts)
	}
	if err != nil {
		return err
	}
	res.Bag.Merge(readBag)
	res.Bag.Sort()
	if g.timings {
		driver.AppendTimings(res, opts.Timer, cfg.Path)
	}

	if err := writeResult(cmd.OutOrStdout(), res, cfg.Output.Format, cfg.Output.Unicode); err != nil {
		return err
	}
	if cfg.Output.Format != project.FormatJSON {
		printDiagnostics(cmd.ErrOrStderr(), g, res.Bag, res.Files)
	}
	if g.timings && !g.quiet {
		fmt.Fprint(cmd.ErrOrStderr(), opts.Timer.Summary())
	}
	if res.HasErrors() {
		dumpRingOnFailure(cmd)
		return errFailed
	}
	return nil
}
