package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"retype/internal/driver"
	"retype/internal/project"
	"retype/internal/sketch"
)

type sketchFlags struct {
	solveFlags
	vars      []string
	functions []string
	merge     string
}

func newSketchCmd() *cobra.Command {
	var f sketchFlags
	cmd := &cobra.Command{
		Use:   "sketch [flags] FILE...",
		Short: "Print sketches of type variables",
		Long: `Solve the given files and print the sketch of every --var in every
function where it occurs. With --merge the sketches of one variable across
functions are combined by lattice join or meet.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSketch(cmd, args, f)
		},
	}
	addSolveFlags(cmd, &f.solveFlags)
	cmd.Flags().StringSliceVar(&f.vars, "var", nil, "variables to sketch (default: the interesting set)")
	cmd.Flags().StringSliceVar(&f.functions, "fn", nil, "only these functions")
	cmd.Flags().StringVar(&f.merge, "merge", "", "combine sketches of a variable across functions (join|meet)")
	return cmd
}

func runSketch(cmd *cobra.Command, args []string, f sketchFlags) error {
	defer dumpTraceOnPanic(cmd)
	g, err := readGlobals(cmd)
	if err != nil {
		return err
	}
	var merge func(a, b *sketch.Sketch) (*sketch.Sketch, error)
	switch f.merge {
	case "":
	case "join":
		merge = sketch.Join
	case "meet":
		merge = sketch.Meet
	default:
		return fmt.Errorf("invalid --merge value %q (expected join|meet)", f.merge)
	}
	opts, cfg, err := solveOptions(g, args, f.solveFlags)
	if err != nil {
		return err
	}
	if opts.Sketch, err = parseVars(f.vars); err != nil {
		return err
	}
	opts.SketchAll = len(opts.Sketch) == 0

	readBag := newBag(g)
	res, err := driver.SolveSources(cmd.Context(), driver.ReadSources(args, readBag), opts)
	if err != nil {
		return err
	}
	res.Bag.Merge(readBag)
	res.Bag.Sort()

	var selected []*driver.FunctionResult
	for _, fn := range res.Functions {
		if len(f.functions) == 0 || slices.Contains(f.functions, fn.Name) {
			selected = append(selected, fn)
		}
	}
	if merge != nil {
		merged, err := mergeSketches(selected, merge)
		if err != nil {
			return err
		}
		if err := writeSketches(cmd.OutOrStdout(), merged, cfg.Output.Format); err != nil {
			return err
		}
	} else {
		for _, fn := range selected {
			if len(fn.Sketches) == 0 {
				continue
			}
			if cfg.Output.Format == project.FormatText {
				fmt.Fprintf(cmd.OutOrStdout(), "fn %s\n", fn.Name)
			}
			if err := writeSketches(cmd.OutOrStdout(), fn.Sketches, cfg.Output.Format); err != nil {
				return err
			}
		}
	}
	printDiagnostics(cmd.ErrOrStderr(), g, res.Bag, res.Files)
	if res.HasErrors() {
		dumpRingOnFailure(cmd)
		return errFailed
	}
	return nil
}

// mergeSketches folds the sketches of each variable, in function order.
func mergeSketches(fns []*driver.FunctionResult, merge func(a, b *sketch.Sketch) (*sketch.Sketch, error)) ([]*sketch.Sketch, error) {
	var order []string
	byVar := map[string]*sketch.Sketch{}
	for _, fn := range fns {
		for _, s := range fn.Sketches {
			key := s.Var.String()
			prev, ok := byVar[key]
			if !ok {
				byVar[key] = s
				order = append(order, key)
				continue
			}
			m, err := merge(prev, s)
			if err != nil {
				return nil, fmt.Errorf("merge %s from fn %s: %w", key, fn.Name, err)
			}
			byVar[key] = m
		}
	}
	out := make([]*sketch.Sketch, len(order))
	for i, key := range order {
		out[i] = byVar[key]
	}
	return out, nil
}

func writeSketches(w io.Writer, ss []*sketch.Sketch, format string) error {
	for _, s := range ss {
		switch format {
		case project.FormatYAML:
			data, err := s.YAML()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "---\n%s", data)
		case project.FormatJSON:
			if err := writeJSON(w, s.Doc()); err != nil {
				return err
			}
		default:
			fmt.Fprint(w, s.String())
		}
	}
	return nil
}
