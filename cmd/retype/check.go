package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"retype/internal/diag"
	"retype/internal/diagfmt"
	"retype/internal/driver"
)

func newCheckCmd() *cobra.Command {
	var (
		format    string
		summaries []string
	)
	cmd := &cobra.Command{
		Use:   "check [flags] FILE...",
		Short: "Parse and link constraint files without solving",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGlobals(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(g, args)
			if err != nil {
				return err
			}
			readBag := newBag(g)
			srcs := driver.ReadSources(args, readBag)
			res := driver.Check(cmd.Context(), srcs, driver.Options{
				Config:         cfg,
				MaxDiagnostics: g.maxDiagnostics,
				Summaries:      summaries,
			})
			res.Bag.Merge(readBag)
			res.Bag.Sort()

			w := cmd.OutOrStdout()
			switch format {
			case "pretty":
				printDiagnostics(cmd.ErrOrStderr(), g, res.Bag, res.Files)
				if !g.quiet {
					for i, wave := range res.Waves {
						fmt.Fprintf(w, "wave %d: %s\n", i, strings.Join(wave, " "))
					}
				}
			case "short":
				if short := diag.FormatShort(res.Bag.Items(), res.Files, true); short != "" {
					fmt.Fprintln(w, short)
				}
			case "json":
				if err := diagfmt.JSON(w, res.Bag, res.Files, diagfmt.JSONOpts{IncludePositions: true, IncludeNotes: true, Max: g.maxDiagnostics}); err != nil {
					return err
				}
			default:
				return fmt.Errorf("invalid --format value %q (expected pretty|short|json)", format)
			}
			if res.Bag.HasErrors() {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "pretty", "diagnostics format (pretty|short|json)")
	cmd.Flags().StringSliceVar(&summaries, "summaries", nil, "summary files providing callee graphs")
	return cmd
}
