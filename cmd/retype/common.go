package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"retype/internal/diag"
	"retype/internal/diagfmt"
	"retype/internal/driver"
	"retype/internal/project"
	"retype/internal/schema"
	"retype/internal/source"
)

// globals are the persistent flags every command reads.
type globals struct {
	color          bool
	quiet          bool
	timings        bool
	maxDiagnostics int
	configPath     string
}

func readGlobals(cmd *cobra.Command) (globals, error) {
	flags := cmd.Root().PersistentFlags()
	var g globals
	colorFlag, _ := flags.GetString("color")
	switch colorFlag {
	case "on":
		g.color = true
	case "off":
	case "auto", "":
		g.color = isTerminal(os.Stdout) && !color.NoColor
	default:
		return g, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
	g.quiet, _ = flags.GetBool("quiet")
	g.timings, _ = flags.GetBool("timings")
	g.maxDiagnostics, _ = flags.GetInt("max-diagnostics")
	g.configPath, _ = flags.GetString("config")
	color.NoColor = !g.color
	return g, nil
}

// loadConfig reads --config, or searches upward from the first input.
func loadConfig(g globals, inputs []string) (project.Config, error) {
	var (
		cfg project.Config
		err error
	)
	switch {
	case g.configPath != "":
		cfg, err = project.LoadFile(g.configPath)
	case len(inputs) > 0:
		cfg, err = project.Load(filepath.Dir(inputs[0]))
	default:
		cfg, err = project.Load(".")
	}
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// parseVars parses comma or space separated type variables.
func parseVars(list []string) ([]schema.TypeVariable, error) {
	var out []schema.TypeVariable
	for _, item := range list {
		for _, name := range strings.FieldsFunc(item, func(r rune) bool { return r == ',' || r == ' ' }) {
			tv, err := schema.ParseVar(name)
			if err != nil {
				return nil, fmt.Errorf("variable %q: %w", name, err)
			}
			out = append(out, tv)
		}
	}
	return out, nil
}

// openCache returns nil when caching is off.
func openCache(cfg project.Config, disabled bool) (*driver.DiskCache, error) {
	if disabled || !cfg.Cache.Enabled {
		return nil, nil
	}
	return driver.OpenDiskCache(cfg.Cache.Dir)
}

// printDiagnostics writes bag to w in pretty form. Info diagnostics are
// dropped with --quiet.
func printDiagnostics(w io.Writer, g globals, bag *diag.Bag, fs *source.FileSet) {
	if bag == nil || bag.Len() == 0 {
		return
	}
	shown := bag
	if g.quiet {
		shown = diag.NewBag(bag.Len())
		for _, d := range bag.Items() {
			if d.Severity.AtLeast(diag.SevWarning) {
				shown.Add(d)
			}
		}
	}
	diagfmt.Pretty(w, shown, fs, diagfmt.PrettyOpts{
		Color:     g.color,
		Context:   1,
		ShowNotes: true,
	})
}

func newBag(g globals) *diag.Bag {
	limit := g.maxDiagnostics
	if limit <= 0 {
		limit = 100
	}
	return diag.NewBag(limit)
}
