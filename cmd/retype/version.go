package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"retype/internal/version"
)

type versionOutput struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := readGlobals(cmd); err != nil {
				return err
			}
			switch format {
			case "text":
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
				return nil
			case "json":
				return writeJSON(cmd.OutOrStdout(), versionOutput{
					Version:   version.Version,
					GitCommit: version.GitCommit,
					BuildDate: version.BuildDate,
				})
			}
			return fmt.Errorf("invalid --format value %q (expected text|json)", format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format (text|json)")
	return cmd
}
