package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"retype/internal/driver"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Remove every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := readGlobals(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(g, nil)
			if err != nil {
				return err
			}
			cache, err := driver.OpenDiskCache(cfg.Cache.Dir)
			if err != nil {
				return err
			}
			if err := cache.DropAll(); err != nil {
				return fmt.Errorf("clean %s: %w", cache.Dir(), err)
			}
			if !g.quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", cache.Dir())
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "dir",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := readGlobals(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(g, nil)
			if err != nil {
				return err
			}
			dir := cfg.Cache.Dir
			if dir == "" {
				if dir, err = driver.DefaultCacheDir(); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	})
	return cmd
}
