package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/prchanges/internal/cache"
	"github.com/dshills/prchanges/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the commit diff cache",
}

func openCache() (*cache.Cache, error) {
	cfg, err := config.Load(flagConfig, nil)
	if err != nil {
		return nil, err
	}
	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached commit diffs",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			fail(cmd, err)
			return nil
		}
		if !c.Enabled() {
			fmt.Fprintln(cmd.OutOrStdout(), "Cache is disabled.")
			return nil
		}
		n, err := c.Clear()
		if err != nil {
			fail(cmd, fmt.Errorf("clearing cache: %w", err))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared (%d entries removed).\n", n)
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			fail(cmd, err)
			return nil
		}
		if !c.Enabled() {
			fmt.Fprintln(cmd.OutOrStdout(), "Cache is disabled.")
			return nil
		}
		stats, err := c.GetStats()
		if err != nil {
			fail(cmd, fmt.Errorf("reading cache stats: %w", err))
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Directory: %s\n", stats.Dir)
		fmt.Fprintf(out, "Entries:   %d\n", stats.Entries)
		fmt.Fprintf(out, "Size:      %s (%s uncompressed)\n", humanize.Bytes(uint64(stats.TotalBytes)), humanize.Bytes(uint64(stats.RawBytes)))
		fmt.Fprintf(out, "Expired:   %d\n", stats.Expired)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheShowCmd)
}
