package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"twinfind/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the result cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show result cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMaintenanceCache(cmd, ctx, func(c *cache.Cache) error {
				stats, err := c.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Path:    %s\n", stats.Path)
				fmt.Fprintf(out, "Size:    %s\n", humanize.IBytes(uint64(max(stats.SizeBytes, 0))))
				fmt.Fprintf(out, "Files:   %s\n", humanize.Comma(stats.Files))
				fmt.Fprintf(out, "Entries: %s\n", humanize.Comma(stats.Rows))
				if len(stats.ByKind) == 0 {
					return nil
				}
				kinds := make([]cache.Kind, 0, len(stats.ByKind))
				for k := range stats.ByKind {
					kinds = append(kinds, k)
				}
				slices.Sort(kinds)
				rows := make([][]string, 0, len(kinds))
				for _, k := range kinds {
					rows = append(rows, []string{string(k), strconv.FormatInt(stats.ByKind[k], 10)})
				}
				fmt.Fprintln(out, renderTable([]string{"Kind", "Entries"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop entries for files that were removed or changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMaintenanceCache(cmd, ctx, func(c *cache.Cache) error {
				removed, err := c.Prune(cmd.Context())
				if err != nil {
					return err
				}
				if removed == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No cache entries pruned")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s\n", countOf(removed, "stale entry"))
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMaintenanceCache(cmd, ctx, func(c *cache.Cache) error {
				removed, err := c.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", countOf(removed, "cache entry"))
				return nil
			})
		},
	}
}

// withMaintenanceCache opens the cache under the exclusive lock.
func withMaintenanceCache(cmd *cobra.Command, ctx *commandContext, fn func(*cache.Cache) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		fmt.Fprintln(cmd.OutOrStdout(), "Result cache is disabled (set enabled = true in the [cache] section)")
		return nil
	}
	logger, err := newLogger(cfg, "cli-cache")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	c, err := cache.Open(cmd.Context(), cache.Options{
		Path:        cfg.Cache.Path,
		MinFileSize: cfg.Cache.MinFileSize,
		Exclusive:   true,
		Logger:      logger,
	})
	if err != nil {
		if errors.Is(err, cache.ErrLocked) {
			return fmt.Errorf("cache %s is in use by a running scan", cfg.Cache.Path)
		}
		return fmt.Errorf("open cache: %w", err)
	}
	defer c.Close()
	return fn(c)
}
