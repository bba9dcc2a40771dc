package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"twinfind/internal/cache"
	"twinfind/internal/config"
	"twinfind/internal/entry"
	"twinfind/internal/progress"
	"twinfind/internal/report"
	"twinfind/internal/similar"
)

func newImagesCommand(ctx *commandContext) *cobra.Command {
	var flags scanFlags
	var hashSize, maxDistance int
	var algorithm, filter, similarity, linkage string
	var excludeSameSize bool

	cmd := &cobra.Command{
		Use:   "images [dirs...]",
		Short: "Find visually similar images",
		Long: "Compute a perceptual hash for every image and group images whose hashes\n" +
			"differ by at most the distance allowed by --similarity for the hash size.",
		RunE: func(cmd *cobra.Command, args []string) error {
			tool := scanTool{
				name: "images",
				extensions: func(cfg *config.Config) []string {
					return cfg.Images.Extensions
				},
				prepare: func(cmd *cobra.Command, cfg *config.Config) (runner, error) {
					f := cmd.Flags()
					if f.Changed("hash-size") {
						cfg.Images.HashSize = hashSize
					}
					if f.Changed("algorithm") {
						cfg.Images.Algorithm = strings.ToLower(strings.TrimSpace(algorithm))
					}
					if f.Changed("filter") {
						cfg.Images.Filter = strings.ToLower(strings.TrimSpace(filter))
					}
					if f.Changed("similarity") {
						cfg.Images.Similarity = strings.ToLower(strings.TrimSpace(similarity))
					}
					if f.Changed("max-distance") {
						cfg.Images.MaxDistance = maxDistance
					}
					if f.Changed("linkage") {
						cfg.Images.Linkage = strings.ToLower(strings.TrimSpace(linkage))
					}
					if f.Changed("exclude-same-size") {
						cfg.Images.ExcludeSameSize = excludeSameSize
					}
					opts, err := similar.OptionsFromConfig(cfg)
					if err != nil {
						return nil, err
					}
					return func(ctx context.Context, c *cache.Cache, logger *slog.Logger, src entry.Source, sink progress.Sink) (report.Report, error) {
						finder, err := similar.New(opts, c, logger)
						if err != nil {
							return nil, err
						}
						return finder.Run(ctx, src, sink)
					}, nil
				},
				render: renderImages,
			}
			return runScan(cmd, ctx, &flags, tool, args)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&hashSize, "hash-size", 0, "Hash side length: 8, 16, 32 or 64")
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "Hash algorithm: gradient, mean, block, double_gradient")
	cmd.Flags().StringVar(&filter, "filter", "", "Resize filter: nearest, linear, cubic, gaussian, lanczos")
	cmd.Flags().StringVarP(&similarity, "similarity", "s", "", "Similarity level: identical, very_high, high, medium, small, very_small, minimal")
	cmd.Flags().IntVar(&maxDistance, "max-distance", -1, "Lower the level's distance ceiling")
	cmd.Flags().StringVar(&linkage, "linkage", "", "Grouping: representative or chained")
	cmd.Flags().BoolVar(&excludeSameSize, "exclude-same-size", false, "Drop group members that share a byte size with a kept member")
	return cmd
}
