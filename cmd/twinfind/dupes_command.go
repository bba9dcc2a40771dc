package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"twinfind/internal/cache"
	"twinfind/internal/config"
	"twinfind/internal/dupes"
	"twinfind/internal/entry"
	"twinfind/internal/progress"
	"twinfind/internal/report"
)

func newDupesCommand(ctx *commandContext) *cobra.Command {
	var flags scanFlags
	var method, algorithm string
	var partialBytes int
	var caseSensitive bool

	cmd := &cobra.Command{
		Use:   "dupes [dirs...]",
		Short: "Find files with identical content",
		Long: "Group files by size, then compare a partial hash of the first bytes and\n" +
			"finally a full hash. --method size|name|size_name compares metadata only.",
		RunE: func(cmd *cobra.Command, args []string) error {
			tool := scanTool{
				name: "dupes",
				extensions: func(cfg *config.Config) []string {
					return cfg.Scan.AllowedExtensions
				},
				prepare: func(cmd *cobra.Command, cfg *config.Config) (runner, error) {
					f := cmd.Flags()
					if f.Changed("method") {
						cfg.Dupes.Method = strings.ToLower(strings.TrimSpace(method))
					}
					if f.Changed("algorithm") {
						cfg.Dupes.HashAlgorithm = strings.ToLower(strings.TrimSpace(algorithm))
					}
					if f.Changed("partial-bytes") {
						cfg.Dupes.PartialHashBytes = partialBytes
					}
					if f.Changed("case-sensitive") {
						cfg.Dupes.CaseSensitiveNames = caseSensitive
					}
					opts, err := dupes.OptionsFromConfig(cfg)
					if err != nil {
						return nil, err
					}
					return func(ctx context.Context, c *cache.Cache, logger *slog.Logger, src entry.Source, sink progress.Sink) (report.Report, error) {
						finder, err := dupes.New(opts, c, logger)
						if err != nil {
							return nil, err
						}
						return finder.Run(ctx, src, sink)
					}, nil
				},
				render: renderDupes,
			}
			return runScan(cmd, ctx, &flags, tool, args)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&method, "method", "m", "", "Check method: hash, size, name, size_name")
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "Hash algorithm: blake3, sha256, xxh64, crc32")
	cmd.Flags().IntVar(&partialBytes, "partial-bytes", 0, "Bytes read by the partial hash stage")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "Compare file names case-sensitively")
	return cmd
}
