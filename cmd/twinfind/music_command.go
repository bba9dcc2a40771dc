package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"twinfind/internal/cache"
	"twinfind/internal/config"
	"twinfind/internal/deps"
	"twinfind/internal/entry"
	"twinfind/internal/music"
	"twinfind/internal/progress"
	"twinfind/internal/report"
)

func newMusicCommand(ctx *commandContext) *cobra.Command {
	var flags scanFlags
	var mode string
	var facets []string
	var approximate, similarTitles bool
	var maxBER, minSegment, maxOffset float64
	var fingerprintSeconds int

	cmd := &cobra.Command{
		Use:   "music [dirs...]",
		Short: "Find duplicate music by tags or by audio content",
		Long: "In tags mode (the default) files whose selected tags are equal are grouped;\n" +
			"tags are read with ffprobe. In content mode chromaprint fingerprints from\n" +
			"fpcalc are aligned and files sharing a long enough similar segment are grouped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			tool := scanTool{
				name: "music",
				extensions: func(cfg *config.Config) []string {
					return cfg.Music.Extensions
				},
				prepare: func(cmd *cobra.Command, cfg *config.Config) (runner, error) {
					f := cmd.Flags()
					if f.Changed("mode") {
						cfg.Music.Mode = strings.ToLower(strings.TrimSpace(mode))
					}
					if f.Changed("facets") {
						cfg.Music.Facets = splitList(facets)
					}
					if f.Changed("approximate") {
						cfg.Music.Approximate = approximate
					}
					if f.Changed("similar-titles") {
						cfg.Music.CompareSimilarTitles = similarTitles
					}
					if f.Changed("max-ber") {
						cfg.Music.MaxBitErrorRate = maxBER
					}
					if f.Changed("min-segment") {
						cfg.Music.MinSegmentSeconds = minSegment
					}
					if f.Changed("max-offset") {
						cfg.Music.MaxOffsetSeconds = maxOffset
					}
					if f.Changed("fingerprint-seconds") {
						cfg.Music.FingerprintSeconds = fingerprintSeconds
					}
					opts, err := music.OptionsFromConfig(cfg)
					if err != nil {
						return nil, err
					}
					if err := deps.Missing(deps.CheckBinaries(music.Requirements(opts))); err != nil {
						return nil, fmt.Errorf("music %s mode needs external tools:\n%w", opts.Mode, err)
					}
					return func(ctx context.Context, c *cache.Cache, logger *slog.Logger, src entry.Source, sink progress.Sink) (report.Report, error) {
						finder, err := music.New(opts, c, logger)
						if err != nil {
							return nil, err
						}
						return finder.Run(ctx, src, sink)
					}, nil
				},
				render: renderMusic,
			}
			return runScan(cmd, ctx, &flags, tool, args)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", "", "Comparison mode: tags or content")
	cmd.Flags().StringSliceVar(&facets, "facets", nil, "Tags compared in tags mode: title, artist, year, length, genre, bitrate")
	cmd.Flags().BoolVar(&approximate, "approximate", false, "Fold case and accents in tags; sample half the fingerprint items")
	cmd.Flags().BoolVar(&similarTitles, "similar-titles", false, "Only compare fingerprints of files with similar titles")
	cmd.Flags().Float64Var(&maxBER, "max-ber", 0, "Maximum mean bit error rate of a matching segment")
	cmd.Flags().Float64Var(&minSegment, "min-segment", 0, "Minimum matching segment in seconds")
	cmd.Flags().Float64Var(&maxOffset, "max-offset", 0, "Maximum alignment offset in seconds")
	cmd.Flags().IntVar(&fingerprintSeconds, "fingerprint-seconds", 0, "Seconds of audio fingerprinted per file")
	return cmd
}
