package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"twinfind/internal/cache"
	"twinfind/internal/collect"
	"twinfind/internal/config"
	"twinfind/internal/entry"
	"twinfind/internal/progress"
	"twinfind/internal/report"
)

// scanTool runs one pipeline against src.
type scanTool struct {
	name string
	// extensions picks the tool's default allow list.
	extensions func(cfg *config.Config) []string
	// prepare applies tool flags and validates the tool options before any I/O.
	prepare func(cmd *cobra.Command, cfg *config.Config) (runner, error)
	// render prints the result as tables.
	render func(out io.Writer, res report.Report)
}

type runner func(ctx context.Context, c *cache.Cache, logger *slog.Logger, src entry.Source, sink progress.Sink) (report.Report, error)

func runScan(cmd *cobra.Command, cctx *commandContext, flags *scanFlags, tool scanTool, args []string) error {
	cfg, err := cctx.scanConfig()
	if err != nil {
		return err
	}
	if err := flags.apply(cfg); err != nil {
		return err
	}
	run, err := tool.prepare(cmd, cfg)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, "cli-"+tool.name)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	var allowed []string
	if tool.extensions != nil {
		allowed = tool.extensions(cfg)
	}
	classifier, err := entry.NewClassifier(entry.Rules{
		MinSize:            cfg.Scan.MinSize,
		MaxSize:            cfg.Scan.MaxSize,
		AllowedExtensions:  flags.allowedExtensions(allowed),
		ExcludedExtensions: cfg.Scan.ExcludedExtensions,
		ExcludedPaths:      cfg.Scan.ExcludedPaths,
		ReferenceDirs:      cfg.Scan.ReferenceDirs,
	})
	if err != nil {
		return fmt.Errorf("scan rules: %w", err)
	}
	roots := append([]string(nil), args...)
	if len(roots) == 0 {
		roots = []string{"."}
	}
	roots = append(roots, cfg.Scan.ReferenceDirs...)
	walker := &collect.Walker{Roots: roots, Classifier: classifier}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := openScanCache(ctx, cfg, logger, cmd.ErrOrStderr())
	defer c.Close()

	display := newProgressDisplay(cmd.ErrOrStderr(), logger, !flags.jsonOut && !flags.noProgress)
	res, err := run(ctx, c, logger, walker, display.sink())
	display.finish()
	if err != nil {
		return err
	}
	if res.Summary().Status == progress.Cancelled {
		fmt.Fprintln(cmd.ErrOrStderr(), "Scan cancelled")
		return context.Canceled
	}
	return writeResult(cmd, flags, tool, res)
}

func openScanCache(ctx context.Context, cfg *config.Config, logger *slog.Logger, notify io.Writer) *cache.Cache {
	if !cfg.Cache.Enabled {
		return cache.Disabled()
	}
	return cache.OpenOrDisable(ctx, cache.Options{
		Path:        cfg.Cache.Path,
		MinFileSize: cfg.Cache.MinFileSize,
		Logger:      logger,
		Notify: func(msg string) {
			fmt.Fprintln(notify, msg)
		},
	})
}

func writeResult(cmd *cobra.Command, flags *scanFlags, tool scanTool, res report.Report) error {
	out := cmd.OutOrStdout()
	if flags.output != "" {
		path, err := config.ExpandPath(flags.output)
		if err != nil {
			return fmt.Errorf("resolve output path: %w", err)
		}
		write := report.WriteText
		if flags.jsonOut {
			write = report.WriteJSON
		}
		if err := write(path, res); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s report to %s\n", tool.name, path)
		return nil
	}
	if flags.jsonOut {
		return report.EncodeJSON(out, res)
	}
	tool.render(out, res)
	printProblems(cmd.ErrOrStderr(), res)
	return nil
}
