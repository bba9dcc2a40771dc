package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"twinfind/internal/config"
)

// scanFlags are shared by every scanning command.
type scanFlags struct {
	reference  []string
	exclude    []string
	extensions []string
	minSize    string
	maxSize    string
	workers    int
	jsonOut    bool
	output     string
	noCache    bool
	noProgress bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVarP(&f.reference, "reference", "r", nil, "Reference directories whose files are kept as originals")
	flags.StringSliceVarP(&f.exclude, "exclude", "x", nil, "Glob patterns of paths to skip")
	flags.StringSliceVarP(&f.extensions, "ext", "e", nil, "Only consider these extensions")
	flags.StringVar(&f.minSize, "min-size", "", "Ignore files smaller than this (e.g. 4KiB)")
	flags.StringVar(&f.maxSize, "max-size", "", "Ignore files larger than this (e.g. 2GiB)")
	flags.IntVarP(&f.workers, "workers", "w", 0, "Worker goroutines (defaults to config or CPU count)")
	flags.BoolVar(&f.jsonOut, "json", false, "Emit JSON instead of tables")
	flags.StringVarP(&f.output, "output", "o", "", "Write the report to this file instead of stdout")
	flags.BoolVar(&f.noCache, "no-cache", false, "Do not read or write the result cache")
	flags.BoolVar(&f.noProgress, "no-progress", false, "Hide the progress bar")
}

// apply overrides cfg with explicitly set flags and revalidates it.
func (f *scanFlags) apply(cfg *config.Config) error {
	if len(f.reference) > 0 {
		refs := make([]string, 0, len(f.reference))
		for _, dir := range f.reference {
			expanded, err := config.ExpandPath(strings.TrimSpace(dir))
			if err != nil {
				return fmt.Errorf("reference directory %q: %w", dir, err)
			}
			refs = append(refs, expanded)
		}
		cfg.Scan.ReferenceDirs = refs
	}
	if len(f.exclude) > 0 {
		cfg.Scan.ExcludedPaths = append(append([]string(nil), cfg.Scan.ExcludedPaths...), f.exclude...)
	}
	if f.minSize != "" {
		n, err := humanize.ParseBytes(f.minSize)
		if err != nil {
			return fmt.Errorf("--min-size: %w", err)
		}
		cfg.Scan.MinSize = n
	}
	if f.maxSize != "" {
		n, err := humanize.ParseBytes(f.maxSize)
		if err != nil {
			return fmt.Errorf("--max-size: %w", err)
		}
		cfg.Scan.MaxSize = n
	}
	if f.workers > 0 {
		cfg.Scan.Workers = f.workers
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	return cfg.Validate()
}

// allowedExtensions returns the --ext list or fallback.
func (f *scanFlags) allowedExtensions(fallback []string) []string {
	if len(f.extensions) > 0 {
		return config.NormalizeExtensions(f.extensions)
	}
	return fallback
}
