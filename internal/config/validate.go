package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate ensures the configuration is usable. Enumerated values are checked
// here so a bad config fails before any file is touched; the tool packages
// re-validate the parsed options they receive.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateDupes(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validateMusic(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateScan() error {
	if c.Scan.MaxSize != 0 && c.Scan.MaxSize < c.Scan.MinSize {
		return fmt.Errorf("scan.max_size (%d) must be zero or at least scan.min_size (%d)", c.Scan.MaxSize, c.Scan.MinSize)
	}
	return nil
}

func (c *Config) validateDupes() error {
	if err := oneOf("dupes.method", c.Dupes.Method, "hash", "size", "name", "size_name"); err != nil {
		return err
	}
	if err := oneOf("dupes.hash_algorithm", c.Dupes.HashAlgorithm, "blake3", "sha256", "xxh64", "crc32"); err != nil {
		return err
	}
	if c.Dupes.PartialHashBytes < 0 {
		return errors.New("dupes.partial_hash_bytes must be positive")
	}
	return nil
}

func (c *Config) validateImages() error {
	if !slices.Contains([]int{8, 16, 32, 64}, c.Images.HashSize) {
		return fmt.Errorf("images.hash_size must be one of 8, 16, 32, 64 (got %d)", c.Images.HashSize)
	}
	if err := oneOf("images.algorithm", c.Images.Algorithm, "gradient", "mean", "block", "double_gradient"); err != nil {
		return err
	}
	if err := oneOf("images.filter", c.Images.Filter, "nearest", "linear", "cubic", "gaussian", "lanczos"); err != nil {
		return err
	}
	if err := oneOf("images.similarity", c.Images.Similarity,
		"identical", "very_high", "high", "medium", "small", "very_small", "minimal"); err != nil {
		return err
	}
	if err := oneOf("images.linkage", c.Images.Linkage, "representative", "chained"); err != nil {
		return err
	}
	if c.Images.MaxDistance < -1 {
		return errors.New("images.max_distance must be -1 (level ceiling) or a non-negative distance")
	}
	return nil
}

func (c *Config) validateMusic() error {
	if err := oneOf("music.mode", c.Music.Mode, "tags", "content"); err != nil {
		return err
	}
	for _, facet := range c.Music.Facets {
		if err := oneOf("music.facets", facet, "title", "artist", "year", "length", "genre", "bitrate"); err != nil {
			return err
		}
	}
	if c.Music.Mode == "tags" && len(c.Music.Facets) == 0 {
		return errors.New("music.facets must name at least one facet in tags mode")
	}
	if c.Music.MaxBitErrorRate <= 0 || c.Music.MaxBitErrorRate > 0.5 {
		return errors.New("music.max_bit_error_rate must be in (0, 0.5]")
	}
	if c.Music.MinSegmentSeconds <= 0 {
		return errors.New("music.min_segment_seconds must be positive")
	}
	if c.Music.MaxOffsetSeconds < 0 {
		return errors.New("music.max_offset_seconds must not be negative")
	}
	if c.Music.FingerprintSeconds <= 0 {
		return errors.New("music.fingerprint_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if err := oneOf("logging.format", c.Logging.Format, "console", "json"); err != nil {
		return err
	}
	return oneOf("logging.level", c.Logging.Level, "debug", "info", "warn", "error")
}

func oneOf(key, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s: unsupported value %q (allowed: %v)", key, value, allowed)
}
