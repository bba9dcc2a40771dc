package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeDupes()
	c.normalizeImages()
	c.normalizeMusic()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return nil
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() {
	if c.Scan.Workers <= 0 {
		c.Scan.Workers = runtime.NumCPU()
	}
	c.Scan.AllowedExtensions = NormalizeExtensions(c.Scan.AllowedExtensions)
	c.Scan.ExcludedExtensions = NormalizeExtensions(c.Scan.ExcludedExtensions)
	c.Scan.ExcludedPaths = trimAll(c.Scan.ExcludedPaths)
	refs := make([]string, 0, len(c.Scan.ReferenceDirs))
	for _, dir := range trimAll(c.Scan.ReferenceDirs) {
		if expanded, err := expandPath(dir); err == nil {
			refs = append(refs, expanded)
		}
	}
	c.Scan.ReferenceDirs = refs
}

func (c *Config) normalizeDupes() {
	c.Dupes.Method = lowerOr(c.Dupes.Method, defaultDupesMethod)
	c.Dupes.HashAlgorithm = lowerOr(c.Dupes.HashAlgorithm, defaultHashAlgorithm)
	if c.Dupes.PartialHashBytes == 0 {
		c.Dupes.PartialHashBytes = defaultPartialHashBytes
	}
}

func (c *Config) normalizeImages() {
	c.Images.Extensions = NormalizeExtensions(c.Images.Extensions)
	if len(c.Images.Extensions) == 0 {
		c.Images.Extensions = append([]string(nil), defaultImageExtensions...)
	}
	if c.Images.HashSize == 0 {
		c.Images.HashSize = defaultImageHashSize
	}
	c.Images.Algorithm = lowerOr(c.Images.Algorithm, defaultImageAlgorithm)
	c.Images.Filter = lowerOr(c.Images.Filter, defaultImageFilter)
	c.Images.Similarity = lowerOr(c.Images.Similarity, defaultImageSimilarity)
	c.Images.Linkage = lowerOr(c.Images.Linkage, defaultImageLinkage)
}

func (c *Config) normalizeMusic() {
	c.Music.Extensions = NormalizeExtensions(c.Music.Extensions)
	if len(c.Music.Extensions) == 0 {
		c.Music.Extensions = append([]string(nil), defaultMusicExtensions...)
	}
	c.Music.Mode = lowerOr(c.Music.Mode, defaultMusicMode)
	facets := make([]string, 0, len(c.Music.Facets))
	for _, facet := range c.Music.Facets {
		if f := strings.ToLower(strings.TrimSpace(facet)); f != "" {
			facets = append(facets, f)
		}
	}
	c.Music.Facets = facets
	if strings.TrimSpace(c.Music.FpcalcBinary) == "" {
		c.Music.FpcalcBinary = "fpcalc"
	}
	if strings.TrimSpace(c.Music.FFprobeBinary) == "" {
		c.Music.FFprobeBinary = "ffprobe"
	}
}

func (c *Config) normalizeCache() error {
	if value, ok := os.LookupEnv("TWINFIND_CACHE"); ok && strings.TrimSpace(value) != "" {
		c.Cache.Path = value
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath()
	}
	var err error
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = lowerOr(c.Logging.Format, defaultLogFormat)
	c.Logging.Level = lowerOr(c.Logging.Level, defaultLogLevel)
}

// NormalizeExtensions lower-cases extensions, strips leading dots and drops
// blanks and repeats while keeping the original order.
func NormalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(exts))
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		e := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func lowerOr(value, fallback string) string {
	if v := strings.ToLower(strings.TrimSpace(value)); v != "" {
		return v
	}
	return fallback
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
