package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"twinfind/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir string `toml:"log_dir"`
}

// Scan contains traversal and eligibility settings shared by every tool.
type Scan struct {
	Workers            int      `toml:"workers"`
	MinSize            uint64   `toml:"min_size"`
	MaxSize            uint64   `toml:"max_size"` // 0 disables the upper bound
	AllowedExtensions  []string `toml:"allowed_extensions"`
	ExcludedExtensions []string `toml:"excluded_extensions"`
	ExcludedPaths      []string `toml:"excluded_paths"`
	ReferenceDirs      []string `toml:"reference_dirs"`
}

// Dupes contains settings for exact duplicate detection.
type Dupes struct {
	Method             string `toml:"method"`
	HashAlgorithm      string `toml:"hash_algorithm"`
	PartialHashBytes   int    `toml:"partial_hash_bytes"`
	CaseSensitiveNames bool   `toml:"case_sensitive_names"`
}

// Images contains settings for perceptual image comparison.
type Images struct {
	Extensions      []string `toml:"extensions"`
	HashSize        int      `toml:"hash_size"`
	Algorithm       string   `toml:"algorithm"`
	Filter          string   `toml:"filter"`
	Similarity      string   `toml:"similarity"`
	MaxDistance     int      `toml:"max_distance"` // -1 uses the similarity level ceiling
	Linkage         string   `toml:"linkage"`
	ExcludeSameSize bool     `toml:"exclude_same_size"`
}

// Music contains settings for audio duplicate detection.
type Music struct {
	Extensions           []string `toml:"extensions"`
	Mode                 string   `toml:"mode"`
	Facets               []string `toml:"facets"`
	Approximate          bool     `toml:"approximate"`
	CompareSimilarTitles bool     `toml:"compare_similar_titles"`
	MaxBitErrorRate      float64  `toml:"max_bit_error_rate"`
	MinSegmentSeconds    float64  `toml:"min_segment_seconds"`
	MaxOffsetSeconds     float64  `toml:"max_offset_seconds"`
	FingerprintSeconds   int      `toml:"fingerprint_seconds"`
	FpcalcBinary         string   `toml:"fpcalc_binary"`
	FFprobeBinary        string   `toml:"ffprobe_binary"`
}

// Cache contains settings for the persistent result cache.
type Cache struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	MinFileSize uint64 `toml:"min_file_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for twinfind.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Scan    Scan    `toml:"scan"`
	Dupes   Dupes   `toml:"dupes"`
	Images  Images  `toml:"images"`
	Music   Music   `toml:"music"`
	Cache   Cache   `toml:"cache"`
	Logging Logging `toml:"logging"`
}

// Load locates, parses, and validates a configuration file. It returns the
// config, the resolved path, and whether a file existed at that path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// DefaultConfigPath returns the per-user config location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/twinfind/config.toml")
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("twinfind.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		_, err := io.WriteString(w, sampleConfig)
		return err
	})
	if err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
