package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	defaultLogDir             = "~/.local/share/twinfind/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultDupesMethod        = "hash"
	defaultHashAlgorithm      = "blake3"
	defaultPartialHashBytes   = 16 * 1024
	defaultImageHashSize      = 16
	defaultImageAlgorithm     = "gradient"
	defaultImageFilter        = "lanczos"
	defaultImageSimilarity    = "high"
	defaultImageLinkage       = "representative"
	defaultMusicMode          = "tags"
	defaultMaxBitErrorRate    = 0.1
	defaultMinSegmentSeconds  = 10
	defaultMaxOffsetSeconds   = 15
	defaultFingerprintSeconds = 120
	defaultCacheMinFileSize   = 256 * 1024
)

var (
	defaultImageExtensions = []string{"jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff"}
	defaultMusicExtensions = []string{"mp3", "flac", "m4a", "ogg", "opus", "wav", "wma", "aac", "ape"}
	defaultMusicFacets     = []string{"title", "artist"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Scan: Scan{
			Workers: runtime.NumCPU(),
			MinSize: 1,
		},
		Dupes: Dupes{
			Method:           defaultDupesMethod,
			HashAlgorithm:    defaultHashAlgorithm,
			PartialHashBytes: defaultPartialHashBytes,
		},
		Images: Images{
			Extensions:  append([]string(nil), defaultImageExtensions...),
			HashSize:    defaultImageHashSize,
			Algorithm:   defaultImageAlgorithm,
			Filter:      defaultImageFilter,
			Similarity:  defaultImageSimilarity,
			MaxDistance: -1,
			Linkage:     defaultImageLinkage,
		},
		Music: Music{
			Extensions:         append([]string(nil), defaultMusicExtensions...),
			Mode:               defaultMusicMode,
			Facets:             append([]string(nil), defaultMusicFacets...),
			MaxBitErrorRate:    defaultMaxBitErrorRate,
			MinSegmentSeconds:  defaultMinSegmentSeconds,
			MaxOffsetSeconds:   defaultMaxOffsetSeconds,
			FingerprintSeconds: defaultFingerprintSeconds,
			FpcalcBinary:       "fpcalc",
			FFprobeBinary:      "ffprobe",
		},
		Cache: Cache{
			Enabled:     true,
			Path:        defaultCachePath(),
			MinFileSize: defaultCacheMinFileSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultCachePath() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "twinfind", "cache.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/twinfind/cache.db"
	}
	return filepath.Join(home, ".cache", "twinfind", "cache.db")
}
