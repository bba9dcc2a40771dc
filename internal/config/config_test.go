package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"twinfind/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "twinfind", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Paths.LogDir != filepath.Join(tempHome, ".local", "share", "twinfind", "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Cache.Path != filepath.Join(tempHome, ".cache", "twinfind", "cache.db") {
		t.Fatalf("unexpected cache path: %q", cfg.Cache.Path)
	}
	if cfg.Dupes.HashAlgorithm != "blake3" {
		t.Fatalf("expected blake3 default, got %q", cfg.Dupes.HashAlgorithm)
	}
	if cfg.Images.HashSize != 16 || cfg.Images.MaxDistance != -1 {
		t.Fatalf("unexpected image defaults: %+v", cfg.Images)
	}
	if cfg.Scan.Workers <= 0 {
		t.Fatalf("expected positive worker count, got %d", cfg.Scan.Workers)
	}
	if cfg.Scan.MinSize != 1 {
		t.Fatalf("expected zero-byte files excluded by default, got min_size %d", cfg.Scan.MinSize)
	}
}

func TestLoadCustomConfigNormalizesValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "twinfind.toml")
	content := `
[scan]
allowed_extensions = [".JPG", "png", "png", " "]
reference_dirs = ["~/originals"]

[dupes]
hash_algorithm = "XXH64"

[images]
hash_size = 32
similarity = "Very_High"

[music]
mode = "content"
facets = [" Title "]

[cache]
path = "~/c.db"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %q, got %q exists=%v", path, resolved, exists)
	}
	if got := strings.Join(cfg.Scan.AllowedExtensions, ","); got != "jpg,png" {
		t.Fatalf("unexpected extensions %q", got)
	}
	if len(cfg.Scan.ReferenceDirs) != 1 || cfg.Scan.ReferenceDirs[0] != filepath.Join(tempHome, "originals") {
		t.Fatalf("unexpected reference dirs %v", cfg.Scan.ReferenceDirs)
	}
	if cfg.Dupes.HashAlgorithm != "xxh64" {
		t.Fatalf("expected lower-cased algorithm, got %q", cfg.Dupes.HashAlgorithm)
	}
	if cfg.Images.Similarity != "very_high" || cfg.Images.HashSize != 32 {
		t.Fatalf("unexpected images section %+v", cfg.Images)
	}
	if cfg.Music.Mode != "content" || cfg.Music.Facets[0] != "title" {
		t.Fatalf("unexpected music section %+v", cfg.Music)
	}
	if cfg.Cache.Path != filepath.Join(tempHome, "c.db") {
		t.Fatalf("unexpected cache path %q", cfg.Cache.Path)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"hash size":    "[images]\nhash_size = 12\n",
		"algorithm":    "[dupes]\nhash_algorithm = \"md4\"\n",
		"similarity":   "[images]\nsimilarity = \"sorta\"\n",
		"size bounds":  "[scan]\nmin_size = 100\nmax_size = 10\n",
		"bit error":    "[music]\nmax_bit_error_rate = 0.9\n",
		"unknown key":  "[images]\nbogus = 1\n",
		"empty facets": "[music]\nfacets = []\n",
		"log format":   "[logging]\nformat = \"xml\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			path := filepath.Join(t.TempDir(), "bad.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestCacheEnvironmentOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	override := filepath.Join(t.TempDir(), "override.db")
	t.Setenv("TWINFIND_CACHE", override)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Cache.Path != override {
		t.Fatalf("cache path = %q, want %q", cfg.Cache.Path, override)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid toml: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := config.Default()
	data, err := config.Encode(&cfg)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(string(data), "hash_algorithm") || !strings.Contains(string(data), "blake3") {
		t.Fatalf("expected hash algorithm in encoded config, got:\n%s", data)
	}
}

func TestNormalizeExtensions(t *testing.T) {
	got := config.NormalizeExtensions([]string{".MP3", "flac", "", "mp3"})
	if strings.Join(got, ",") != "mp3,flac" {
		t.Fatalf("unexpected normalized extensions %v", got)
	}
	if config.NormalizeExtensions(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}
