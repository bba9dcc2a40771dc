package testsupport

import (
	"context"
	"testing"

	"twinfind/internal/cache"
	"twinfind/internal/config"
)

// MustOpenCache opens the config's result cache for tests and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *cache.Cache {
	t.Helper()

	c, err := cache.Open(context.Background(), cache.Options{
		Path:        cfg.Cache.Path,
		MinFileSize: cfg.Cache.MinFileSize,
	})
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
	})
	return c
}
