package testsupport

import (
	"path/filepath"
	"testing"

	"marquee/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfg := &cfgVal
	cfg.TMDB.APIKey = "test"
	cfg.Paths.DataDir = base
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.PosterCacheDir = filepath.Join(base, "posters")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return cfg
}

// WithTMDBKey sets the TMDB API key on the test config.
func WithTMDBKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.TMDB.APIKey = key
	}
}

// WithMetadataTTLHours overrides the metadata freshness window.
func WithMetadataTTLHours(hours int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.MetadataTTLHours = hours
	}
}
