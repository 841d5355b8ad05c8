package testsupport

import (
	"path/filepath"
	"testing"

	"loom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "runs")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test-key"
	cfg.Crawl.DelayMillis = 0

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithSliceLimits overrides the block size bounds on the test config.
func WithSliceLimits(maxChars, minChars int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Slice.MaxBlockChars = maxChars
		cfg.Slice.MinBlockChars = minChars
	}
}

// WithLLMEndpoint points the test config at a stub chat-completion server.
func WithLLMEndpoint(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.LLM.BaseURL = baseURL
	}
}
