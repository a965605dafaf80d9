package testsupport

import (
	"path/filepath"
	"testing"

	"resumeup/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Backend.BaseURL = "http://127.0.0.1:0"
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBaseURL points the backend at the provided URL, typically an httptest
// server.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.BaseURL = url
	}
}

// WithStartingGrant overrides the credit grant seeded on first run.
func WithStartingGrant(grant int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Credits.StartingGrant = grant
	}
}

// WithDeliveryTarget overrides the configured delivery target.
func WithDeliveryTarget(target string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Delivery.Target = target
	}
}
