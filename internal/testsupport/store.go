package testsupport

import (
	"context"
	"testing"

	"resumeup/internal/config"
	"resumeup/internal/ledger"
	"resumeup/internal/logging"
	"resumeup/internal/registry"
)

// MustOpenLedger opens a credit ledger for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Ledger {
	t.Helper()

	l, err := ledger.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		l.Close()
	})
	return l
}

// MustOpenRegistry opens a resume registry for tests and registers cleanup.
func MustOpenRegistry(t testing.TB, cfg *config.Config) *registry.Registry {
	t.Helper()

	reg, err := registry.Open(cfg)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	t.Cleanup(func() {
		reg.Close()
	})
	return reg
}

// NewPlaceholder begins a processing placeholder for tests using the provided
// registry.
func NewPlaceholder(t testing.TB, reg *registry.Registry, tempID, filename string) *registry.Resume {
	t.Helper()

	placeholder, err := reg.BeginPlaceholder(context.Background(), tempID, filename)
	if err != nil {
		t.Fatalf("registry.BeginPlaceholder: %v", err)
	}
	return placeholder
}
