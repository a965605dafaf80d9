package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Backend.UploadTimeout != 180 {
		t.Fatalf("expected 180s upload timeout default, got %d", cfg.Backend.UploadTimeout)
	}
	if cfg.Credits.StartingGrant != 1 {
		t.Fatalf("expected starting grant of 1, got %d", cfg.Credits.StartingGrant)
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
state_dir = "` + filepath.Join(dir, "state") + `"
download_dir = "` + filepath.Join(dir, "downloads") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[backend]
base_url = "http://localhost:8000/"

[delivery]
target = "Scoped"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s to exist, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Delivery.Target != "scoped" {
		t.Fatalf("expected lowercased target, got %q", cfg.Delivery.Target)
	}
}

func TestLoadEnvOverridesBaseURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[backend]\nbase_url = \"http://localhost:8000\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvAPIURL, "http://10.0.0.5:8000")

	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://10.0.0.5:8000" {
		t.Fatalf("expected env override, got %q", cfg.Backend.BaseURL)
	}
}

func TestValidateRejectsBadTarget(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	cfg.Delivery.Target = "floppy"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown delivery target")
	}
}

func TestValidateRejectsRelativeBaseURL(t *testing.T) {
	cfg := Default()
	cfg.Backend.BaseURL = "localhost:8000"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-absolute base URL")
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[backend]") {
		t.Fatal("sample config missing [backend] section")
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := expandPath("~/state")
	if err != nil {
		t.Fatalf("expandPath: %v", err)
	}
	if got != filepath.Join(home, "state") {
		t.Fatalf("expected %s, got %s", filepath.Join(home, "state"), got)
	}
}
