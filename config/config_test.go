package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleTOML = `
[frameserver]
address = "orion/frame0"
rate_hz = 15
width = 320
height = 240
driver = "synthetic"

[recorder]
sources = ["orion/frame0", "orion/pos0"]
output_dir = "/tmp/rec"
queue_size = 64
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oatbus.toml")
	if err := os.WriteFile(path, []byte(sampleTOML), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadSelectsNamedTable(t *testing.T) {
	path := writeSample(t)

	cfg, err := Load(path, "frameserver")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Address != "orion/frame0" || cfg.Width != 320 || cfg.RateHz != 15 {
		t.Fatalf("unexpected frameserver config: %+v", cfg)
	}

	cfg2, err := Load(path, "recorder")
	if err != nil {
		t.Fatalf("Load recorder: %v", err)
	}
	if len(cfg2.Sources) != 2 || cfg2.QueueSize != 64 {
		t.Fatalf("unexpected recorder config: %+v", cfg2)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeSample(t)

	cfg, err := Load(path, "frameserver")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.QueueSize != 128 {
		t.Fatalf("QueueSize default = %d, want 128", cfg.QueueSize)
	}
	if cfg.Format != "gray8" {
		t.Fatalf("Format default = %q, want gray8", cfg.Format)
	}
}

func TestLoadMissingTableFails(t *testing.T) {
	path := writeSample(t)
	if _, err := Load(path, "nonexistent"); err == nil {
		t.Fatalf("expected error for missing table")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml"), "x"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejectsBadDriver(t *testing.T) {
	cfg := Default()
	cfg.Address = "a"
	cfg.Driver = "gstreamer"
	if err := Validate(&cfg); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestValidateRequiresDirForFileDriver(t *testing.T) {
	cfg := Default()
	cfg.Address = "a"
	cfg.Driver = "file"
	if err := Validate(&cfg); err == nil {
		t.Fatalf("expected error when file driver has no dir")
	}
}
