package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DBPath != ".sitesafe/sitesafe.db" {
		t.Errorf("Unexpected default db path: %s", cfg.DBPath)
	}
	if cfg.SnapshotPath != ".sitesafe/snapshot.jsonl" {
		t.Errorf("Unexpected default snapshot path: %s", cfg.SnapshotPath)
	}
	if cfg.Uploads.Dir != "uploads" {
		t.Errorf("Unexpected default uploads dir: %s", cfg.Uploads.Dir)
	}
	if cfg.Uploads.MaxConcurrent != 3 {
		t.Errorf("Unexpected default max concurrent: %d", cfg.Uploads.MaxConcurrent)
	}

	d, err := cfg.TransferTimeout()
	if err != nil {
		t.Fatalf("TransferTimeout failed: %v", err)
	}
	if d != 3*time.Minute {
		t.Errorf("Expected 3m default timeout, got %s", d)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
db_path: /data/site.db
uploads:
  dir: /data/uploads
  transfer_timeout: 45s
  max_concurrent: 8
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBPath != "/data/site.db" {
		t.Errorf("Unexpected db path: %s", cfg.DBPath)
	}
	if cfg.Uploads.Dir != "/data/uploads" {
		t.Errorf("Unexpected uploads dir: %s", cfg.Uploads.Dir)
	}
	if cfg.Uploads.MaxConcurrent != 8 {
		t.Errorf("Unexpected max concurrent: %d", cfg.Uploads.MaxConcurrent)
	}
	// Absent fields fall back to defaults.
	if cfg.SnapshotPath != ".sitesafe/snapshot.jsonl" {
		t.Errorf("Expected default snapshot path, got %s", cfg.SnapshotPath)
	}

	d, err := cfg.TransferTimeout()
	if err != nil {
		t.Fatalf("TransferTimeout failed: %v", err)
	}
	if d != 45*time.Second {
		t.Errorf("Expected 45s timeout, got %s", d)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("db_path: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed yaml")
	}
}

func TestBadTransferTimeout(t *testing.T) {
	cfg := Default()
	cfg.Uploads.TransferTimeout = "three minutes"
	if _, err := cfg.TransferTimeout(); err == nil {
		t.Error("Expected error for unparsable duration")
	}
}
