package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  endpoint: https://svc.example.test/r1/cstore-auth
ingest:
  endpoint: https://ingest.example.test/v1/mosaics
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Capture.FPS != 1 {
		t.Fatalf("expected FPS default 1, got %d", cfg.Capture.FPS)
	}
	if cfg.Capture.BatchSize != 9 {
		t.Fatalf("expected batch size default 9, got %d", cfg.Capture.BatchSize)
	}
	if cfg.Ingest.Mode != ModeHTTPS {
		t.Fatalf("expected default mode https, got %s", cfg.Ingest.Mode)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay != 500*time.Millisecond {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.Metrics.Addr != ":9210" {
		t.Fatalf("expected default metrics addr :9210, got %s", cfg.Metrics.Addr)
	}
	if cfg.Journal.Path != "./data/receipts.db" {
		t.Fatalf("expected default journal path, got %s", cfg.Journal.Path)
	}
}

func TestLoadRejectsInsecureIngestEndpoint(t *testing.T) {
	path := writeConfig(t, `
auth:
  endpoint: https://svc.example.test/r1/cstore-auth
ingest:
  endpoint: http://ingest.example.test/v1/mosaics
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "https") {
		t.Fatalf("expected https enforcement error, got %v", err)
	}
}

func TestLoadRejectsWrongAuthPath(t *testing.T) {
	path := writeConfig(t, `
auth:
  endpoint: https://svc.example.test/login
ingest:
  endpoint: https://ingest.example.test/v1/mosaics
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "/r1/cstore-auth") {
		t.Fatalf("expected auth path error, got %v", err)
	}
}

func TestLoadRejectsNonSquareBatchSize(t *testing.T) {
	path := writeConfig(t, `
auth:
  endpoint: https://svc.example.test/r1/cstore-auth
ingest:
  endpoint: https://ingest.example.test/v1/mosaics
capture:
  batch_size: 8
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "perfect square") {
		t.Fatalf("expected batch size error, got %v", err)
	}
}

func TestLoadRejectsOutOfRangeFPS(t *testing.T) {
	path := writeConfig(t, `
auth:
  endpoint: https://svc.example.test/r1/cstore-auth
ingest:
  endpoint: https://ingest.example.test/v1/mosaics
capture:
  fps: 11
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected fps range error")
	}
}

func TestStagingModeSkipsEndpointChecks(t *testing.T) {
	path := writeConfig(t, `
ingest:
  mode: staging
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Ingest.StagingDir != "./data/staging" {
		t.Fatalf("expected default staging dir, got %s", cfg.Ingest.StagingDir)
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Ingest.Mode != ModeStaging {
		t.Fatalf("default config should run in staging mode, got %s", cfg.Ingest.Mode)
	}
}
