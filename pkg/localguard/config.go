package localguard

import (
	"github.com/aidamian/local-guard/internal/app/config"
	"github.com/aidamian/local-guard/internal/app/status"
)

// Config re-exports the agent configuration so embedders can construct or
// modify it programmatically.
type Config = config.Config

type (
	// AuthConfig configures the login endpoint.
	AuthConfig = config.AuthConfig
	// IngestConfig selects and configures the delivery destination.
	IngestConfig = config.IngestConfig
	// CaptureConfig controls capture cadence and batching.
	CaptureConfig = config.CaptureConfig
	// RetryConfig bounds upload retries.
	RetryConfig = config.RetryConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// JournalConfig configures the receipt store.
	JournalConfig = config.JournalConfig
	// StatusSnapshot is one consistent view of agent state.
	StatusSnapshot = status.Snapshot
)

// Ingest modes.
const (
	ModeHTTPS   = config.ModeHTTPS
	ModeStaging = config.ModeStaging
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a fully defaulted staging-mode configuration.
func DefaultConfig() *Config {
	return config.Default()
}
