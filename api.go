package localguard

import (
	base "github.com/aidamian/local-guard/pkg/localguard"
)

// Version is the agent release version.
const Version = base.Version

// KillSwitchEnv is the environment variable that disables capture.
const KillSwitchEnv = base.KillSwitchEnv

// Ingest modes.
const (
	ModeHTTPS   = base.ModeHTTPS
	ModeStaging = base.ModeStaging
)

// Type aliases so consumers can import github.com/aidamian/local-guard directly.
type (
	Config         = base.Config
	AuthConfig     = base.AuthConfig
	IngestConfig   = base.IngestConfig
	CaptureConfig  = base.CaptureConfig
	RetryConfig    = base.RetryConfig
	MetricsConfig  = base.MetricsConfig
	JournalConfig  = base.JournalConfig
	Runtime        = base.Runtime
	Option         = base.Option
	StatusSnapshot = base.StatusSnapshot
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Runtime construction and options.
func NewRuntime(cfg *Config, opts ...Option) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithCaptureBackend(backend base.CaptureBackend) Option {
	return base.WithCaptureBackend(backend)
}

func WithDeliverer(d base.Deliverer) Option {
	return base.WithDeliverer(d)
}

func WithJournal(j base.Journal) Option {
	return base.WithJournal(j)
}

func WithQueue(q base.PayloadQueue) Option {
	return base.WithQueue(q)
}

func WithObservability(obs base.Observability) Option {
	return base.WithObservability(obs)
}
