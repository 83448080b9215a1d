package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aidamian/local-guard/internal/auth"
)

// Mode selects the delivery destination.
const (
	ModeHTTPS   = "https"
	ModeStaging = "staging"
)

type Config struct {
	Auth    AuthConfig    `yaml:"auth"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Capture CaptureConfig `yaml:"capture"`
	Retry   RetryConfig   `yaml:"retry"`
	Metrics MetricsConfig `yaml:"metrics"`
	Journal JournalConfig `yaml:"journal"`
}

type AuthConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type IngestConfig struct {
	Mode       string        `yaml:"mode"`
	Endpoint   string        `yaml:"endpoint"`
	StagingDir string        `yaml:"staging_dir"`
	Timeout    time.Duration `yaml:"timeout"`
}

type CaptureConfig struct {
	FPS       int  `yaml:"fps"`
	BatchSize int  `yaml:"batch_size"`
	QueueLen  int  `yaml:"queue_len"`
	Enabled   bool `yaml:"enabled"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Multiplier  float64       `yaml:"multiplier"`
	Jitter      time.Duration `yaml:"jitter"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a fully defaulted staging-mode configuration usable without
// a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.Ingest.Mode = ModeStaging
	cfg.Capture.Enabled = true
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	if c.Auth.Timeout == 0 {
		c.Auth.Timeout = 10 * time.Second
	}
	if c.Ingest.Mode == "" {
		c.Ingest.Mode = ModeHTTPS
	}
	if c.Ingest.StagingDir == "" {
		c.Ingest.StagingDir = "./data/staging"
	}
	if c.Ingest.Timeout == 0 {
		c.Ingest.Timeout = 30 * time.Second
	}
	if c.Capture.FPS == 0 {
		c.Capture.FPS = 1
	}
	if c.Capture.BatchSize == 0 {
		c.Capture.BatchSize = 9
	}
	if c.Capture.QueueLen == 0 {
		c.Capture.QueueLen = 32
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = 500 * time.Millisecond
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = 10 * time.Second
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = 2
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9210"
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "./data/receipts.db"
	}
}

func (c *Config) Validate() error {
	if c.Capture.FPS < 1 || c.Capture.FPS > 10 {
		return fmt.Errorf("capture.fps must be between 1 and 10, got %d", c.Capture.FPS)
	}
	if !isPerfectSquare(c.Capture.BatchSize) {
		return fmt.Errorf("capture.batch_size must be a perfect square, got %d", c.Capture.BatchSize)
	}
	if c.Capture.QueueLen < 1 {
		return fmt.Errorf("capture.queue_len must be positive, got %d", c.Capture.QueueLen)
	}

	switch c.Ingest.Mode {
	case ModeHTTPS:
		if err := requireHTTPS("ingest.endpoint", c.Ingest.Endpoint); err != nil {
			return err
		}
		if err := requireHTTPS("auth.endpoint", c.Auth.Endpoint); err != nil {
			return err
		}
		if !strings.HasSuffix(c.Auth.Endpoint, auth.RequiredAuthPath) {
			return fmt.Errorf("auth.endpoint must end in %s", auth.RequiredAuthPath)
		}
	case ModeStaging:
		if c.Ingest.StagingDir == "" {
			return fmt.Errorf("ingest.staging_dir is required in staging mode")
		}
	default:
		return fmt.Errorf("ingest.mode must be %q or %q, got %q", ModeHTTPS, ModeStaging, c.Ingest.Mode)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be positive, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

func requireHTTPS(field, endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("%s is required", field)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("%s must use https, got scheme %q", field, parsed.Scheme)
	}
	return nil
}

func isPerfectSquare(n int) bool {
	if n < 1 {
		return false
	}
	root := int(math.Sqrt(float64(n)))
	return root*root == n
}
