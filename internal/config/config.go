// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New() builds a Config with defaults; Load layers file and env on top.
//   - Paths are resolved once at startup and passed to components explicitly.
//   - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects json or console output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// DataDir is the parent of the scratch and output directories when
	// those are left relative.
	DataDir string `koanf:"data_dir"`

	// ScratchDir holds per-request upload directories.
	ScratchDir string `koanf:"scratch_dir"`

	// OutputDir holds one directory of artifacts per run.
	OutputDir string `koanf:"output_dir"`

	// UsageFile is the combined usage CSV served at /download/usage.csv
	// and written by `usage pull`.
	UsageFile string `koanf:"usage_file"`

	// Bucket names the object store bucket receiving usage records.
	// Empty disables usage logging.
	Bucket string `koanf:"bucket"`

	// S3Region, S3Endpoint and S3PathStyle tune the S3 client. The endpoint
	// is only needed for S3-compatible servers.
	S3Region    string `koanf:"s3_region"`
	S3Endpoint  string `koanf:"s3_endpoint"`
	S3PathStyle bool   `koanf:"s3_path_style"`

	// S3KeyPrefix scopes every usage object key, e.g. "usage/".
	S3KeyPrefix string `koanf:"s3_key_prefix"`

	// S3AccessKey and S3SecretKey bypass the default AWS credential chain
	// when both are set. Keep them in the secrets file.
	S3AccessKey string `koanf:"s3_access_key"`
	S3SecretKey string `koanf:"s3_secret_key"`

	// UsageTimeout bounds the usage record upload of a single run.
	UsageTimeout time.Duration `koanf:"usage_timeout"`

	// EngineCommand is the scheduler command line. {csv}, {config} and
	// {out} are substituted per run.
	EngineCommand []string `koanf:"engine_command"`

	// RunTimeout bounds a single scheduler invocation.
	RunTimeout time.Duration `koanf:"run_timeout"`

	// MaxUploadBytes caps the multipart request body.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// OutputRetention is how long run artifacts stay downloadable.
	OutputRetention time.Duration `koanf:"output_retention"`

	// PruneInterval is how often expired outputs are removed.
	PruneInterval time.Duration `koanf:"prune_interval"`

	// RunRatePerSec and RunBurst configure the scheduling run limiter.
	// A rate of zero disables limiting.
	RunRatePerSec float64 `koanf:"run_rate_per_sec"`
	RunBurst      int     `koanf:"run_burst"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "json",
		Addr:            ":5000",
		DataDir:         "data",
		ScratchDir:      "uploads",
		OutputDir:       "outputs",
		UsageFile:       "usage.csv",
		S3Region:        "us-east-1",
		UsageTimeout:    5 * time.Second,
		EngineCommand:   []string{"oh_sched", "{csv}", "--config", "{config}"},
		RunTimeout:      2 * time.Minute,
		MaxUploadBytes:  10 << 20,
		OutputRetention: 24 * time.Hour,
		PruneInterval:   10 * time.Minute,
		RunRatePerSec:   1,
		RunBurst:        4,
		ShutdownTimeout: 30 * time.Second,
	}
}

// ScratchPath returns the scratch root, resolved against DataDir when relative.
func (c *Config) ScratchPath() string { return c.resolve(c.ScratchDir) }

// OutputPath returns the output root, resolved against DataDir when relative.
func (c *Config) OutputPath() string { return c.resolve(c.OutputDir) }

// UsagePath returns the combined usage CSV, resolved against DataDir when relative.
func (c *Config) UsagePath() string { return c.resolve(c.UsageFile) }

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.DataDir == "" {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.ScratchDir) == "":
		return fmt.Errorf("%w: scratch_dir must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.OutputDir) == "":
		return fmt.Errorf("%w: output_dir must not be empty", ErrInvalidConfig)
	case filepath.Clean(c.ScratchPath()) == filepath.Clean(c.OutputPath()):
		return fmt.Errorf("%w: scratch_dir and output_dir must differ", ErrInvalidConfig)
	case len(c.EngineCommand) == 0 || strings.TrimSpace(c.EngineCommand[0]) == "":
		return fmt.Errorf("%w: engine_command must name a program", ErrInvalidConfig)
	case c.UsageTimeout <= 0:
		return fmt.Errorf("%w: usage_timeout must be positive", ErrInvalidConfig)
	case (c.S3AccessKey == "") != (c.S3SecretKey == ""):
		return fmt.Errorf("%w: s3_access_key and s3_secret_key must be set together", ErrInvalidConfig)
	case c.RunTimeout <= 0:
		return fmt.Errorf("%w: run_timeout must be positive", ErrInvalidConfig)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.OutputRetention <= 0:
		return fmt.Errorf("%w: output_retention must be positive", ErrInvalidConfig)
	case c.PruneInterval <= 0:
		return fmt.Errorf("%w: prune_interval must be positive", ErrInvalidConfig)
	case c.RunRatePerSec < 0:
		return fmt.Errorf("%w: run_rate_per_sec must not be negative", ErrInvalidConfig)
	case c.RunRatePerSec > 0 && c.RunBurst < 1:
		return fmt.Errorf("%w: run_burst must be at least 1", ErrInvalidConfig)
	}
	return nil
}
