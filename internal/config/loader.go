package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read outside the OHSCHED_ prefix.
const (
	envPrefix      = "OHSCHED_"
	envConfigFile  = "OHSCHED_CONFIG"
	envSecretsFile = "OHSCHED_SECRETS_FILE"
	envPort        = "PORT"
	envAWSBucket   = "AWS_BUCKET"

	defaultSecretsFile = ".env"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if OHSCHED_CONFIG is set
//  3. env (prefix OHSCHED_), after the secrets file has been merged into
//     the process environment
//  4. PORT and AWS_BUCKET, as used by the hosted deployment
func Load(_ context.Context) (*Config, error) {
	if err := loadSecrets(); err != nil {
		return nil, err
	}

	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// OHSCHED_RUN_TIMEOUT -> run_timeout. Underscores are kept so keys
	// match the flat koanf tags. engine_command is split on whitespace.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		switch key {
		case "config", "secrets_file":
			return "", nil
		case "engine_command":
			return key, strings.Fields(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	// Slices decode into the default backing array; replace wholesale.
	if k.Exists("engine_command") {
		cfg.EngineCommand = k.Strings("engine_command")
	}

	if err := applyCompat(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadSecrets merges a dotenv file into the environment without overriding
// variables that are already set. A missing default file is not an error.
func loadSecrets() error {
	path, explicit := os.LookupEnv(envSecretsFile)
	if !explicit || path == "" {
		path = defaultSecretsFile
		explicit = false
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: secrets file %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}

func applyCompat(cfg *Config) error {
	if port := strings.TrimSpace(os.Getenv(envPort)); port != "" {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			return fmt.Errorf("%w: addr %q: %w", ErrInvalidConfig, cfg.Addr, err)
		}
		cfg.Addr = net.JoinHostPort(host, port)
	}
	if cfg.Bucket == "" {
		cfg.Bucket = strings.TrimSpace(os.Getenv(envAWSBucket))
	}
	return nil
}
