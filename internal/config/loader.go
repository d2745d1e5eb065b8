package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if ZOLTAR_CONFIG is set
//  3. env (prefix ZOLTAR_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("ZOLTAR_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: ZOLTAR_HOST, ZOLTAR_USERNAME, ...
	// Map env keys like ZOLTAR_TOKEN_TTL_SECONDS -> token_ttl_seconds (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("ZOLTAR_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "zoltar_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Basic validation. The host is the one locator without a trailing slash.
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: host must not be empty", ErrInvalidConfig)
	}
	if strings.HasSuffix(cfg.Host, "/") {
		return nil, fmt.Errorf("%w: host must not end with '/'", ErrInvalidConfig)
	}
	if cfg.TokenTTLSeconds < 0 {
		return nil, fmt.Errorf("%w: token_ttl_seconds must not be negative", ErrInvalidConfig)
	}
	if cfg.PollIntervalMS <= 0 {
		return nil, fmt.Errorf("%w: poll_interval_ms must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}
