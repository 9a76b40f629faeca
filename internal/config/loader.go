package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if FACEGATE_CONFIG is set
//  3. env (prefix FACEGATE_, e.g. FACEGATE_QUOTA.DAILY_LIMIT)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("FACEGATE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// FACEGATE_DETECTOR.URL -> detector.url, keeping underscores inside
	// section keys (quota.daily_limit) intact.
	envProvider := env.Provider("FACEGATE_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "facegate_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the device cannot run with.
func (c *Config) Validate() error {
	if c.Dataset.Dir == "" {
		return errors.New("dataset.dir must not be empty")
	}
	if c.Detector.URL == "" {
		return errors.New("detector.url must not be empty")
	}
	if c.Recognize.MatchThreshold <= 0 {
		return errors.New("recognize.match_threshold must be positive")
	}
	if c.Quota.DailyLimit < 1 {
		return errors.New("quota.daily_limit must be at least 1")
	}
	if c.Collector.Addr == "" {
		return errors.New("collector.addr must not be empty")
	}
	return nil
}
