// Package clientconfig loads layered runtime configuration for the
// client — cache sizing, breaker presets, retry tuning — from a YAML
// file overlaid with environment variables, grounded on the teacher's
// config.FileSource/ConfigSource (config/source_file.go, config/source.go).
package clientconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/gcprest/breaker"
	"github.com/GoCodeAlone/gcprest/cache"
	"github.com/GoCodeAlone/gcprest/retry"
)

// Config is the full set of tunables for a client instance.
type Config struct {
	Cache   CacheConfig   `yaml:"cache"`
	Breaker BreakerConfig `yaml:"breaker"`
	Retry   RetryConfig   `yaml:"retry"`
}

// CacheConfig mirrors cache.Config in a YAML-friendly shape.
type CacheConfig struct {
	MaxEntries int    `yaml:"max_entries"`
	DefaultTTL string `yaml:"default_ttl"`
	Policy     string `yaml:"policy"` // "lru" | "fifo" | "lfu"
}

// BreakerConfig mirrors breaker.Config. Preset, if set, is applied first
// and the explicit fields below override it.
type BreakerConfig struct {
	Preset              string `yaml:"preset"` // "default" | "aggressive" | "conservative"
	FailureThreshold    int    `yaml:"failure_threshold"`
	SuccessThreshold    int    `yaml:"success_threshold"`
	OpenDuration        string `yaml:"open_duration"`
	HalfOpenMaxRequests int    `yaml:"half_open_max_requests"`
	FailureWindow       string `yaml:"failure_window"`
}

// RetryConfig mirrors retry.Policy.
type RetryConfig struct {
	MaxRetries   int     `yaml:"max_retries"`
	BaseDelay    string  `yaml:"base_delay"`
	MaxDelay     string  `yaml:"max_delay"`
	JitterFactor float64 `yaml:"jitter_factor"`
}

// Default returns a Config built from the package defaults of cache,
// breaker, and retry.
func Default() Config {
	return Config{
		Cache:   CacheConfig{MaxEntries: 10_000, DefaultTTL: "5m", Policy: "lru"},
		Breaker: BreakerConfig{Preset: "default"},
		Retry:   RetryConfig{MaxRetries: 3, BaseDelay: "1s", MaxDelay: "30s", JitterFactor: 0.2},
	}
}

// Load reads YAML config from path, falling back to Default() values for
// anything absent, then applies GCPREST_-prefixed environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("clientconfig: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("clientconfig: parse %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GCPREST_CACHE_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxEntries = n
		}
	}
	if v := os.Getenv("GCPREST_CACHE_POLICY"); v != "" {
		cfg.Cache.Policy = v
	}
	if v := os.Getenv("GCPREST_BREAKER_PRESET"); v != "" {
		cfg.Breaker.Preset = v
	}
	if v := os.Getenv("GCPREST_RETRY_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxRetries = n
		}
	}
}

// CachePolicy converts cfg's cache policy config into cache.Config.
func (c Config) CachePolicy() (cache.Config, error) {
	ttl, err := time.ParseDuration(orDefault(c.Cache.DefaultTTL, "5m"))
	if err != nil {
		return cache.Config{}, fmt.Errorf("clientconfig: invalid cache.default_ttl: %w", err)
	}

	var policy cache.EvictionPolicy
	switch c.Cache.Policy {
	case "", "lru":
		policy = cache.LRU
	case "fifo":
		policy = cache.FIFO
	case "lfu":
		policy = cache.LFU
	default:
		return cache.Config{}, fmt.Errorf("clientconfig: unknown cache.policy %q", c.Cache.Policy)
	}

	maxEntries := c.Cache.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 10_000
	}

	return cache.Config{
		MaxEntries:     maxEntries,
		DefaultTTL:     ttl,
		Policy:         policy,
		EnableCoalesce: true,
	}, nil
}

// BreakerPolicy converts cfg's breaker config into breaker.Config.
func (c Config) BreakerPolicy() (breaker.Config, error) {
	var base breaker.Config
	switch c.Breaker.Preset {
	case "aggressive":
		base = breaker.AggressiveConfig()
	case "conservative":
		base = breaker.ConservativeConfig()
	case "", "default":
		base = breaker.DefaultConfig()
	default:
		return breaker.Config{}, fmt.Errorf("clientconfig: unknown breaker.preset %q", c.Breaker.Preset)
	}

	if c.Breaker.FailureThreshold > 0 {
		base.FailureThreshold = c.Breaker.FailureThreshold
	}
	if c.Breaker.SuccessThreshold > 0 {
		base.SuccessThreshold = c.Breaker.SuccessThreshold
	}
	if c.Breaker.HalfOpenMaxRequests > 0 {
		base.HalfOpenMaxRequests = c.Breaker.HalfOpenMaxRequests
	}
	if c.Breaker.OpenDuration != "" {
		d, err := time.ParseDuration(c.Breaker.OpenDuration)
		if err != nil {
			return breaker.Config{}, fmt.Errorf("clientconfig: invalid breaker.open_duration: %w", err)
		}
		base.OpenDuration = d
	}
	if c.Breaker.FailureWindow != "" {
		d, err := time.ParseDuration(c.Breaker.FailureWindow)
		if err != nil {
			return breaker.Config{}, fmt.Errorf("clientconfig: invalid breaker.failure_window: %w", err)
		}
		base.FailureWindow = d
	}
	return base, nil
}

// RetryPolicy converts cfg's retry config into retry.Policy.
func (c Config) RetryPolicy() (retry.Policy, error) {
	base, dur := retry.Default(), c.Retry.BaseDelay
	if dur != "" {
		d, err := time.ParseDuration(dur)
		if err != nil {
			return retry.Policy{}, fmt.Errorf("clientconfig: invalid retry.base_delay: %w", err)
		}
		base.BaseDelay = d
	}
	if c.Retry.MaxDelay != "" {
		d, err := time.ParseDuration(c.Retry.MaxDelay)
		if err != nil {
			return retry.Policy{}, fmt.Errorf("clientconfig: invalid retry.max_delay: %w", err)
		}
		base.MaxDelay = d
	}
	if c.Retry.MaxRetries > 0 {
		base.MaxRetries = c.Retry.MaxRetries
	}
	if c.Retry.JitterFactor > 0 {
		base.JitterFactor = c.Retry.JitterFactor
	}
	return base, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
