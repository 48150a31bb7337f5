package clientconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/gcprest/breaker"
	"github.com/GoCodeAlone/gcprest/cache"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10_000, cfg.Cache.MaxEntries)
	assert.Equal(t, "default", cfg.Breaker.Preset)
}

func TestLoad_FromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yaml")
	yaml := `
cache:
  max_entries: 500
  default_ttl: 1m
  policy: lfu
breaker:
  preset: aggressive
retry:
  max_retries: 5
  jitter_factor: 0.1
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, "lfu", cfg.Cache.Policy)
	assert.Equal(t, "aggressive", cfg.Breaker.Preset)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  max_entries: 500\n"), 0o600))
	t.Setenv("GCPREST_CACHE_MAX_ENTRIES", "42")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Cache.MaxEntries)
}

func TestCachePolicy_BuildsCacheConfig(t *testing.T) {
	cfg := Default()
	cfg.Cache.Policy = "fifo"
	cacheCfg, err := cfg.CachePolicy()
	require.NoError(t, err)
	assert.Equal(t, cache.FIFO, cacheCfg.Policy)
	assert.Equal(t, 5*time.Minute, cacheCfg.DefaultTTL)
}

func TestCachePolicy_RejectsUnknownPolicy(t *testing.T) {
	cfg := Default()
	cfg.Cache.Policy = "mru"
	_, err := cfg.CachePolicy()
	assert.Error(t, err)
}

func TestBreakerPolicy_AppliesPresetThenOverrides(t *testing.T) {
	cfg := Default()
	cfg.Breaker.Preset = "conservative"
	cfg.Breaker.FailureThreshold = 20
	breakerCfg, err := cfg.BreakerPolicy()
	require.NoError(t, err)
	assert.Equal(t, 20, breakerCfg.FailureThreshold)
	assert.Equal(t, breaker.ConservativeConfig().SuccessThreshold, breakerCfg.SuccessThreshold)
}

func TestRetryPolicy_Overrides(t *testing.T) {
	cfg := Default()
	cfg.Retry.MaxRetries = 7
	policy, err := cfg.RetryPolicy()
	require.NoError(t, err)
	assert.Equal(t, 7, policy.MaxRetries)
}
