package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Stacks.ContractAddress = ""
	cfg.Confirm.MaxAttempts = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "unknown log_level")
	assert.Contains(t, err.Error(), "contract_address")
	assert.Contains(t, err.Error(), "max_attempts")
}

func TestValidateArchiveRequiresS3(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.Enabled = true
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
mode = "server"
log_level = "debug"

[stacks]
contract_name = "market-factory-v2"

[confirm]
interval = "2s"
max_attempts = 30
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	t.Setenv("BITCOINWORLD_CONFIRM_MAX_ATTEMPTS", "45")
	t.Setenv("BITCOINWORLD_REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "market-factory-v2", cfg.Stacks.ContractName)
	assert.Equal(t, 2*time.Second, cfg.Confirm.Interval.Duration)
	// Env beats file.
	assert.Equal(t, 45, cfg.Confirm.MaxAttempts)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	// Untouched fields keep defaults.
	assert.Equal(t, 15*time.Second, cfg.Snapshot.RefreshInterval.Duration)

	require.NoError(t, cfg.Validate())
}
