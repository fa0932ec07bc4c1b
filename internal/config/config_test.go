// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDefaults(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadDefaults(t)

	assert.Equal(t, "8086", cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Scan.PollInterval)
	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.Equal(t, 3, cfg.Scan.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Scan.RetryDelay)
	assert.Equal(t, 10*time.Second, cfg.Scan.BackoffMax)
	assert.True(t, cfg.Scan.AutoStart)
	assert.Equal(t, 5*time.Second, cfg.Identify.Timeout)
	assert.Equal(t, 115200, cfg.Identify.BaudRate)
	assert.Equal(t, 7, cfg.Identify.SyncMax)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "development", cfg.App.Environment)
}

func TestLoadHonorsEnvironmentOverrides(t *testing.T) {
	t.Setenv("MACSCAN_SERVER_PORT", "9090")
	t.Setenv("MACSCAN_SCAN_WORKERS", "8")

	cfg := loadDefaults(t)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Scan.Workers)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config { return loadDefaults(t) }

	cfg := base()
	cfg.Scan.PollInterval = 0
	assert.ErrorContains(t, validate(cfg), "scan.poll_interval")

	cfg = base()
	cfg.Scan.Workers = 0
	assert.ErrorContains(t, validate(cfg), "scan.workers")

	cfg = base()
	cfg.Scan.MaxAttempts = -1
	assert.ErrorContains(t, validate(cfg), "scan.max_attempts")

	cfg = base()
	cfg.Scan.BackoffMax = cfg.Scan.RetryDelay - time.Millisecond
	assert.ErrorContains(t, validate(cfg), "scan.backoff_max")

	cfg = base()
	cfg.Identify.Timeout = 0
	assert.ErrorContains(t, validate(cfg), "identify.timeout")

	cfg = base()
	cfg.App.Environment = "prod"
	assert.ErrorContains(t, validate(cfg), "app.environment")

	cfg = base()
	cfg.Logging.Level = "verbose"
	assert.ErrorContains(t, validate(cfg), "logging.level")
}

func TestGetStorageDSN(t *testing.T) {
	cfg := loadDefaults(t)
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=macscan sslmode=disable",
		cfg.GetStorageDSN(),
	)
}

func TestGetServerAddr(t *testing.T) {
	cfg := loadDefaults(t)
	assert.Equal(t, "0.0.0.0:8086", cfg.GetServerAddr())
}

func TestEnvironmentPredicates(t *testing.T) {
	cfg := loadDefaults(t)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.App.Environment = "production"
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}
