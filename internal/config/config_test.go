package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATASTORE_URL", "DATASTORE_KEY", "SIGNER_BASE_URL", "SIGNER_API_KEY",
		"LOG_LEVEL", "BATCH_BLOCK_SIZE", "SCAN_INTERVAL_MS", "GAS_PRICE_CAP_GWEI",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadRequiresDatastoreURL(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATASTORE_URL", "postgres://localhost/test")
	defer os.Unsetenv("DATASTORE_URL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, defaultBatchBlockSize, cfg.BatchBlockSize)
	assert.Equal(t, time.Duration(defaultScanIntervalMs)*time.Millisecond, cfg.ScanInterval)
	assert.Equal(t, 10.0, cfg.GasPriceCapGwei)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATASTORE_URL", "postgres://localhost/test")
	os.Setenv("BATCH_BLOCK_SIZE", "250")
	os.Setenv("SCAN_INTERVAL_MS", "1000")
	os.Setenv("GAS_PRICE_CAP_GWEI", "25.5")
	defer clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.BatchBlockSize)
	assert.Equal(t, time.Second, cfg.ScanInterval)
	assert.Equal(t, 25.5, cfg.GasPriceCapGwei)
}

func TestRequireSigner(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireSigner())

	cfg.SignerBaseURL = "http://localhost:9000"
	assert.Error(t, cfg.RequireSigner())

	cfg.SignerAPIKey = "key"
	assert.NoError(t, cfg.RequireSigner())
}
