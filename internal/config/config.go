// Package config loads worker configuration from the environment,
// following the variable names fixed by the design (§6): DATASTORE_URL,
// DATASTORE_KEY, SIGNER_BASE_URL, SIGNER_API_KEY, LOG_LEVEL,
// BATCH_BLOCK_SIZE, SCAN_INTERVAL_MS, GAS_PRICE_CAP_GWEI. Shaped after the
// teacher's datasync/dbsyncer DBConfig (host/port/user/password/pool
// sizing), generalized to a single DSN-style datastore URL since this
// system's store is Postgres rather than MySQL.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/coinsensei/chain-workers/internal/errs"
)

// Config is the full set of process-wide settings every worker binary
// reads at startup. Missing required fields are a configuration error
// (fail fast at init, §7).
type Config struct {
	DatastoreURL string
	DatastoreKey string

	SignerBaseURL string
	SignerAPIKey  string

	LogLevel string

	BatchBlockSize  int
	ScanInterval    time.Duration
	GasPriceCapGwei float64

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

const (
	defaultBatchBlockSize  = 100
	defaultScanIntervalMs  = 5000
	defaultMaxIdleConns    = 5
	defaultMaxOpenConns    = 20
	defaultConnMaxLifetime = 30 * time.Minute
)

// Load reads Config from the environment. It fails fast (configuration
// error kind) if DATASTORE_URL is unset — every worker needs the
// datastore. SIGNER_BASE_URL and SIGNER_API_KEY are not checked here;
// the execution workers check them through RequireSigner.
func Load() (*Config, error) {
	cfg := &Config{
		DatastoreURL:  os.Getenv("DATASTORE_URL"),
		DatastoreKey:  os.Getenv("DATASTORE_KEY"),
		SignerBaseURL: os.Getenv("SIGNER_BASE_URL"),
		SignerAPIKey:  os.Getenv("SIGNER_API_KEY"),
		LogLevel:      envOr("LOG_LEVEL", "info"),

		MaxIdleConns:    defaultMaxIdleConns,
		MaxOpenConns:    defaultMaxOpenConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
	}

	if cfg.DatastoreURL == "" {
		return nil, errs.New(errs.KindConfiguration, "DATASTORE_URL is required", nil)
	}

	batchSize, err := envIntOr("BATCH_BLOCK_SIZE", defaultBatchBlockSize)
	if err != nil {
		return nil, errs.New(errs.KindConfiguration, "invalid BATCH_BLOCK_SIZE", err)
	}
	cfg.BatchBlockSize = batchSize

	scanMs, err := envIntOr("SCAN_INTERVAL_MS", defaultScanIntervalMs)
	if err != nil {
		return nil, errs.New(errs.KindConfiguration, "invalid SCAN_INTERVAL_MS", err)
	}
	cfg.ScanInterval = time.Duration(scanMs) * time.Millisecond

	gasCap, err := envFloatOr("GAS_PRICE_CAP_GWEI", 10)
	if err != nil {
		return nil, errs.New(errs.KindConfiguration, "invalid GAS_PRICE_CAP_GWEI", err)
	}
	cfg.GasPriceCapGwei = gasCap

	return cfg, nil
}

// RequireSigner validates that signer configuration is present; called
// by execution-worker entrypoints only, since detectors and balance-sync
// never call the signer client.
func (c *Config) RequireSigner() error {
	if c.SignerBaseURL == "" {
		return errs.New(errs.KindConfiguration, "SIGNER_BASE_URL is required", nil)
	}
	if c.SignerAPIKey == "" {
		return errs.New(errs.KindConfiguration, "SIGNER_API_KEY is required", nil)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloatOr(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
