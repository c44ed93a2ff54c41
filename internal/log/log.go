// Package log provides the per-module structured logger used across the
// worker fleet. It wraps zap the way the teacher's own log package wraps
// its backend: one named logger per package, constructed once at init.
package log

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module names double as the "module" field on every log line emitted
// through a logger built with NewModuleLogger.
const (
	Detector       = "detector"
	DepositConfirm = "deposit_confirm"
	ConsolConfirm  = "consolidation_confirm"
	WithdrawConfirm = "withdrawal_confirm"
	BalanceSync    = "balance_sync"
	Planner        = "planner"
	ExecGasTopup   = "exec_gas_topup"
	ExecConsol     = "exec_consolidation"
	ExecWithdraw   = "exec_withdrawal"
	Store          = "store"
	Signer         = "signer"
	ChainTron      = "chain_tron"
	ChainEVM       = "chain_evm"
	Runtime        = "runtime"
	CLI            = "cli"
)

var (
	mu      sync.Mutex
	base    *zap.Logger
	initted bool
)

// Init configures the process-wide base logger. level is one of
// debug|info|warn|error, matching the LOG_LEVEL env var (§6). Safe to call
// once at process startup; subsequent calls are no-ops.
func Init(level string) error {
	mu.Lock()
	defer mu.Unlock()
	if initted {
		return nil
	}

	var zlvl zapcore.Level
	if err := zlvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		zlvl = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zlvl),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	base = l
	initted = true
	return nil
}

// NewModuleLogger returns a child logger tagged with the given module
// name. If Init was never called, it falls back to zap's production
// default rather than panicking, since some unit tests construct workers
// without going through the CLI bootstrap.
func NewModuleLogger(module string) *zap.SugaredLogger {
	mu.Lock()
	b := base
	mu.Unlock()
	if b == nil {
		fallback, _ := zap.NewProduction()
		if fallback == nil {
			fallback = zap.NewNop()
		}
		b = fallback
	}
	return b.With(zap.String("module", module)).Sugar()
}

// Sync flushes any buffered log entries. Call during graceful shutdown.
func Sync() {
	mu.Lock()
	b := base
	mu.Unlock()
	if b != nil {
		_ = b.Sync()
	}
}

// MustGetHostname returns the local hostname or "unknown-host" rather
// than failing worker_id construction over a DNS hiccup.
func MustGetHostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown-host"
	}
	return h
}
