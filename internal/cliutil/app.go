// Package cliutil is the shared cmd/ scaffold every worker binary builds
// on: flag definitions, config/log/store bootstrap, and the
// signal.Notify-plus-context.WithCancel graceful shutdown idiom, grounded
// on the teacher's cmd/kcn/main.go urfave/cli app construction (app.Before
// wiring logging, cmd/utils/flags.go flag shape) and on the btc-giftcard
// worker main()'s shutdown handling (DESIGN.md).
package cliutil

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"github.com/coinsensei/chain-workers/internal/chain"
	"github.com/coinsensei/chain-workers/internal/chain/evm"
	"github.com/coinsensei/chain-workers/internal/chain/tron"
	"github.com/coinsensei/chain-workers/internal/config"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/store"
	"github.com/coinsensei/chain-workers/internal/store/model"
)

// ChainFlag names the chain row (by Name, e.g. "tron", "bsc") a worker
// binary operates against — every role in this fleet, detection through
// execution and confirmation, runs one process per chain (§9).
var ChainFlag = cli.StringFlag{
	Name:  "chain",
	Usage: "chain name to operate against (e.g. tron, bsc)",
}

// NewApp builds the common cli.App skeleton for role, matching the
// teacher's utils.NewApp(gitCommit, usage) call shape.
func NewApp(role, usage string) *cli.App {
	app := cli.NewApp()
	app.Name = role
	app.Usage = usage
	app.Flags = []cli.Flag{ChainFlag}
	return app
}

// Bootstrap loads Config and initializes the process-wide logger. Every
// cmd/ entrypoint calls this first, before touching the datastore.
func Bootstrap() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := log.Init(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

// OpenStore opens the datastore connection described by cfg.
func OpenStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg)
}

// RequireChainFlag reads the --chain flag or fails fast — used by every
// single-chain worker binary.
func RequireChainFlag(c *cli.Context) (string, error) {
	name := c.GlobalString(ChainFlag.Name)
	if name == "" {
		return "", fmt.Errorf("--chain is required")
	}
	return name, nil
}

// BuildAdapter constructs the chain.Adapter matching chainRow.Family, so
// every cmd/ entrypoint branches on Family exactly once, at startup,
// rather than threading a type switch through its worker (§9).
func BuildAdapter(chainRow model.Chain) (chain.Adapter, error) {
	switch chainRow.Family {
	case chain.FamilyTron:
		return tron.New(chainRow.RPCURL), nil
	case chain.FamilyEVM:
		a, err := evm.New(chainRow.RPCURL)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown chain family %q for chain %q", chainRow.Family, chainRow.Name)
	}
}

// BuildBalanceReader adapts adapter's native/token balance calls into the
// single read func balancesync.New expects, keeping that package free of
// a direct chain.Adapter dependency (DESIGN.md).
func BuildBalanceReader(adapter chain.Adapter) func(ctx context.Context, addr string, assetOnChain model.AssetOnChain) (raw, human string, err error) {
	return func(ctx context.Context, addr string, assetOnChain model.AssetOnChain) (string, string, error) {
		var rawAmount *big.Int
		var err error
		if assetOnChain.IsNative {
			rawAmount, err = adapter.NativeBalance(ctx, addr)
		} else {
			contract := ""
			if assetOnChain.ContractAddress != nil {
				contract = *assetOnChain.ContractAddress
			}
			rawAmount, err = adapter.TokenBalance(ctx, contract, addr)
		}
		if err != nil {
			return "", "", err
		}
		human := adapter.FormatAmount(rawAmount, assetOnChain.Decimals)
		return rawAmount.String(), human, nil
	}
}

// GasPriceCapWei converts GAS_PRICE_CAP_GWEI into the wei big.Int the EVM
// executor compares bumped gas prices against.
func GasPriceCapWei(gwei float64) *big.Int {
	capFloat := new(big.Float).Mul(big.NewFloat(gwei), big.NewFloat(1e9))
	out, _ := capFloat.Int(nil)
	return out
}

// ShutdownContext returns a context cancelled on SIGINT/SIGTERM, matching
// the graceful-shutdown idiom observed in the pack's one custodial-worker
// main() (DESIGN.md).
func ShutdownContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}
