// Command balance-sync runs the balance-sync worker (§4.6) for a single
// chain, passed via --chain.
package main

import (
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/coinsensei/chain-workers/internal/balancesync"
	"github.com/coinsensei/chain-workers/internal/cliutil"
	"github.com/coinsensei/chain-workers/internal/errs"
	"github.com/coinsensei/chain-workers/internal/idgen"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/runtime"
)

// balanceSyncBatch bounds how many due wallet_balance rows are leased
// per cycle.
const balanceSyncBatch = 200

func main() {
	app := cliutil.NewApp("balance-sync", "refreshes on-chain balances for due wallet_balances rows")
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		logger := log.NewModuleLogger(log.BalanceSync)
		logger.Errorw("balance-sync exited with error", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := cliutil.Bootstrap()
	if err != nil {
		return err
	}

	chainName, err := cliutil.RequireChainFlag(c)
	if err != nil {
		return err
	}

	st, err := cliutil.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	chainRow, err := st.Chains.ByName(chainName)
	if err != nil {
		return err
	}
	if chainRow == nil {
		return errs.New(errs.KindConfiguration, "unknown chain: "+chainName, nil)
	}

	adapter, err := cliutil.BuildAdapter(*chainRow)
	if err != nil {
		return err
	}

	sync := balancesync.New(*chainRow, st, balanceSyncBatch, cliutil.BuildBalanceReader(adapter))

	ctx, cancel := cliutil.ShutdownContext()
	defer cancel()

	worker := runtime.New(idgen.WorkerID("balance-sync", chainRow.Name), "balance-sync", &chainRow.ID, cfg.ScanInterval, st.Control, sync.Cycle)
	return worker.Run(ctx)
}
