// Command gas-topup-confirmer runs the gas-topup confirmation worker
// (§4.11) for a single chain, passed via --chain. No directory for this
// role existed in the original retrieval pack's cmd/ layout, but
// GasTopupRepo's own confirming/terminal state machine makes clear
// gas-topup jobs need the same receipt-poll-and-release treatment as
// consolidation and withdrawal jobs (DESIGN.md).
package main

import (
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/coinsensei/chain-workers/internal/cliutil"
	"github.com/coinsensei/chain-workers/internal/confirm"
	"github.com/coinsensei/chain-workers/internal/errs"
	"github.com/coinsensei/chain-workers/internal/idgen"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/runtime"
)

func main() {
	app := cliutil.NewApp("gas-topup-confirmer", "confirms broadcast gas-topup jobs and releases the gas lease")
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		logger := log.NewModuleLogger(log.ExecGasTopup)
		logger.Errorw("gas-topup-confirmer exited with error", "error", err)
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

	confirmer := confirm.NewGasTopupConfirmer(*chainRow, adapter, st)

	ctx, cancel := cliutil.ShutdownContext()
	defer cancel()

	worker := runtime.New(idgen.WorkerID("gas-topup-confirmer", chainRow.Name), "gas-topup-confirmer", &chainRow.ID, cfg.ScanInterval, st.Control, confirmer.Cycle)
	return worker.Run(ctx)
}
