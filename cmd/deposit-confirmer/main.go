// Command deposit-confirmer runs the deposit-confirmation worker (§4.5)
// for a single chain, passed via --chain.
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
	app := cliutil.NewApp("deposit-confirmer", "confirms pending deposits once they clear the chain's confirmation threshold")
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		logger := log.NewModuleLogger(log.DepositConfirm)
		logger.Errorw("deposit-confirmer exited with error", "error", err)
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

	confirmer := confirm.NewDepositConfirmer(*chainRow, adapter, st, cfg.BatchBlockSize)

	ctx, cancel := cliutil.ShutdownContext()
	defer cancel()

	worker := runtime.New(idgen.WorkerID("deposit-confirmer", chainRow.Name), "deposit-confirmer", &chainRow.ID, cfg.ScanInterval, st.Control, confirmer.Cycle)
	return worker.Run(ctx)
}
