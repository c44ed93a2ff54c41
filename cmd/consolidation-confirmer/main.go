// Command consolidation-confirmer runs the consolidation confirmation
// worker (§4.11) for a single chain, passed via --chain.
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
	app := cliutil.NewApp("consolidation-confirmer", "confirms broadcast consolidation jobs and releases the consolidation lease")
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		logger := log.NewModuleLogger(log.ConsolConfirm)
		logger.Errorw("consolidation-confirmer exited with error", "error", err)
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

	confirmer := confirm.NewConsolidationConfirmer(*chainRow, adapter, st)

	ctx, cancel := cliutil.ShutdownContext()
	defer cancel()

	worker := runtime.New(idgen.WorkerID("consolidation-confirmer", chainRow.Name), "consolidation-confirmer", &chainRow.ID, cfg.ScanInterval, st.Control, confirmer.Cycle)
	return worker.Run(ctx)
}
