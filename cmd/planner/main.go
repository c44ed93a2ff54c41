// Command planner runs the rule-execution planner (§4.7) for a single
// chain, passed via --chain.
package main

import (
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/coinsensei/chain-workers/internal/cliutil"
	"github.com/coinsensei/chain-workers/internal/errs"
	"github.com/coinsensei/chain-workers/internal/idgen"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/planner"
	"github.com/coinsensei/chain-workers/internal/runtime"
)

// plannerBatch bounds how many wallet_balance rows are evaluated per
// cycle.
const plannerBatch = 200

func main() {
	app := cliutil.NewApp("planner", "evaluates gas-topup and consolidation rules for due wallet_balances rows")
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		logger := log.NewModuleLogger(log.Planner)
		logger.Errorw("planner exited with error", "error", err)
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

	p := planner.New(*chainRow, st, plannerBatch)

	ctx, cancel := cliutil.ShutdownContext()
	defer cancel()

	worker := runtime.New(idgen.WorkerID("planner", chainRow.Name), "planner", &chainRow.ID, cfg.ScanInterval, st.Control, p.Cycle)
	return worker.Run(ctx)
}
