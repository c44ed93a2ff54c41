// Command deposit-detector runs the deposit-detection worker (§4.4) for
// a single chain, passed via --chain.
package main

import (
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/urfave/cli.v1"

	"github.com/coinsensei/chain-workers/internal/cliutil"
	"github.com/coinsensei/chain-workers/internal/detector"
	"github.com/coinsensei/chain-workers/internal/errs"
	"github.com/coinsensei/chain-workers/internal/idgen"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/runtime"
)

// addressReloadInterval bounds how stale the monitored-address cache can
// get before a newly onboarded deposit address is picked up (§4.4).
const addressReloadInterval = 30 * time.Second

func main() {
	app := cliutil.NewApp("deposit-detector", "scans chain logs for deposits to monitored addresses")
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		logger := log.NewModuleLogger(log.Detector)
		logger.Errorw("deposit-detector exited with error", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := cliutil.Bootstrap()
	if err != nil {
		return err
	}
	logger := log.NewModuleLogger(log.Detector)

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

	addrs, err := detector.NewAddressSet(st.Wallets, chainRow.ID)
	if err != nil {
		return err
	}
	go reloadAddressesPeriodically(addrs, logger)

	det := detector.NewDetector(*chainRow, adapter, st, addrs, cfg.BatchBlockSize)

	ctx, cancel := cliutil.ShutdownContext()
	defer cancel()

	worker := runtime.New(idgen.WorkerID("deposit-detector", chainRow.Name), "deposit-detector", &chainRow.ID, cfg.ScanInterval, st.Control, det.Cycle)
	return worker.Run(ctx)
}

func reloadAddressesPeriodically(addrs *detector.AddressSet, logger *zap.SugaredLogger) {
	ticker := time.NewTicker(addressReloadInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := addrs.Reload(); err != nil {
			logger.Warnw("address set reload failed", "error", err)
		}
	}
}
