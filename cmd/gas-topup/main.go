// Command gas-topup runs the gas-topup execution worker (§4.8/§4.9/§4.10)
// for a single chain, passed via --chain.
package main

import (
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/coinsensei/chain-workers/internal/chain"
	"github.com/coinsensei/chain-workers/internal/chain/evm"
	"github.com/coinsensei/chain-workers/internal/chain/tron"
	"github.com/coinsensei/chain-workers/internal/cliutil"
	"github.com/coinsensei/chain-workers/internal/errs"
	execevm "github.com/coinsensei/chain-workers/internal/exec/evm"
	"github.com/coinsensei/chain-workers/internal/exec/gastopup"
	exectron "github.com/coinsensei/chain-workers/internal/exec/tron"
	"github.com/coinsensei/chain-workers/internal/idgen"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/runtime"
	"github.com/coinsensei/chain-workers/internal/signer"
)

func main() {
	app := cliutil.NewApp("gas-topup", "executes gas-topup transfers from gas_topup_queue")
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		logger := log.NewModuleLogger(log.ExecGasTopup)
		logger.Errorw("gas-topup exited with error", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := cliutil.Bootstrap()
	if err != nil {
		return err
	}
	if err := cfg.RequireSigner(); err != nil {
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

	signerClient := signer.New(cfg.SignerBaseURL, cfg.SignerAPIKey)

	var worker *runtime.Worker
	switch chainRow.Family {
	case chain.FamilyTron:
		adapter := tron.New(chainRow.RPCURL)
		ex := exectron.New(adapter, signerClient)
		w := gastopup.New(*chainRow, st, ex)
		worker = runtime.New(idgen.WorkerID("gas-topup", chainRow.Name), "gas-topup", &chainRow.ID, cfg.ScanInterval, st.Control, w.Cycle)
	case chain.FamilyEVM:
		adapter, err := evm.New(chainRow.RPCURL)
		if err != nil {
			return err
		}
		ex := execevm.New(adapter, signerClient, st.AdvisoryLock, cliutil.GasPriceCapWei(cfg.GasPriceCapGwei))
		w := gastopup.New(*chainRow, st, ex)
		worker = runtime.New(idgen.WorkerID("gas-topup", chainRow.Name), "gas-topup", &chainRow.ID, cfg.ScanInterval, st.Control, w.Cycle)
	default:
		return errs.New(errs.KindConfiguration, "unknown chain family for chain: "+chainName, nil)
	}

	ctx, cancel := cliutil.ShutdownContext()
	defer cancel()
	return worker.Run(ctx)
}
