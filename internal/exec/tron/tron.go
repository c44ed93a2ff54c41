// Package tron implements internal/exec.Executor for TRON: intent
// construction, signer dispatch, and broadcast (§4.9).
package tron

import (
	"context"
	"fmt"

	chaintron "github.com/coinsensei/chain-workers/internal/chain/tron"
	"github.com/coinsensei/chain-workers/internal/errs"
	"github.com/coinsensei/chain-workers/internal/exec"
	"github.com/coinsensei/chain-workers/internal/money"
	"github.com/coinsensei/chain-workers/internal/signer"
)

// Executor builds a TRON transfer intent (native TRX or TRC-20), has it
// signed by the signing service, and broadcasts the result.
type Executor struct {
	adapter *chaintron.Adapter
	signer  *signer.Client
}

// New builds an Executor over adapter/signerClient.
func New(adapter *chaintron.Adapter, signerClient *signer.Client) *Executor {
	return &Executor{adapter: adapter, signer: signerClient}
}

// Execute implements internal/exec.Executor. A TAPOS-related broadcast
// rejection discards any returned id and is surfaced to the caller as
// retryable, never persisted as tx_hash (§4.9, P2).
func (e *Executor) Execute(ctx context.Context, job exec.Job) (string, error) {
	var payload signer.IntentPayload
	if job.IsNative {
		payload = signer.NewIntentPayload(job.FromAddress, "", "TransferContract", nativeParameter(job.ToAddress, job.AmountRaw))
	} else {
		contract := ""
		if job.ContractAddress != nil {
			contract = *job.ContractAddress
		}
		payload = signer.NewIntentPayload(job.FromAddress, contract, "transfer(address,uint256)", trc20Parameter(job.ToAddress, job.AmountRaw))
	}

	result, err := e.signer.Sign(ctx, "tron", job.FromWalletGroupID, job.FromDerivationIndex, payload)
	if err != nil {
		return "", err
	}

	txHash, err := e.adapter.BroadcastSigned(ctx, result.SignedRawTxHex)
	if err != nil {
		if c := errs.As(err); c.Kind == errs.KindTaposError {
			return "", c
		}
		return "", err
	}
	return txHash, nil
}

// nativeParameter and trc20Parameter build the "parameter" field of the
// signing intent — an opaque, signer-defined encoding of (to, amount)
// that this core never interprets, only forwards (§4.2).
func nativeParameter(to, amountRaw string) string {
	return fmt.Sprintf(`{"to_address":%q,"amount":%q}`, to, amountRaw)
}

func trc20Parameter(to, amountRaw string) string {
	if money.IsZero(amountRaw) {
		amountRaw = "0"
	}
	return fmt.Sprintf(`{"to_address":%q,"amount":%q}`, to, amountRaw)
}
