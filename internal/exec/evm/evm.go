// Package evm implements internal/exec.Executor for the EVM family:
// advisory-lock-serialized nonce allocation, gas-cap enforcement,
// RLP-encoded unsigned-tx construction, signer dispatch, and the
// broadcast error state machine (§4.10). The chain id used for signing
// is read from the node; it is not compared against chains.chain_id.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	chainevm "github.com/coinsensei/chain-workers/internal/chain/evm"
	"github.com/coinsensei/chain-workers/internal/errs"
	"github.com/coinsensei/chain-workers/internal/exec"
	"github.com/coinsensei/chain-workers/internal/signer"
	"github.com/coinsensei/chain-workers/internal/store"
)

const gasLimitNative = uint64(21_000)
const gasLimitToken = uint64(80_000)

// bumpNumerator/bumpDenominator give the +15% gasPrice bump applied on a single
// replacement-underpriced retry (§4.10).
const bumpNumerator, bumpDenominator = 115, 100

// Executor builds, signs, and broadcasts an EVM legacy-priced
// transaction.
type Executor struct {
	adapter     *chainevm.Adapter
	signer      *signer.Client
	lock        *store.AdvisoryLockRepo
	gasPriceCap *big.Int // wei
}

// New builds an Executor. gasPriceCapWei is the operator-configured
// ceiling from §6's GAS_PRICE_CAP_GWEI.
func New(adapter *chainevm.Adapter, signerClient *signer.Client, lock *store.AdvisoryLockRepo, gasPriceCapWei *big.Int) *Executor {
	return &Executor{adapter: adapter, signer: signerClient, lock: lock, gasPriceCap: gasPriceCapWei}
}

// Execute implements internal/exec.Executor, including one bounded
// retry-with-bumped-price on a replacement-underpriced rejection (§4.10).
func (e *Executor) Execute(ctx context.Context, job exec.Job) (string, error) {
	lockKey := fmt.Sprintf("evm-funder:%d:%s", job.ChainID, strings.ToLower(job.FromAddress))
	if err := e.lock.LockFunder(lockKey); err != nil {
		return "", errs.New(errs.KindNetworkError, "acquire funder advisory lock", err)
	}
	defer e.lock.UnlockFunder(lockKey)

	chainID, err := e.adapter.ChainID(ctx)
	if err != nil {
		return "", err
	}

	gasPrice, err := e.adapter.FeeData(ctx)
	if err != nil {
		return "", err
	}
	if e.gasPriceCap != nil && gasPrice.Cmp(e.gasPriceCap) > 0 {
		return "", errs.New(errs.KindGasPriceExceeded, "suggested gas price exceeds configured cap", nil)
	}

	txHash, err := e.buildSignBroadcast(ctx, job, chainID, gasPrice)
	if err == nil {
		return txHash, nil
	}

	c := errs.As(err)
	switch c.Kind {
	case errs.KindReplacementUnderpriced:
		bumped := new(big.Int).Mul(gasPrice, big.NewInt(bumpNumerator))
		bumped.Div(bumped, big.NewInt(bumpDenominator))
		if e.gasPriceCap != nil && bumped.Cmp(e.gasPriceCap) > 0 {
			return "", errs.New(errs.KindGasPriceExceeded, "bumped gas price would exceed configured cap", nil)
		}
		return e.buildSignBroadcast(ctx, job, chainID, bumped)
	case errs.KindNonceTooLow:
		return e.buildSignBroadcast(ctx, job, chainID, gasPrice)
	default:
		return "", err
	}
}

func (e *Executor) buildSignBroadcast(ctx context.Context, job exec.Job, chainID, gasPrice *big.Int) (string, error) {
	nonce, err := e.adapter.PendingNonce(ctx, job.FromAddress)
	if err != nil {
		return "", err
	}

	var to string
	var value *big.Int
	var data []byte
	var gasLimit uint64

	if job.IsNative {
		to = job.ToAddress
		value, _ = new(big.Int).SetString(job.AmountRaw, 10)
		gasLimit = gasLimitNative
	} else {
		contract := ""
		if job.ContractAddress != nil {
			contract = *job.ContractAddress
		}
		amount, _ := new(big.Int).SetString(job.AmountRaw, 10)
		calldata, err := e.adapter.PackTransfer(job.ToAddress, amount)
		if err != nil {
			return "", errs.New(errs.KindInvalidData, "pack transfer calldata", err)
		}
		to = contract
		value = big.NewInt(0)
		data = calldata
		gasLimit = gasLimitToken
	}

	toAddr := common.HexToAddress(to)
	unsigned := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	rawBin, err := unsigned.MarshalBinary()
	if err != nil {
		return "", errs.New(errs.KindInvalidData, "encode unsigned tx", err)
	}

	result, err := e.signer.Sign(ctx, "evm", job.FromWalletGroupID, job.FromDerivationIndex, signer.NewUnsignedTxPayload(fmt.Sprintf("0x%x", rawBin)))
	if err != nil {
		return "", err
	}

	return e.adapter.SendRawTransaction(ctx, result.SignedRawTxHex)
}
