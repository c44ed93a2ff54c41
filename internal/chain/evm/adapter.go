// Package evm implements internal/chain.Adapter against an EVM-family RPC
// node (BSC) via go-ethereum's ethclient, mirroring the teacher's own
// go-ethereum-derived client.Client wrapper (client/bridge_client.go)
// generalized from a bridge-specific RPC surface down to the narrow
// Adapter contract (§4.1, §4.10).
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/coinsensei/chain-workers/internal/chain"
	"github.com/coinsensei/chain-workers/internal/errs"
	"github.com/coinsensei/chain-workers/internal/money"
)

// transferEventSig is the keccak256 topic0 for the ERC-20 Transfer event.
const transferEventSig = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// Adapter implements chain.Adapter over an EVM JSON-RPC endpoint.
type Adapter struct {
	client *ethclient.Client
	erc20  abi.ABI
}

// New dials rpcURL and builds the minimal ERC-20 ABI used to decode
// Transfer logs and encode balanceOf/transfer calldata.
func New(rpcURL string) (*Adapter, error) {
	c, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errs.New(errs.KindNetworkError, "dial evm rpc", err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, errs.New(errs.KindConfiguration, "parse erc20 abi", err)
	}
	return &Adapter{client: c, erc20: parsed}, nil
}

func (a *Adapter) Family() chain.Family { return chain.FamilyEVM }

func (a *Adapter) CurrentBlock(ctx context.Context) (uint64, error) {
	n, err := a.client.BlockNumber(ctx)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// TransferLogs scans [from, to] for Transfer(address,address,uint256)
// events emitted by contract, decoding each into a chain.TransferLog
// (§4.4).
func (a *Adapter) TransferLogs(ctx context.Context, contract string, from, to uint64) ([]chain.TransferLog, error) {
	addr := common.HexToAddress(contract)
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{addr},
		Topics:    [][]common.Hash{{common.HexToHash(transferEventSig)}},
	}
	logs, err := a.client.FilterLogs(ctx, q)
	if err != nil {
		return nil, classify(err)
	}

	out := make([]chain.TransferLog, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) < 3 {
			continue
		}
		amount := new(big.Int).SetBytes(lg.Data)
		out = append(out, chain.TransferLog{
			TxHash:      lg.TxHash.Hex(),
			LogIndex:    int64(lg.Index),
			From:        common.HexToAddress(lg.Topics[1].Hex()).Hex(),
			To:          common.HexToAddress(lg.Topics[2].Hex()).Hex(),
			Amount:      amount,
			BlockNumber: lg.BlockNumber,
		})
	}
	return out, nil
}

func (a *Adapter) Receipt(ctx context.Context, txHash string) (*chain.Receipt, error) {
	hash := common.HexToHash(txHash)
	r, err := a.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if err == ethereum.NotFound {
			return nil, nil
		}
		return nil, classify(err)
	}
	status := chain.ReceiptFailed
	if r.Status == types.ReceiptStatusSuccessful {
		status = chain.ReceiptSuccess
	}
	gasPrice := "0"
	if r.EffectiveGasPrice != nil {
		gasPrice = r.EffectiveGasPrice.String()
	}
	return &chain.Receipt{
		TxHash:      r.TxHash.Hex(),
		Status:      status,
		BlockNumber: r.BlockNumber.Uint64(),
		GasUsed:     fmt.Sprintf("%d", r.GasUsed),
		GasPrice:    gasPrice,
	}, nil
}

// Confirmations is current - receipt.BlockNumber + 1, floored at 0 —
// matching §4.5's confirmation-count definition.
func (a *Adapter) Confirmations(receipt *chain.Receipt, current uint64) uint64 {
	if receipt == nil || receipt.BlockNumber > current {
		return 0
	}
	return current - receipt.BlockNumber + 1
}

func (a *Adapter) NativeBalance(ctx context.Context, addr string) (*big.Int, error) {
	bal, err := a.client.BalanceAt(ctx, common.HexToAddress(addr), nil)
	if err != nil {
		return nil, classify(err)
	}
	return bal, nil
}

func (a *Adapter) TokenBalance(ctx context.Context, contract, addr string) (*big.Int, error) {
	data, err := a.erc20.Pack("balanceOf", common.HexToAddress(addr))
	if err != nil {
		return nil, errs.New(errs.KindInvalidData, "pack balanceOf calldata", err)
	}
	to := common.HexToAddress(contract)
	out, err := a.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, classify(err)
	}
	return new(big.Int).SetBytes(out), nil
}

// FormatAmount renders raw divided by 10^decimals as an exact decimal
// string via internal/money, never float64 (P8).
func (a *Adapter) FormatAmount(raw *big.Int, decimals int) string {
	s, err := money.RawToHuman(raw.String(), decimals)
	if err != nil {
		return raw.String()
	}
	return s
}

func (a *Adapter) PendingNonce(ctx context.Context, addr string) (uint64, error) {
	n, err := a.client.PendingNonceAt(ctx, common.HexToAddress(addr))
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// FeeData returns the network's suggested legacy gasPrice — this core
// always builds legacy-priced transactions, per SPEC_FULL.md §12.
func (a *Adapter) FeeData(ctx context.Context) (*big.Int, error) {
	p, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

func (a *Adapter) SendRawTransaction(ctx context.Context, rawHex string) (string, error) {
	raw := common.FromHex(rawHex)
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return "", errs.New(errs.KindInvalidData, "decode signed raw tx", err)
	}
	if err := a.client.SendTransaction(ctx, tx); err != nil {
		return "", classifyBroadcast(err)
	}
	return tx.Hash().Hex(), nil
}

func (a *Adapter) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := a.client.ChainID(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return id, nil
}

// classify maps a generic ethclient RPC error to the errs taxonomy; a
// network hiccup is retryable by default (§7).
func classify(err error) error {
	if err == nil {
		return nil
	}
	return errs.New(errs.KindNetworkError, "evm rpc call failed", err)
}

// classifyBroadcast maps the specific broadcast-rejection strings from
// §4.10's error state machine to their dedicated kinds; everything else
// falls back to network_error.
func classifyBroadcast(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "replacement transaction underpriced"):
		return errs.New(errs.KindReplacementUnderpriced, "broadcast rejected", err)
	case strings.Contains(msg, "nonce too low"), strings.Contains(msg, "already known"):
		return errs.New(errs.KindNonceTooLow, "broadcast rejected", err)
	case strings.Contains(msg, "insufficient funds"):
		return errs.New(errs.KindInsufficientBalance, "broadcast rejected", err)
	case strings.Contains(msg, "invalid sender"), strings.Contains(msg, "invalid address"):
		return errs.New(errs.KindInvalidData, "broadcast rejected", err)
	default:
		return errs.New(errs.KindNetworkError, "broadcast rejected", err)
	}
}

// erc20ABI is the minimal ERC-20 surface this core needs: Transfer event
// plus balanceOf.
const erc20ABI = `[
  {"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"},
  {"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
  {"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// PackTransfer encodes calldata for an ERC-20 transfer(to, amount) call,
// used by internal/exec/evm to build token-asset unsigned transactions.
func (a *Adapter) PackTransfer(to string, amount *big.Int) ([]byte, error) {
	return a.erc20.Pack("transfer", common.HexToAddress(to), amount)
}
