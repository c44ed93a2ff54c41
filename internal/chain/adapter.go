// Package chain defines the chain-family-agnostic adapter interface that
// detector, balance-sync, and execution workers program against, plus a
// retry wrapper, WithRetry (§4.1). The concrete adapters and their
// callers do not call WithRetry: each adapter call is made once and its
// error is returned to the caller.
package chain

import (
	"context"
	"math/big"
)

// Family discriminates the two supported chain families. Execution
// workers branch on Family, never on a concrete adapter type, so adding
// a second EVM-family chain needs no new code path (§9).
type Family string

const (
	FamilyTron Family = "tron"
	FamilyEVM  Family = "evm"
)

// TransferLog is one decoded transfer event, native or token, yielded by
// a batched log scan (§4.4).
type TransferLog struct {
	TxHash      string
	LogIndex    int64
	From        string
	To          string
	Amount      *big.Int
	BlockNumber uint64
}

// ReceiptStatus is the chain-family-neutral outcome of a mined
// transaction.
type ReceiptStatus int

const (
	ReceiptPending ReceiptStatus = iota
	ReceiptSuccess
	ReceiptFailed
)

// Receipt is a chain-family-neutral mined-transaction result (§4.11).
type Receipt struct {
	TxHash      string
	Status      ReceiptStatus
	BlockNumber uint64
	GasUsed     string
	GasPrice    string
}

// Adapter is implemented once per chain family (internal/chain/tron,
// internal/chain/evm). Every method takes a context so callers can bound
// RPC calls with per-cycle deadlines.
type Adapter interface {
	Family() Family

	CurrentBlock(ctx context.Context) (uint64, error)
	TransferLogs(ctx context.Context, contract string, from, to uint64) ([]TransferLog, error)
	Receipt(ctx context.Context, txHash string) (*Receipt, error)
	Confirmations(receipt *Receipt, current uint64) uint64

	NativeBalance(ctx context.Context, addr string) (raw *big.Int, err error)
	TokenBalance(ctx context.Context, contract, addr string) (raw *big.Int, err error)

	FormatAmount(raw *big.Int, decimals int) string

	// PendingNonce, FeeData, SendRawTransaction, and ChainID are only
	// meaningful for FamilyEVM adapters (§4.1 [NEW]); FamilyTron
	// implementations return errs.KindConfiguration if called.
	PendingNonce(ctx context.Context, addr string) (uint64, error)
	FeeData(ctx context.Context) (gasPriceWei *big.Int, err error)
	SendRawTransaction(ctx context.Context, rawHex string) (txHash string, err error)
	ChainID(ctx context.Context) (*big.Int, error)
}
