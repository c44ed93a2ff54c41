package exec

import "context"

// Job is the chain-family-neutral description of a single funder-signed
// transfer: gas-topup, consolidation, and withdrawal jobs all reduce to
// this same shape before being handed to a family-specific Executor
// (§4.8 — the shared state machine; §4.9/§4.10 — the family specifics
// that actually build/sign/broadcast it).
type Job struct {
	ChainID int64

	FromWalletGroupID   string
	FromDerivationIndex int64
	FromAddress         string

	ToAddress string

	AssetOnChainID  int64
	ContractAddress *string
	IsNative        bool
	Decimals        int

	AmountRaw string
}

// Executor builds, signs (via internal/signer), and broadcasts one Job,
// returning the broadcast transaction hash. Implemented once per chain
// family (internal/exec/tron, internal/exec/evm).
type Executor interface {
	Execute(ctx context.Context, job Job) (txHash string, err error)
}
