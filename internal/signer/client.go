// Package signer implements the RPC client to the external signing
// service (§4.2). The signing service itself — key custody, derivation,
// the actual cryptographic signing — is an out-of-scope collaborator
// (SPEC_FULL.md §1); this package only speaks its wire protocol.
package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coinsensei/chain-workers/internal/errs"
)

// Client is a thin HTTP+JSON RPC client over the signer's sign endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New builds a Client against baseURL, authenticating every request with
// apiKey (§6's SIGNER_API_KEY).
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

// Payload is implemented by IntentPayload and UnsignedTxPayload — the
// two request-body shapes Sign accepts, kept mutually exclusive by
// construction rather than by a single struct with both fields exported
// (§4.2).
type Payload interface {
	isSignerPayload()
}

// IntentPayload is the TRON signing request shape: a structured
// transaction intent the signer itself builds and signs.
type IntentPayload struct {
	ContractAddress string `json:"contract_address,omitempty"`
	FunctionName    string `json:"function_name,omitempty"`
	Parameter       string `json:"parameter,omitempty"`
	OwnerAddress    string `json:"owner_address"`
}

func (IntentPayload) isSignerPayload() {}

// NewIntentPayload constructs an IntentPayload.
func NewIntentPayload(ownerAddress, contractAddress, functionName, parameter string) IntentPayload {
	return IntentPayload{
		OwnerAddress:    ownerAddress,
		ContractAddress: contractAddress,
		FunctionName:    functionName,
		Parameter:       parameter,
	}
}

// UnsignedTxPayload is the EVM signing request shape: an RLP-encoded
// unsigned transaction the signer signs and returns verbatim.
type UnsignedTxPayload struct {
	UnsignedTxHex string `json:"unsigned_tx_hex"`
}

func (UnsignedTxPayload) isSignerPayload() {}

// NewUnsignedTxPayload constructs an UnsignedTxPayload.
func NewUnsignedTxPayload(unsignedTxHex string) UnsignedTxPayload {
	return UnsignedTxPayload{UnsignedTxHex: unsignedTxHex}
}

// Result is the signer's successful response: the signed raw transaction
// (hex) ready for broadcast, keyed identically for both chain families.
type Result struct {
	SignedRawTxHex string `json:"signed_raw_tx_hex"`
}

type signRequest struct {
	Chain           string `json:"chain"`
	WalletGroupID   string `json:"wallet_group_id"`
	DerivationIndex int64  `json:"derivation_index"`
	Payload         Payload `json:"payload"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Sign dispatches a signing request for (walletGroupID, derivationIndex)
// on chain, carrying either an IntentPayload or an UnsignedTxPayload.
func (c *Client) Sign(ctx context.Context, chain, walletGroupID string, derivationIndex int64, payload Payload) (*Result, error) {
	body, err := json.Marshal(signRequest{
		Chain:           chain,
		WalletGroupID:   walletGroupID,
		DerivationIndex: derivationIndex,
		Payload:         payload,
	})
	if err != nil {
		return nil, errs.New(errs.KindInvalidData, "encode sign request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sign", bytes.NewReader(body))
	if err != nil {
		return nil, errs.New(errs.KindInvalidData, "build sign request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.New(errs.KindVaultUnavailable, "signer request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var eresp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		return nil, ClassifyWireError(eresp.Code, eresp.Message, resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errs.New(errs.KindVaultUnavailable, "decode sign response", err)
	}
	if result.SignedRawTxHex == "" {
		return nil, errs.New(errs.KindSigningFailed, "signer returned an empty signed transaction", nil)
	}
	return &result, nil
}
