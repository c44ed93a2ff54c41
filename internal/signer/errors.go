package signer

import (
	"fmt"
	"net/http"

	"github.com/coinsensei/chain-workers/internal/errs"
)

// Wire error codes the signing service returns in its JSON error body
// (§4.2). An unrecognized code is classified by HTTP status: 401/403
// become unauthorized, anything else falls back to vault_unavailable, a
// retryable kind, since an unrecognized failure from an external collaborator
// should not silently become non-retryable.
const (
	wireDerivationFailed     = "derivation_failed"
	wireVaultUnavailable     = "vault_unavailable"
	wireUnauthorized         = "unauthorized"
	wireInvalidPayload       = "invalid_payload"
	wireFundingWalletNotFound = "funding_wallet_not_found"
)

// ClassifyWireError maps a signer error code/message/HTTP status to the
// internal/errs taxonomy.
func ClassifyWireError(code, message string, httpStatus int) *errs.Classified {
	msg := message
	if msg == "" {
		msg = fmt.Sprintf("signer returned HTTP %d", httpStatus)
	}
	switch code {
	case wireDerivationFailed:
		return errs.New(errs.KindDerivationFailed, msg, nil)
	case wireVaultUnavailable:
		return errs.New(errs.KindVaultUnavailable, msg, nil)
	case wireUnauthorized:
		return errs.New(errs.KindUnauthorized, msg, nil)
	case wireInvalidPayload:
		return errs.New(errs.KindInvalidData, msg, nil)
	case wireFundingWalletNotFound:
		return errs.New(errs.KindFundingWalletNotFound, msg, nil)
	}

	if httpStatus == http.StatusUnauthorized || httpStatus == http.StatusForbidden {
		return errs.New(errs.KindUnauthorized, msg, nil)
	}
	if httpStatus >= 500 {
		return errs.New(errs.KindVaultUnavailable, msg, nil)
	}
	return errs.New(errs.KindVaultUnavailable, msg, nil)
}
