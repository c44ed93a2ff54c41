// Package errs classifies errors into the kinds enumerated in the design
// (§7), which drive retry/backoff vs fail-fast decisions uniformly across
// every worker.
package errs

import "fmt"

// Kind is an error classification. It is never compared by string value
// outside this package; callers use the exported constants.
type Kind string

const (
	KindConfiguration       Kind = "configuration"
	KindAuthorization       Kind = "authorization"
	KindInvalidData         Kind = "invalid_data"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindNonceError          Kind = "nonce_error"
	KindGasError            Kind = "gas_error"
	KindGasSpike            Kind = "gas_spike"
	KindGasPriceExceeded    Kind = "gas_price_exceeded"
	KindReplacementUnderpriced Kind = "replacement_underpriced"
	KindNonceTooLow         Kind = "nonce_too_low"
	KindTaposError          Kind = "tapos_error"
	KindNetworkError        Kind = "network_error"
	KindNotFound            Kind = "not_found"
	KindLedger              Kind = "ledger"
	KindUnauthorized        Kind = "unauthorized"
	KindDerivationFailed    Kind = "derivation_failed"
	KindVaultUnavailable    Kind = "vault_unavailable"
	KindSigningFailed       Kind = "signing_failed"
	KindTxReverted          Kind = "tx_reverted"
	KindFundingWalletNotFound Kind = "funding_wallet_not_found"
)

// retryable mirrors the non-retryable / retryable split from §4.8 and §7.
var retryable = map[Kind]bool{
	KindConfiguration:          false,
	KindAuthorization:          false,
	KindInvalidData:            false,
	KindInsufficientBalance:    false,
	KindUnauthorized:           false,
	KindDerivationFailed:       false,
	KindTxReverted:             false,

	KindNonceError:             true,
	KindGasError:               true,
	KindGasSpike:               true,
	KindGasPriceExceeded:       true,
	KindReplacementUnderpriced: true,
	KindNonceTooLow:            true,
	KindVaultUnavailable:       true,
	KindSigningFailed:          true,
	KindTaposError:             true,
	KindNetworkError:           true,
	KindNotFound:               true,
	KindLedger:                 true,
	KindFundingWalletNotFound:  true,
}

// Classified is an error tagged with a Kind, used to pick between a
// backoff-and-retry cycle and an immediate terminal failure.
type Classified struct {
	Kind    Kind
	Message string
	Cause   error
}

func (c *Classified) Error() string {
	if c.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", c.Kind, c.Message, c.Cause)
	}
	return fmt.Sprintf("[%s] %s", c.Kind, c.Message)
}

func (c *Classified) Unwrap() error { return c.Cause }

// Retryable reports whether this error kind should be retried with
// backoff (true) or should jump straight to a terminal failed state
// (false), per §4.8's non-retryable/retryable enumeration.
func (c *Classified) Retryable() bool {
	return retryable[c.Kind]
}

// New constructs a Classified error.
func New(kind Kind, message string, cause error) *Classified {
	return &Classified{Kind: kind, Message: message, Cause: cause}
}

// Tag formats the `[error_type] text` error_message shape mandated by
// §4.8.
func (c *Classified) Tag() string {
	return fmt.Sprintf("[%s] %s", c.Kind, c.Message)
}

// As extracts a *Classified from err, defaulting to a retryable
// network_error classification for anything unclassified — an
// unrecognized failure from an external collaborator (RPC, signer) should
// not silently become a terminal failure.
func As(err error) *Classified {
	if err == nil {
		return nil
	}
	if c, ok := err.(*Classified); ok {
		return c
	}
	var c *Classified
	if errorsAs(err, &c) {
		return c
	}
	return New(KindNetworkError, "unclassified error", err)
}

func errorsAs(err error, target **Classified) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if c, ok := err.(*Classified); ok {
			*target = c
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
