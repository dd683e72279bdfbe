package entities

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// USDC uses 6 decimal places on every network we settle on.
const USDCDecimals = 6

// PaymentRequirements is one accepted payment option advertised by a 402
// challenge. MaxAmountRequired is in atomic units of Asset.
type PaymentRequirements struct {
	Scheme            string          `json:"scheme"`
	Network           string          `json:"network"`
	MaxAmountRequired string          `json:"maxAmountRequired"`
	Resource          string          `json:"resource"`
	Description       string          `json:"description"`
	MimeType          string          `json:"mimeType"`
	PayTo             string          `json:"payTo"`
	MaxTimeoutSeconds int             `json:"maxTimeoutSeconds"`
	Asset             string          `json:"asset"`
	Extra             json.RawMessage `json:"extra,omitempty"`
}

// PaymentChallenge is the body of a 402 response: the protocol version, an
// error string for humans, and the list of acceptable payment requirements.
type PaymentChallenge struct {
	X402Version int                   `json:"x402Version"`
	Error       string                `json:"error,omitempty"`
	Accepts     []PaymentRequirements `json:"accepts"`
}

// TransferAuthorization is the EIP-3009 transferWithAuthorization message the
// payer signs. Value is in atomic units; ValidAfter/ValidBefore are unix
// seconds as decimal strings; Nonce is a random 32-byte hex value.
type TransferAuthorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

// ExactPaymentPayload is the signed authorization for the "exact" scheme.
type ExactPaymentPayload struct {
	Signature     string                `json:"signature"`
	Authorization TransferAuthorization `json:"authorization"`
}

// PaymentPayload is the decoded X-Payment header attached to the retried
// request after a challenge.
type PaymentPayload struct {
	X402Version int                 `json:"x402Version"`
	Scheme      string              `json:"scheme"`
	Network     string              `json:"network"`
	Payload     ExactPaymentPayload `json:"payload"`
}

// SettlementResponse is the facilitator's settle result, surfaced to clients
// through the X-Payment-Response header.
type SettlementResponse struct {
	Success     bool   `json:"success"`
	ErrorReason string `json:"errorReason,omitempty"`
	Transaction string `json:"transaction,omitempty"`
	Network     string `json:"network,omitempty"`
	Payer       string `json:"payer,omitempty"`
}

// AtomicUSDC converts a USD amount to atomic USDC units, e.g. 0.01 -> "10000".
func AtomicUSDC(amount decimal.Decimal) string {
	return amount.Shift(USDCDecimals).Truncate(0).String()
}

// USDFromAtomic converts atomic USDC units back to a USD decimal.
func USDFromAtomic(units string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(units)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(-USDCDecimals), nil
}
