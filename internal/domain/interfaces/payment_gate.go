package interfaces

import (
	"context"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/shopspring/decimal"
)

// PaymentGate suspends a turn until the user picks a payer or dismisses the
// request. At most one request may be pending system-wide; a second call
// while one is outstanding is a programming error and fails immediately with
// a PaymentPendingError instead of queueing.
//
// RequestPayment returns true when the auto-pay wallet should fund the call,
// false for the connected wallet, or a PaymentCancelledError on dismissal.
// Payers whose live balance is below amount are not offered.
type PaymentGate interface {
	RequestPayment(ctx context.Context, amount decimal.Decimal, toolName string) (useAutoPayer bool, err error)
}

// BalanceChecker fetches a payer's live settlement-asset balance in USD.
// Balances are never cached across payment requests.
type BalanceChecker interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
}

// PaymentPrompter renders a pending payment request and blocks until the user
// decides. Options with Disabled set must not be selectable.
type PaymentPrompter interface {
	Prompt(ctx context.Context, req *entities.PaymentRequest, options []PayerOption) (useAutoPayer bool, err error)
}

// PayerOption is one selectable payer with its live balance.
type PayerOption struct {
	Wallet   entities.Wallet
	Balance  decimal.Decimal
	AutoPay  bool
	Disabled bool
}
