package interfaces

import (
	"context"

	"github.com/heyaura/heyaura/internal/domain/entities"
)

// PaymentSigner is the opaque wallet capable of authorizing one micropayment.
// Implementations hold either a locally generated auto-pay key or a bridge to
// an external wallet; the dispatcher never sees key material.
type PaymentSigner interface {
	// Address returns the payer address authorizations are drawn from.
	Address() string
	// ChainID returns the chain the signer is currently on.
	ChainID(ctx context.Context) (int64, error)
	// SwitchChain asks the signer to move to the target chain. External
	// wallets may refuse; local signers are pinned and return an error for
	// any chain other than their own.
	SwitchChain(ctx context.Context, chainID int64) error
	// SignTransferAuthorization produces the EIP-712 signature over an
	// EIP-3009 transferWithAuthorization message for the given requirements.
	SignTransferAuthorization(ctx context.Context, auth entities.TransferAuthorization, req entities.PaymentRequirements) (string, error)
}
