package interfaces

import (
	"context"
	"encoding/json"

	"github.com/heyaura/heyaura/internal/domain/entities"
)

// ToolDispatcher executes one named paid tool against its remote endpoint,
// driving the payment challenge/response handshake with the chosen payer's
// signer. Validate checks the call against the tool schema so callers can
// reject a bad call before asking anyone to pay for it. Once dispatch begins
// the call runs to completion or failure; there is no mid-flight cancel
// beyond the ~60s transport timeout.
type ToolDispatcher interface {
	Validate(call *entities.ToolCall) error
	Execute(ctx context.Context, call *entities.ToolCall, useAutoPayer bool) (json.RawMessage, error)
}
