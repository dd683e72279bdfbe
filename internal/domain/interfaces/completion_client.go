package interfaces

import (
	"context"

	"github.com/heyaura/heyaura/internal/domain/entities"
)

// CompletionClient turns a sanitized history into exactly one assistant
// reply: free text or a single tool-call request. Callers must sanitize the
// history (entities.SanitizeForModel) immediately before every invocation.
//
// CompleteStream is a latency optimization for the text path only: it emits
// partial content fragments and terminates with a chunk whose Response equals
// what Complete would have returned for the same model output.
type CompletionClient interface {
	Complete(ctx context.Context, history []entities.Message, wallets []entities.Wallet) (*entities.ChatResponse, error)
	CompleteStream(ctx context.Context, history []entities.Message, wallets []entities.Wallet) (<-chan entities.StreamChunk, error)
}
