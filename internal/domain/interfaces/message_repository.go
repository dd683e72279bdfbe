package interfaces

import (
	"context"

	"github.com/heyaura/heyaura/internal/domain/entities"
)

// MessageRepository is the durable, ordered conversation log. Append persists
// synchronously before returning and is the only mutation: entries are never
// patched in place, so concurrent readers never observe a partial write.
type MessageRepository interface {
	Append(ctx context.Context, msg *entities.Message) error
	Load(ctx context.Context) ([]entities.Message, error)
	Clear(ctx context.Context) error
	ChatID() string
}
