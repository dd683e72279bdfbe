package interfaces

import (
	"context"

	"github.com/heyaura/heyaura/internal/domain/entities"
)

// SessionRepository persists the wallet session context. Save runs on every
// mutation; Reset tears the session down on clear-chat.
type SessionRepository interface {
	Load(ctx context.Context) (*entities.Session, error)
	Save(ctx context.Context, session *entities.Session) error
	Reset(ctx context.Context, chatID string) error
}
