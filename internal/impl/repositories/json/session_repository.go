package repositories_json

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"
)

// JsonSessionRepository persists the wallet session context on every
// mutation, mirroring the message log's file layout.
type JsonSessionRepository struct {
	filePath string
}

func NewJSONSessionRepository(dataDir string) (interfaces.SessionRepository, error) {
	return &JsonSessionRepository{
		filePath: filepath.Join(dataDir, "session.json"),
	}, nil
}

func (r *JsonSessionRepository) Load(ctx context.Context) (*entities.Session, error) {
	data, err := os.ReadFile(r.filePath)
	if os.IsNotExist(err) {
		return &entities.Session{}, nil
	}
	if err != nil {
		return nil, errors.InternalErrorf("failed to read session.json: %v", err)
	}

	var session entities.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.InternalErrorf("failed to unmarshal session.json: %v", err)
	}
	return &session, nil
}

func (r *JsonSessionRepository) Save(ctx context.Context, session *entities.Session) error {
	session.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return errors.InternalErrorf("failed to marshal session: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.filePath), 0755); err != nil {
		return errors.InternalErrorf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(r.filePath, data, 0644); err != nil {
		return errors.InternalErrorf("failed to write session.json: %v", err)
	}
	return nil
}

func (r *JsonSessionRepository) Reset(ctx context.Context, chatID string) error {
	return r.Save(ctx, &entities.Session{ChatID: chatID})
}

var _ interfaces.SessionRepository = (*JsonSessionRepository)(nil)
