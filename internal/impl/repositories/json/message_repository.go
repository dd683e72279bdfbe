package repositories_json

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"

	"github.com/google/uuid"
)

type chatLog struct {
	ChatID   string             `json:"chatId"`
	Messages []entities.Message `json:"messages"`
}

// JsonMessageRepository is the durable conversation log backed by a single
// JSON file. Append rewrites the file before returning, so a crash mid-turn
// never loses a committed message.
type JsonMessageRepository struct {
	filePath string
	data     chatLog
}

func NewJSONMessageRepository(dataDir string) (interfaces.MessageRepository, error) {
	filePath := filepath.Join(dataDir, "messages.json")
	repo := &JsonMessageRepository{
		filePath: filePath,
		data:     chatLog{},
	}

	if err := repo.load(); err != nil {
		return nil, err
	}
	if repo.data.ChatID == "" {
		repo.data.ChatID = "chat_" + uuid.New().String()
	}

	return repo, nil
}

func (r *JsonMessageRepository) load() error {
	data, err := os.ReadFile(r.filePath)
	if os.IsNotExist(err) {
		return nil // File doesn't exist yet, start with empty data
	}
	if err != nil {
		return errors.InternalErrorf("failed to read messages.json: %v", err)
	}

	var log chatLog
	if err := json.Unmarshal(data, &log); err != nil {
		return errors.InternalErrorf("failed to unmarshal messages.json: %v", err)
	}

	for i := range log.Messages {
		if log.Messages[i].ID == "" {
			return errors.InternalErrorf("message at index %d is missing an ID", i)
		}
	}

	r.data = log
	return nil
}

func (r *JsonMessageRepository) save() error {
	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return errors.InternalErrorf("failed to marshal messages: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.filePath), 0755); err != nil {
		return errors.InternalErrorf("failed to create directory: %v", err)
	}

	if err := os.WriteFile(r.filePath, data, 0644); err != nil {
		return errors.InternalErrorf("failed to write messages.json: %v", err)
	}

	return nil
}

func (r *JsonMessageRepository) Append(ctx context.Context, msg *entities.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.ChatID == "" {
		msg.ChatID = r.data.ChatID
	}
	r.data.Messages = append(r.data.Messages, *msg)
	return r.save()
}

func (r *JsonMessageRepository) Load(ctx context.Context) ([]entities.Message, error) {
	messagesCopy := make([]entities.Message, len(r.data.Messages))
	copy(messagesCopy, r.data.Messages)
	return messagesCopy, nil
}

func (r *JsonMessageRepository) Clear(ctx context.Context) error {
	r.data = chatLog{
		ChatID:   "chat_" + uuid.New().String(),
		Messages: nil,
	}
	return r.save()
}

func (r *JsonMessageRepository) ChatID() string {
	return r.data.ChatID
}

var _ interfaces.MessageRepository = (*JsonMessageRepository)(nil)
