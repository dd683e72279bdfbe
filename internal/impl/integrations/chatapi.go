package integrations

import (
	"context"
	"net/http"
	"time"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ChatAPIClient is the console's CompletionClient: it talks to the stateless
// chat endpoint instead of the provider directly, so the API key and system
// prompt stay server-side. The endpoint receives the sanitized history and
// returns exactly one assistant message.
type ChatAPIClient struct {
	client *resty.Client
	logger *zap.Logger
}

func NewChatAPIClient(baseURL string, logger *zap.Logger) *ChatAPIClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(120 * time.Second)

	return &ChatAPIClient{
		client: client,
		logger: logger,
	}
}

type chatMessageRequest struct {
	Content         string             `json:"content"`
	SelectedWallets []entities.Wallet  `json:"selectedWallets"`
	ChatHistory     []entities.Message `json:"chatHistory"`
}

func (c *ChatAPIClient) Complete(ctx context.Context, history []entities.Message, wallets []entities.Wallet) (*entities.ChatResponse, error) {
	// The endpoint wants the latest turn's text split out from the history.
	content := ""
	if len(history) > 0 {
		content = history[len(history)-1].Content
	}

	var result struct {
		Message entities.Message `json:"message"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(chatMessageRequest{
			Content:         content,
			SelectedWallets: wallets,
			ChatHistory:     history,
		}).
		SetResult(&result).
		Post("/api/chat/message")
	if err != nil {
		return nil, errors.UpstreamErrorf("chat request failed: %v", err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, errors.UpstreamErrorf("rate limit exceeded, please try again later")
	}
	if resp.IsError() {
		c.logger.Warn("Chat endpoint returned error",
			zap.Int("status", resp.StatusCode()), zap.String("body", resp.String()))
		return nil, errors.UpstreamErrorf("chat endpoint returned status %d", resp.StatusCode())
	}

	finishReason := "stop"
	if result.Message.ToolCall != nil {
		finishReason = "tool_calls"
	}
	return &entities.ChatResponse{
		Content:      result.Message.Content,
		ToolCall:     result.Message.ToolCall,
		FinishReason: finishReason,
	}, nil
}

// CompleteStream degrades to single-shot: the HTTP endpoint is not
// incremental, and the orchestration semantics do not depend on delivery
// granularity. The websocket endpoint serves callers that want fragments.
func (c *ChatAPIClient) CompleteStream(ctx context.Context, history []entities.Message, wallets []entities.Wallet) (<-chan entities.StreamChunk, error) {
	response, err := c.Complete(ctx, history, wallets)
	if err != nil {
		return nil, err
	}

	chunks := make(chan entities.StreamChunk, 2)
	if response.Content != "" {
		chunks <- entities.StreamChunk{Content: response.Content}
	}
	chunks <- entities.StreamChunk{Done: true, Response: response}
	close(chunks)
	return chunks, nil
}

var _ interfaces.CompletionClient = (*ChatAPIClient)(nil)
