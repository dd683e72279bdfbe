package integrations

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"
	"github.com/heyaura/heyaura/internal/impl/defaults"

	"go.uber.org/zap"
)

const maxCompletionTokens = 8192

// OpenAIIntegration formats history plus the static tool schema for the
// OpenAI chat completions API and parses the reply into a canonical
// ChatResponse: either free text or a single tool-call request.
type OpenAIIntegration struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewOpenAIIntegration(baseURL, apiKey, model string, logger *zap.Logger) (*OpenAIIntegration, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL cannot be empty")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey cannot be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	return &OpenAIIntegration{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 300 * time.Second},
		logger:     logger,
	}, nil
}

func systemPrompt(wallets []entities.Wallet) string {
	walletContext := "No wallets selected"
	if len(wallets) > 0 {
		parts := make([]string, len(wallets))
		for i, w := range wallets {
			parts[i] = fmt.Sprintf("%s (%s) - Balance: $%s", w.Name, w.Address, w.Balance)
		}
		walletContext = strings.Join(parts, ", ")
	}

	cost := defaults.StrategiesCost.StringFixed(2)
	return fmt.Sprintf(`You are HeyAura, a DeFi AI assistant that helps users explore decentralized finance opportunities. You have access to real-time DeFi strategy recommendations through the Aura Network API.

Available wallet context: %s

Key capabilities:
- Explain DeFi protocols, yield farming, liquidity provision
- Provide educational guidance on DeFi strategies
- Get personalized DeFi strategy recommendations using get_strategies function (costs $%s per wallet address via x402 micropayment)

IMPORTANT:
- When you call get_strategies, the client will handle the x402 micropayment using the user's chosen wallet. Simply make the function call and the client will execute it and return results. Always mention the cost when suggesting this function.
- You can only analyze ONE wallet address at a time. If the user wants to analyze multiple wallets, you must make separate function calls for each wallet.
- BEFORE calling get_strategies for the first time in a conversation, you MUST ask the user for confirmation and explain the payment requirement.
- If you want to analyze another wallet after completing the first analysis, you MUST ask the user for confirmation first.
- Always mention that this is a paid service and explain the cost before making the function call.

Always be helpful, accurate, and focused on DeFi education and strategy.`, walletContext, cost)
}

// convertToAPIMessages formats history for the provider. A tool message must
// carry the call id of the assistant message it answers; missing ids are
// recovered deterministically (see entities.ProviderCallID).
func convertToAPIMessages(history []entities.Message, wallets []entities.Wallet) []map[string]any {
	apiMessages := make([]map[string]any, 0, len(history)+1)
	apiMessages = append(apiMessages, map[string]any{
		"role":    "system",
		"content": systemPrompt(wallets),
	})

	for i := range history {
		msg := history[i]
		switch {
		case msg.Role == entities.RoleTool && msg.ToolCall != nil:
			apiMessages = append(apiMessages, map[string]any{
				"role":         "tool",
				"content":      msg.Content,
				"tool_call_id": entities.ProviderCallID(history, i),
			})
		case msg.IsPendingToolCall():
			content := msg.Content
			if content == "" {
				content = "Executing tool call."
			}
			apiMessages = append(apiMessages, map[string]any{
				"role":    "assistant",
				"content": content,
				"tool_calls": []map[string]any{
					{
						"id":   entities.ProviderCallID(history, i),
						"type": "function",
						"function": map[string]any{
							"name":      msg.ToolCall.Name,
							"arguments": string(msg.ToolCall.Arguments),
						},
					},
				},
			})
		default:
			apiMessages = append(apiMessages, map[string]any{
				"role":    string(msg.Role),
				"content": msg.Content,
			})
		}
	}

	return apiMessages
}

func toolSchema() []map[string]any {
	toolList := defaults.DefaultTools()
	tools := make([]map[string]any, len(toolList))
	for i, tool := range toolList {
		requiredFields := make([]string, 0)
		properties := make(map[string]any)
		for _, param := range tool.Parameters {
			property := map[string]any{
				"type":        param.Type,
				"description": param.Description,
			}
			if param.Pattern != "" {
				property["pattern"] = param.Pattern
			}
			properties[param.Name] = property
			if param.Required {
				requiredFields = append(requiredFields, param.Name)
			}
		}

		tools[i] = map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters": map[string]any{
					"type":       "object",
					"properties": properties,
					"required":   requiredFields,
				},
			},
		}
	}
	return tools
}

func (m *OpenAIIntegration) buildRequest(ctx context.Context, history []entities.Message, wallets []entities.Wallet, stream bool) (*http.Request, error) {
	reqBody := map[string]any{
		"model":                 m.model,
		"messages":              convertToAPIMessages(history, wallets),
		"tools":                 toolSchema(),
		"max_completion_tokens": maxCompletionTokens,
	}
	if stream {
		reqBody["stream"] = true
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.baseURL+"/v1/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	return req, nil
}

// Complete performs one single-shot completion.
func (m *OpenAIIntegration) Complete(ctx context.Context, history []entities.Message, wallets []entities.Wallet) (*entities.ChatResponse, error) {
	req, err := m.buildRequest(ctx, history, wallets, false)
	if err != nil {
		return nil, err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, errors.UpstreamErrorf("error making completion request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.UpstreamErrorf("rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		m.logger.Error("Unexpected status code from provider",
			zap.Int("status", resp.StatusCode), zap.String("body", string(body)))
		return nil, errors.UpstreamErrorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var responseBody struct {
		Choices []struct {
			FinishReason string `json:"finish_reason"`
			Message      struct {
				Content   string `json:"content"`
				ToolCalls []struct {
					ID       string `json:"id"`
					Type     string `json:"type"`
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&responseBody); err != nil {
		return nil, errors.UpstreamErrorf("error decoding response: %v", err)
	}
	if len(responseBody.Choices) == 0 {
		return nil, errors.UpstreamErrorf("no choices in response")
	}

	choice := responseBody.Choices[0]
	if len(choice.Message.ToolCalls) > 0 {
		tc := choice.Message.ToolCalls[0]
		if tc.Type == "function" {
			return m.assembleToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments, choice.Message.Content, choice.FinishReason)
		}
	}

	finishReason := choice.FinishReason
	if finishReason == "" {
		finishReason = "stop"
	}
	return &entities.ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: finishReason,
	}, nil
}

// assembleToolCall builds the canonical tool-call response. Cost is computed
// here, once, from the static price table; downstream components never
// recompute it.
func (m *OpenAIIntegration) assembleToolCall(id, name, arguments, content, finishReason string) (*entities.ChatResponse, error) {
	if arguments == "" {
		arguments = "{}"
	}
	var args json.RawMessage
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, errors.UpstreamErrorf("malformed tool call arguments: %v", err)
	}

	call := &entities.ToolCall{
		ID:        id,
		Name:      name,
		Arguments: args,
	}
	cost := defaults.Cost(name, call)
	call.Cost = &cost

	if content == "" {
		content = narration(call, cost.InexactFloat64())
	}
	if finishReason == "" {
		finishReason = "tool_calls"
	}

	return &entities.ChatResponse{
		Content:      content,
		ToolCall:     call,
		FinishReason: finishReason,
	}, nil
}

// narration is the human-readable stand-in when the provider sends a tool
// call without any accompanying text.
func narration(call *entities.ToolCall, cost float64) string {
	if call.Name == "get_strategies" {
		suffix := "..."
		if cost > 0 {
			suffix = fmt.Sprintf(" (costs $%.2f)...", cost)
		}
		return "Let me fetch DeFi strategy recommendations for 1 wallet" + suffix
	}
	return fmt.Sprintf("Executing %s...", call.Name)
}

// CompleteStream performs an incremental completion over SSE. Content deltas
// are forwarded as they arrive; tool-call fragments are buffered until the
// provider signals tool_calls, at which point the assembled descriptor is
// emitted exactly once on the terminal chunk. The terminal Response is
// identical to what Complete would return for the same model output.
func (m *OpenAIIntegration) CompleteStream(ctx context.Context, history []entities.Message, wallets []entities.Wallet) (<-chan entities.StreamChunk, error) {
	req, err := m.buildRequest(ctx, history, wallets, true)
	if err != nil {
		return nil, err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, errors.UpstreamErrorf("error making completion request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, errors.UpstreamErrorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	chunks := make(chan entities.StreamChunk)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		var contentBuf strings.Builder
		var callID, callName string
		var argsBuf strings.Builder
		finishReason := "stop"

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				break
			}

			var chunk struct {
				Choices []struct {
					FinishReason string `json:"finish_reason"`
					Delta        struct {
						Content   string `json:"content"`
						ToolCalls []struct {
							ID       string `json:"id"`
							Function struct {
								Name      string `json:"name"`
								Arguments string `json:"arguments"`
							} `json:"function"`
						} `json:"tool_calls"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				m.logger.Warn("Skipping malformed stream chunk", zap.Error(err))
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]

			if choice.Delta.Content != "" {
				contentBuf.WriteString(choice.Delta.Content)
				select {
				case chunks <- entities.StreamChunk{Content: choice.Delta.Content}:
				case <-ctx.Done():
					return
				}
			}

			if len(choice.Delta.ToolCalls) > 0 {
				tc := choice.Delta.ToolCalls[0]
				if tc.ID != "" {
					callID = tc.ID
				}
				if tc.Function.Name != "" {
					callName = tc.Function.Name
				}
				argsBuf.WriteString(tc.Function.Arguments)
			}

			if choice.FinishReason != "" {
				finishReason = choice.FinishReason
			}
		}

		if err := scanner.Err(); err != nil {
			select {
			case chunks <- entities.StreamChunk{Done: true, Err: errors.UpstreamErrorf("stream read failed: %v", err)}:
			case <-ctx.Done():
			}
			return
		}

		var response *entities.ChatResponse
		if callName != "" && finishReason == "tool_calls" {
			response, err = m.assembleToolCall(callID, callName, argsBuf.String(), contentBuf.String(), finishReason)
			if err != nil {
				select {
				case chunks <- entities.StreamChunk{Done: true, Err: err}:
				case <-ctx.Done():
				}
				return
			}
		} else {
			response = &entities.ChatResponse{
				Content:      contentBuf.String(),
				FinishReason: finishReason,
			}
		}

		select {
		case chunks <- entities.StreamChunk{Done: true, Response: response}:
		case <-ctx.Done():
		}
	}()

	return chunks, nil
}

var _ interfaces.CompletionClient = (*OpenAIIntegration)(nil)
