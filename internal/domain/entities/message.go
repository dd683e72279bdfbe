package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ToolCall is a structured request from the model to invoke a named tool.
// ID may be empty: some providers omit call ids on the response leg, and the
// history formatter recovers one deterministically (see ProviderCallID).
// Cost is attached once when the call is first detected and never recomputed.
type ToolCall struct {
	ID        string           `json:"id,omitempty" bson:"id,omitempty"`
	Name      string           `json:"name" bson:"name"`
	Arguments json.RawMessage  `json:"arguments" bson:"arguments"`
	Cost      *decimal.Decimal `json:"cost,omitempty" bson:"cost,omitempty"`
}

// Argument returns the named string argument, or "" if absent.
func (tc *ToolCall) Argument(name string) string {
	var args map[string]any
	if err := json.Unmarshal(tc.Arguments, &args); err != nil {
		return ""
	}
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

// ToolResultMetadata carries the raw tool result alongside a tool message so
// renderers can show rich output without re-parsing Content.
type ToolResultMetadata struct {
	ToolName   string          `json:"toolName" bson:"tool_name"`
	ToolResult json.RawMessage `json:"toolResult" bson:"tool_result"`
}

type Message struct {
	ID        string              `json:"id" bson:"id"`
	Role      Role                `json:"role" bson:"role"`
	Content   string              `json:"content" bson:"content"`
	ToolCall  *ToolCall           `json:"toolCall,omitempty" bson:"tool_call,omitempty"`
	Metadata  *ToolResultMetadata `json:"metadata,omitempty" bson:"metadata,omitempty"`
	ChatID    string              `json:"chatId" bson:"chat_id"`
	CreatedAt time.Time           `json:"createdAt" bson:"created_at"`
}

func NewMessage(role Role, content, chatID string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		ChatID:    chatID,
		CreatedAt: time.Now(),
	}
}

// NewToolCallMessage builds the assistant message that carries a pending call.
func NewToolCallMessage(content string, call *ToolCall, chatID string) *Message {
	msg := NewMessage(RoleAssistant, content, chatID)
	msg.ToolCall = call
	return msg
}

// NewToolResultMessage answers call with the serialized result payload.
func NewToolResultMessage(call *ToolCall, result json.RawMessage, chatID string) *Message {
	msg := NewMessage(RoleTool, string(result), chatID)
	msg.ToolCall = &ToolCall{ID: call.ID, Name: call.Name, Arguments: call.Arguments}
	msg.Metadata = &ToolResultMetadata{ToolName: call.Name, ToolResult: result}
	return msg
}

// IsPendingToolCall reports whether this is an assistant message carrying a
// tool call, i.e. a message that must be answered by a later tool message.
func (m *Message) IsPendingToolCall() bool {
	return m.Role == RoleAssistant && m.ToolCall != nil
}
