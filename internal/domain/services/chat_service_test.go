package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/impl/tools"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryMessageRepo struct {
	chatID   string
	messages []entities.Message
}

func (m *memoryMessageRepo) Append(ctx context.Context, msg *entities.Message) error {
	m.messages = append(m.messages, *msg)
	return nil
}
func (m *memoryMessageRepo) Load(ctx context.Context) ([]entities.Message, error) {
	out := make([]entities.Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}
func (m *memoryMessageRepo) Clear(ctx context.Context) error {
	m.messages = nil
	m.chatID = "chat_fresh"
	return nil
}
func (m *memoryMessageRepo) ChatID() string { return m.chatID }

type memorySessionRepo struct {
	session *entities.Session
	resets  []string
}

func (m *memorySessionRepo) Load(ctx context.Context) (*entities.Session, error) {
	return m.session, nil
}
func (m *memorySessionRepo) Save(ctx context.Context, session *entities.Session) error { return nil }
func (m *memorySessionRepo) Reset(ctx context.Context, chatID string) error {
	m.resets = append(m.resets, chatID)
	return nil
}

// scriptedCompletions returns its responses in order, one per Complete call.
type scriptedCompletions struct {
	responses []*entities.ChatResponse
	errs      []error
	calls     int
}

func (s *scriptedCompletions) Complete(ctx context.Context, history []entities.Message, wallets []entities.Wallet) (*entities.ChatResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.responses[i], nil
}

func (s *scriptedCompletions) CompleteStream(ctx context.Context, history []entities.Message, wallets []entities.Wallet) (<-chan entities.StreamChunk, error) {
	ch := make(chan entities.StreamChunk, 1)
	resp, err := s.Complete(ctx, history, wallets)
	if err != nil {
		return nil, err
	}
	ch <- entities.StreamChunk{Done: true, Response: resp}
	close(ch)
	return ch, nil
}

type scriptedGate struct {
	useAutoPayer bool
	err          error
	requests     int
	gotAmount    decimal.Decimal
}

func (g *scriptedGate) RequestPayment(ctx context.Context, amount decimal.Decimal, toolName string) (bool, error) {
	g.requests++
	g.gotAmount = amount
	return g.useAutoPayer, g.err
}

type scriptedDispatcher struct {
	result      json.RawMessage
	err         error
	validateErr error
	calls       int
}

func (d *scriptedDispatcher) Validate(call *entities.ToolCall) error {
	return d.validateErr
}

func (d *scriptedDispatcher) Execute(ctx context.Context, call *entities.ToolCall, useAutoPayer bool) (json.RawMessage, error) {
	d.calls++
	return d.result, d.err
}

func strategiesResponse(t *testing.T) *entities.ChatResponse {
	t.Helper()
	args, err := json.Marshal(map[string]string{"address": "0x1111111111111111111111111111111111111111"})
	require.NoError(t, err)
	cost := decimal.RequireFromString("0.01")
	return &entities.ChatResponse{
		Content: "Let me fetch DeFi strategy recommendations for 1 wallet (costs $0.01)...",
		ToolCall: &entities.ToolCall{
			ID:        "call_abc",
			Name:      "get_strategies",
			Arguments: args,
			Cost:      &cost,
		},
		FinishReason: "tool_calls",
	}
}

func newTestService(completions *scriptedCompletions, gate *scriptedGate, dispatcher *scriptedDispatcher) (*ChatService, *memoryMessageRepo) {
	repo := &memoryMessageRepo{chatID: "chat_1"}
	sessions := &memorySessionRepo{session: &entities.Session{ChatID: "chat_1"}}
	svc := NewChatService(repo, sessions, completions, gate, dispatcher, zap.NewNop())
	return svc, repo
}

func roles(messages []entities.Message) []entities.Role {
	out := make([]entities.Role, len(messages))
	for i, m := range messages {
		out[i] = m.Role
	}
	return out
}

func TestSendMessagePlainAnswer(t *testing.T) {
	completions := &scriptedCompletions{responses: []*entities.ChatResponse{
		{Content: "DeFi stands for decentralized finance.", FinishReason: "stop"},
	}}
	gate := &scriptedGate{}
	svc, repo := newTestService(completions, gate, &scriptedDispatcher{})

	final, err := svc.SendMessage(context.Background(), "what is defi?")

	require.NoError(t, err)
	assert.Equal(t, "DeFi stands for decentralized finance.", final.Content)
	assert.Equal(t, []entities.Role{entities.RoleUser, entities.RoleAssistant}, roles(repo.messages))
	assert.Zero(t, gate.requests, "no payment for a text answer")
}

func TestSendMessagePaidToolFlow(t *testing.T) {
	completions := &scriptedCompletions{responses: []*entities.ChatResponse{
		strategiesResponse(t),
		{Content: "Here are your strategies: stake ETH.", FinishReason: "stop"},
	}}
	gate := &scriptedGate{useAutoPayer: true}
	dispatcher := &scriptedDispatcher{result: json.RawMessage(`{"strategies":["stake ETH"]}`)}
	svc, repo := newTestService(completions, gate, dispatcher)

	final, err := svc.SendMessage(context.Background(), "strategies for my wallet")

	require.NoError(t, err)
	assert.Equal(t, "Here are your strategies: stake ETH.", final.Content)
	assert.Equal(t, []entities.Role{
		entities.RoleUser,
		entities.RoleAssistant,
		entities.RoleTool,
		entities.RoleAssistant,
	}, roles(repo.messages))

	assert.True(t, gate.gotAmount.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, 1, dispatcher.calls)

	callMsg := repo.messages[1]
	require.NotNil(t, callMsg.ToolCall)
	assert.Equal(t, "get_strategies", callMsg.ToolCall.Name)

	resultMsg := repo.messages[2]
	require.NotNil(t, resultMsg.Metadata)
	assert.Equal(t, "get_strategies", resultMsg.Metadata.ToolName)
	assert.JSONEq(t, `{"strategies":["stake ETH"]}`, string(resultMsg.Metadata.ToolResult))
}

func TestSendMessageInvalidAddressNeverReachesGate(t *testing.T) {
	args, err := json.Marshal(map[string]string{"address": "vitalik.eth"})
	require.NoError(t, err)
	completions := &scriptedCompletions{responses: []*entities.ChatResponse{{
		Content:      "Let me fetch DeFi strategy recommendations...",
		ToolCall:     &entities.ToolCall{ID: "call_abc", Name: "get_strategies", Arguments: args},
		FinishReason: "tool_calls",
	}}}
	gate := &scriptedGate{useAutoPayer: true}
	dispatcher := tools.NewDispatcher("", nil, nil, zap.NewNop())
	repo := &memoryMessageRepo{chatID: "chat_1"}
	sessions := &memorySessionRepo{session: &entities.Session{ChatID: "chat_1"}}
	svc := NewChatService(repo, sessions, completions, gate, dispatcher, zap.NewNop())

	final, err := svc.SendMessage(context.Background(), "strategies for vitalik.eth")

	require.NoError(t, err)
	assert.Contains(t, final.Content, `invalid address "vitalik.eth"`)
	assert.Zero(t, gate.requests, "a call that fails validation must never create a payment request")
}

func TestSendMessageValidationFailureSkipsPaymentAndDispatch(t *testing.T) {
	completions := &scriptedCompletions{responses: []*entities.ChatResponse{strategiesResponse(t)}}
	gate := &scriptedGate{useAutoPayer: true}
	dispatcher := &scriptedDispatcher{validateErr: errors.ValidationErrorf("tool get_strategies requires a address argument")}
	svc, _ := newTestService(completions, gate, dispatcher)

	final, err := svc.SendMessage(context.Background(), "strategies please")

	require.NoError(t, err)
	assert.Contains(t, final.Content, "requires a address argument")
	assert.Zero(t, gate.requests)
	assert.Zero(t, dispatcher.calls)
}

func TestSendMessagePaymentCancelled(t *testing.T) {
	completions := &scriptedCompletions{responses: []*entities.ChatResponse{strategiesResponse(t)}}
	gate := &scriptedGate{err: errors.PaymentCancelledErrorf("payment request dismissed")}
	dispatcher := &scriptedDispatcher{}
	svc, repo := newTestService(completions, gate, dispatcher)

	final, err := svc.SendMessage(context.Background(), "strategies please")

	require.NoError(t, err)
	assert.Contains(t, final.Content, "payment request dismissed")
	assert.Zero(t, dispatcher.calls, "cancellation must not dispatch")

	// The dangling call is committed but sanitization hides it from the model,
	// so the next completion sees a clean history.
	sanitized := entities.SanitizeForModel(repo.messages)
	for _, msg := range sanitized {
		assert.False(t, msg.IsPendingToolCall(), "sanitized history may not hold an unanswered call")
	}
}

func TestSendMessageDispatchFailure(t *testing.T) {
	completions := &scriptedCompletions{responses: []*entities.ChatResponse{strategiesResponse(t)}}
	gate := &scriptedGate{useAutoPayer: true}
	dispatcher := &scriptedDispatcher{err: errors.FacilitatorUnavailableErrorf("payment facilitator not responding, please try again later")}
	svc, repo := newTestService(completions, gate, dispatcher)

	final, err := svc.SendMessage(context.Background(), "strategies please")

	require.NoError(t, err)
	assert.Contains(t, final.Content, "facilitator not responding")
	assert.Equal(t, entities.RoleAssistant, repo.messages[len(repo.messages)-1].Role)
}

func TestSendMessageReinterpretationMayNotChainCalls(t *testing.T) {
	completions := &scriptedCompletions{responses: []*entities.ChatResponse{
		strategiesResponse(t),
		strategiesResponse(t),
	}}
	gate := &scriptedGate{useAutoPayer: true}
	dispatcher := &scriptedDispatcher{result: json.RawMessage(`{"ok":true}`)}
	svc, repo := newTestService(completions, gate, dispatcher)

	final, err := svc.SendMessage(context.Background(), "strategies please")

	require.NoError(t, err)
	assert.Contains(t, final.Content, "another paid call")
	assert.Equal(t, 1, dispatcher.calls, "the chained call is never dispatched")

	// Only the first call message exists; the chained one was never committed.
	callCount := 0
	for _, msg := range repo.messages {
		if msg.IsPendingToolCall() {
			callCount++
		}
	}
	assert.Equal(t, 1, callCount)
}

func TestSendMessageCompletionFailure(t *testing.T) {
	completions := &scriptedCompletions{
		responses: []*entities.ChatResponse{nil},
		errs:      []error{errors.UpstreamErrorf("rate limit exceeded, please wait a moment and try again")},
	}
	svc, repo := newTestService(completions, &scriptedGate{}, &scriptedDispatcher{})

	final, err := svc.SendMessage(context.Background(), "hello")

	require.NoError(t, err)
	assert.Contains(t, final.Content, "rate limit exceeded")
	assert.Equal(t, []entities.Role{entities.RoleUser, entities.RoleAssistant}, roles(repo.messages))
}

func TestSendMessageRejectsConcurrentTurn(t *testing.T) {
	svc, _ := newTestService(&scriptedCompletions{responses: []*entities.ChatResponse{{Content: "hi"}}}, &scriptedGate{}, &scriptedDispatcher{})

	svc.turnActive.Store(true)
	_, err := svc.SendMessage(context.Background(), "hello")

	var validationErr *errors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestClearChatResetsSession(t *testing.T) {
	repo := &memoryMessageRepo{chatID: "chat_1", messages: []entities.Message{
		*entities.NewMessage(entities.RoleUser, "hi", "chat_1"),
	}}
	sessions := &memorySessionRepo{session: &entities.Session{ChatID: "chat_1"}}
	svc := NewChatService(repo, sessions, &scriptedCompletions{}, &scriptedGate{}, &scriptedDispatcher{}, zap.NewNop())

	require.NoError(t, svc.ClearChat(context.Background()))

	assert.Empty(t, repo.messages)
	assert.Equal(t, []string{"chat_1"}, sessions.resets)
}
