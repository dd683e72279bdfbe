package services

import (
	"context"
	"sync/atomic"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/events"
	"github.com/heyaura/heyaura/internal/domain/interfaces"
	"github.com/heyaura/heyaura/internal/impl/defaults"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Turn states. A turn moves strictly forward; failures from any non-idle
// state conclude the turn with a synthetic assistant error message so the
// history never holds an unanswered tool call.
const (
	StateIdle                     = "idle"
	StateAwaitingCompletion       = "awaiting_completion"
	StateAwaitingPayment          = "awaiting_payment"
	StateAwaitingDispatch         = "awaiting_dispatch"
	StateAwaitingReinterpretation = "awaiting_reinterpretation"
	StateAnswered                 = "answered"
	StateError                    = "error"
)

// ChatService runs one conversation turn end to end: commit the user message,
// get a completion, and when the model requests a paid tool, walk the
// payment-gate / dispatch / reinterpretation legs. Exactly one turn runs at a
// time and every intermediate message is persisted the moment it exists, so a
// crash at any point leaves a replayable history.
type ChatService struct {
	messages    interfaces.MessageRepository
	sessions    interfaces.SessionRepository
	completions interfaces.CompletionClient
	gate        interfaces.PaymentGate
	dispatcher  interfaces.ToolDispatcher
	logger      *zap.Logger
	turnActive  atomic.Bool
}

func NewChatService(
	messages interfaces.MessageRepository,
	sessions interfaces.SessionRepository,
	completions interfaces.CompletionClient,
	gate interfaces.PaymentGate,
	dispatcher interfaces.ToolDispatcher,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		messages:    messages,
		sessions:    sessions,
		completions: completions,
		gate:        gate,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// SendMessage runs one full turn for the user's content and returns the final
// assistant message. Failures after the user message is committed are
// converted into assistant error messages and returned normally; only a turn
// that cannot start returns an error.
func (s *ChatService) SendMessage(ctx context.Context, content string) (*entities.Message, error) {
	if content == "" {
		return nil, errors.ValidationErrorf("message content cannot be empty")
	}
	if !s.turnActive.CompareAndSwap(false, true) {
		return nil, errors.ValidationErrorf("a turn is already in progress")
	}
	defer func() {
		s.turnActive.Store(false)
		s.setState(StateIdle)
	}()

	userMsg := entities.NewMessage(entities.RoleUser, content, s.messages.ChatID())
	if err := s.append(ctx, userMsg); err != nil {
		return nil, err
	}

	s.setState(StateAwaitingCompletion)
	response, err := s.complete(ctx)
	if err != nil {
		return s.concludeWithError(ctx, err)
	}

	if !response.IsToolCall() {
		final := entities.NewMessage(entities.RoleAssistant, response.Content, s.messages.ChatID())
		if err := s.append(ctx, final); err != nil {
			return nil, err
		}
		s.setState(StateAnswered)
		return final, nil
	}

	return s.runPaidToolLeg(ctx, response)
}

// runPaidToolLeg handles a turn whose first completion requested a paid tool:
// commit the call, gate the payment, dispatch, commit the result, and ask the
// model to reinterpret it into the final answer.
func (s *ChatService) runPaidToolLeg(ctx context.Context, response *entities.ChatResponse) (*entities.Message, error) {
	call := response.ToolCall

	s.maybeNotifyFirstUse(ctx, call.Name)

	callMsg := entities.NewToolCallMessage(response.Content, call, s.messages.ChatID())
	if err := s.append(ctx, callMsg); err != nil {
		return nil, err
	}

	// A call that fails schema validation must never create a payment
	// request, so the arguments are checked before the gate is involved.
	if err := s.dispatcher.Validate(call); err != nil {
		return s.concludeWithError(ctx, err)
	}

	var amount decimal.Decimal
	if call.Cost != nil {
		amount = *call.Cost
	} else {
		amount = defaults.Cost(call.Name, call)
	}

	s.setState(StateAwaitingPayment)
	useAutoPayer, err := s.gate.RequestPayment(ctx, amount, call.Name)
	if err != nil {
		return s.concludeWithError(ctx, err)
	}

	s.setState(StateAwaitingDispatch)
	result, err := s.dispatcher.Execute(ctx, call, useAutoPayer)
	if err != nil {
		return s.concludeWithError(ctx, err)
	}

	resultMsg := entities.NewToolResultMessage(call, result, s.messages.ChatID())
	if err := s.append(ctx, resultMsg); err != nil {
		return nil, err
	}

	s.setState(StateAwaitingReinterpretation)
	reinterpretation, err := s.complete(ctx)
	if err != nil {
		return s.concludeWithError(ctx, err)
	}
	if reinterpretation.IsToolCall() {
		// The model may not chain paid calls: the second call is never
		// committed and the turn ends with an error message.
		return s.concludeWithError(ctx,
			errors.UpstreamErrorf("the model requested another paid call instead of interpreting the result"))
	}

	final := entities.NewMessage(entities.RoleAssistant, reinterpretation.Content, s.messages.ChatID())
	if err := s.append(ctx, final); err != nil {
		return nil, err
	}
	s.setState(StateAnswered)
	return final, nil
}

// ClearChat empties the conversation and tears down the wallet session bound
// to the old chat id.
func (s *ChatService) ClearChat(ctx context.Context) error {
	oldChatID := s.messages.ChatID()
	if err := s.messages.Clear(ctx); err != nil {
		return errors.InternalErrorf("failed to clear chat: %v", err)
	}
	if err := s.sessions.Reset(ctx, oldChatID); err != nil {
		return errors.InternalErrorf("failed to reset wallet session: %v", err)
	}
	s.logger.Info("Chat cleared", zap.String("newChatId", s.messages.ChatID()))
	return nil
}

// History returns the full persisted conversation.
func (s *ChatService) History(ctx context.Context) ([]entities.Message, error) {
	return s.messages.Load(ctx)
}

func (s *ChatService) complete(ctx context.Context) (*entities.ChatResponse, error) {
	history, err := s.messages.Load(ctx)
	if err != nil {
		return nil, errors.InternalErrorf("failed to load history: %v", err)
	}
	session, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, errors.InternalErrorf("failed to load wallet session: %v", err)
	}
	return s.completions.Complete(ctx, entities.SanitizeForModel(history), session.WalletsForChat())
}

func (s *ChatService) append(ctx context.Context, msg *entities.Message) error {
	if err := s.messages.Append(ctx, msg); err != nil {
		return errors.InternalErrorf("failed to persist message: %v", err)
	}
	events.PublishMessageAppended(msg.ChatID, msg)
	return nil
}

// concludeWithError converts any mid-turn failure into a committed assistant
// error message, which becomes the turn's final message.
func (s *ChatService) concludeWithError(ctx context.Context, cause error) (*entities.Message, error) {
	s.setState(StateError)
	s.logger.Warn("Turn failed", zap.Error(cause))

	errMsg := entities.NewMessage(entities.RoleAssistant,
		"Sorry, I encountered an error: "+cause.Error(), s.messages.ChatID())
	if err := s.append(ctx, errMsg); err != nil {
		return nil, err
	}
	events.PublishNotification("error", cause.Error())
	return errMsg, nil
}

// maybeNotifyFirstUse surfaces the tool's first-time payment notice when the
// history holds no earlier result for it.
func (s *ChatService) maybeNotifyFirstUse(ctx context.Context, toolName string) {
	tool, ok := defaults.ToolByName(toolName)
	if !ok || tool.FirstTimeMessage == "" {
		return
	}
	history, err := s.messages.Load(ctx)
	if err != nil {
		return
	}
	for _, msg := range history {
		if msg.Role == entities.RoleTool && msg.Metadata != nil && msg.Metadata.ToolName == toolName {
			return
		}
	}
	events.PublishNotification("info", tool.FirstTimeMessage)
}

func (s *ChatService) setState(state string) {
	events.PublishTurnState(s.messages.ChatID(), state)
}
