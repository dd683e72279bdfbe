package events

import (
	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/kelindar/event"
)

// Event types
const (
	MessageAppendedEventType uint32 = 1
	PaymentRequestEventType  uint32 = 2
	TurnStateEventType       uint32 = 3
	NotificationEventType    uint32 = 4
)

// MessageAppendedData fires whenever the orchestration loop commits a message
// to the store, so renderers can update without polling.
type MessageAppendedData struct {
	ChatID  string
	Message *entities.Message
}

// PaymentRequestData fires when a payment gate request opens or closes.
type PaymentRequestData struct {
	Request  *entities.PaymentRequest
	Resolved bool
}

// TurnStateData fires on every orchestration state transition.
type TurnStateData struct {
	ChatID string
	State  string
}

// NotificationData is a transient user-facing notice (errors, settle info).
// These never substitute for the assistant-role error message appended to the
// history; they are the toast on top of it.
type NotificationData struct {
	Level   string
	Message string
}

func (m MessageAppendedData) Type() uint32 { return MessageAppendedEventType }
func (p PaymentRequestData) Type() uint32  { return PaymentRequestEventType }
func (t TurnStateData) Type() uint32       { return TurnStateEventType }
func (n NotificationData) Type() uint32    { return NotificationEventType }

// PublishMessageAppended publishes a message-appended event.
func PublishMessageAppended(chatID string, msg *entities.Message) {
	event.Emit(MessageAppendedData{ChatID: chatID, Message: msg})
}

// SubscribeToMessages subscribes to message-appended events.
func SubscribeToMessages(handler func(data MessageAppendedData)) func() {
	return event.On(handler)
}

// PublishPaymentRequest publishes a payment request lifecycle event.
func PublishPaymentRequest(req *entities.PaymentRequest, resolved bool) {
	event.Emit(PaymentRequestData{Request: req, Resolved: resolved})
}

// SubscribeToPaymentRequests subscribes to payment request events.
func SubscribeToPaymentRequests(handler func(data PaymentRequestData)) func() {
	return event.On(handler)
}

// PublishTurnState publishes an orchestration state transition.
func PublishTurnState(chatID, state string) {
	event.Emit(TurnStateData{ChatID: chatID, State: state})
}

// SubscribeToTurnState subscribes to orchestration state transitions.
func SubscribeToTurnState(handler func(data TurnStateData)) func() {
	return event.On(handler)
}

// PublishNotification publishes a transient user-facing notice.
func PublishNotification(level, message string) {
	event.Emit(NotificationData{Level: level, Message: message})
}

// SubscribeToNotifications subscribes to transient notices.
func SubscribeToNotifications(handler func(data NotificationData)) func() {
	return event.On(handler)
}
