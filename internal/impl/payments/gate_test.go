package payments

import (
	"context"
	"testing"
	"time"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSessionRepo struct {
	session *entities.Session
}

func (s *stubSessionRepo) Load(ctx context.Context) (*entities.Session, error) {
	return s.session, nil
}
func (s *stubSessionRepo) Save(ctx context.Context, session *entities.Session) error { return nil }
func (s *stubSessionRepo) Reset(ctx context.Context, chatID string) error            { return nil }

type stubBalances struct {
	balances map[string]decimal.Decimal
}

func (s *stubBalances) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	return s.balances[address], nil
}

type stubPrompter struct {
	useAutoPayer bool
	err          error
	gotOptions   []interfaces.PayerOption
	block        chan struct{}
	called       chan struct{}
}

func (s *stubPrompter) Prompt(ctx context.Context, req *entities.PaymentRequest, options []interfaces.PayerOption) (bool, error) {
	s.gotOptions = options
	if s.called != nil {
		close(s.called)
	}
	if s.block != nil {
		<-s.block
	}
	return s.useAutoPayer, s.err
}

func testSession() *entities.Session {
	return &entities.Session{
		ChatID: "chat_test",
		Wallets: []entities.Wallet{
			{ID: "w1", Name: "Connected", Address: "0x1111111111111111111111111111111111111111", IsConnected: true},
			{ID: "w2", Name: "Auto-Pay", Address: "0x2222222222222222222222222222222222222222", IsBuiltIn: true},
		},
	}
}

func TestGateApprovesAutoPayer(t *testing.T) {
	balances := &stubBalances{balances: map[string]decimal.Decimal{
		"0x1111111111111111111111111111111111111111": decimal.NewFromFloat(5),
		"0x2222222222222222222222222222222222222222": decimal.NewFromFloat(1),
	}}
	prompter := &stubPrompter{useAutoPayer: true}
	gate := NewGate(&stubSessionRepo{session: testSession()}, balances, prompter, zap.NewNop())

	useAutoPayer, err := gate.RequestPayment(context.Background(), decimal.NewFromFloat(0.01), "get_strategies")

	require.NoError(t, err)
	assert.True(t, useAutoPayer)
	require.Len(t, prompter.gotOptions, 2)
	assert.False(t, prompter.gotOptions[0].Disabled)
	assert.False(t, prompter.gotOptions[1].Disabled)
}

func TestGateDisablesUnderfundedPayer(t *testing.T) {
	balances := &stubBalances{balances: map[string]decimal.Decimal{
		"0x1111111111111111111111111111111111111111": decimal.NewFromFloat(0.005),
		"0x2222222222222222222222222222222222222222": decimal.NewFromFloat(1),
	}}
	prompter := &stubPrompter{useAutoPayer: true}
	gate := NewGate(&stubSessionRepo{session: testSession()}, balances, prompter, zap.NewNop())

	_, err := gate.RequestPayment(context.Background(), decimal.NewFromFloat(0.01), "get_strategies")

	require.NoError(t, err)
	require.Len(t, prompter.gotOptions, 2)
	assert.True(t, prompter.gotOptions[0].Disabled)
	assert.False(t, prompter.gotOptions[1].Disabled)
}

func TestGateInsufficientFundsEverywhere(t *testing.T) {
	balances := &stubBalances{balances: map[string]decimal.Decimal{}}
	prompter := &stubPrompter{}
	gate := NewGate(&stubSessionRepo{session: testSession()}, balances, prompter, zap.NewNop())

	_, err := gate.RequestPayment(context.Background(), decimal.NewFromFloat(0.01), "get_strategies")

	require.Error(t, err)
	var insufficientErr *errors.InsufficientFundsError
	assert.ErrorAs(t, err, &insufficientErr)
	assert.Nil(t, prompter.gotOptions, "prompter must not run when no payer can fund the call")
}

func TestGateCancellation(t *testing.T) {
	balances := &stubBalances{balances: map[string]decimal.Decimal{
		"0x2222222222222222222222222222222222222222": decimal.NewFromFloat(1),
	}}
	prompter := &stubPrompter{err: errors.PaymentCancelledErrorf("payment request dismissed")}
	gate := NewGate(&stubSessionRepo{session: testSession()}, balances, prompter, zap.NewNop())

	_, err := gate.RequestPayment(context.Background(), decimal.NewFromFloat(0.01), "get_strategies")

	require.Error(t, err)
	var cancelledErr *errors.PaymentCancelledError
	assert.ErrorAs(t, err, &cancelledErr)
}

func TestGateSingleFlight(t *testing.T) {
	balances := &stubBalances{balances: map[string]decimal.Decimal{
		"0x2222222222222222222222222222222222222222": decimal.NewFromFloat(1),
	}}
	prompter := &stubPrompter{
		useAutoPayer: true,
		block:        make(chan struct{}),
		called:       make(chan struct{}),
	}
	gate := NewGate(&stubSessionRepo{session: testSession()}, balances, prompter, zap.NewNop())

	firstDone := make(chan error, 1)
	go func() {
		_, err := gate.RequestPayment(context.Background(), decimal.NewFromFloat(0.01), "get_strategies")
		firstDone <- err
	}()

	select {
	case <-prompter.called:
	case <-time.After(2 * time.Second):
		t.Fatal("first request never reached the prompter")
	}

	_, err := gate.RequestPayment(context.Background(), decimal.NewFromFloat(0.01), "get_strategies")
	require.Error(t, err)
	var pendingErr *errors.PaymentPendingError
	assert.ErrorAs(t, err, &pendingErr)

	close(prompter.block)
	require.NoError(t, <-firstDone)
}
