package payments

import (
	"context"
	"sync/atomic"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/events"
	"github.com/heyaura/heyaura/internal/domain/interfaces"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gate is the single-flight payment gate. It gathers the candidate payers
// from the session, fetches their balances live, and blocks the turn on the
// prompter until the user decides. Only one request may be in flight; a
// second concurrent request is refused outright rather than queued.
type Gate struct {
	sessions interfaces.SessionRepository
	balances interfaces.BalanceChecker
	prompter interfaces.PaymentPrompter
	logger   *zap.Logger
	pending  atomic.Bool
}

var _ interfaces.PaymentGate = (*Gate)(nil)

func NewGate(sessions interfaces.SessionRepository, balances interfaces.BalanceChecker, prompter interfaces.PaymentPrompter, logger *zap.Logger) *Gate {
	return &Gate{
		sessions: sessions,
		balances: balances,
		prompter: prompter,
		logger:   logger,
	}
}

func (g *Gate) RequestPayment(ctx context.Context, amount decimal.Decimal, toolName string) (bool, error) {
	if !g.pending.CompareAndSwap(false, true) {
		return false, errors.PaymentPendingErrorf("a payment request is already awaiting a decision")
	}
	defer g.pending.Store(false)

	session, err := g.sessions.Load(ctx)
	if err != nil {
		return false, errors.InternalErrorf("failed to load wallet session: %v", err)
	}

	options := g.collectOptions(ctx, session, amount)
	if len(options) == 0 {
		return false, errors.InsufficientFundsErrorf("no wallet is available to pay $%s", amount.StringFixed(2))
	}

	allDisabled := true
	for _, opt := range options {
		if !opt.Disabled {
			allDisabled = false
			break
		}
	}
	if allDisabled {
		return false, errors.InsufficientFundsErrorf("insufficient funds: no wallet holds the $%s required for %s", amount.StringFixed(2), toolName)
	}

	request := &entities.PaymentRequest{Amount: amount, ToolName: toolName}
	events.PublishPaymentRequest(request, false)
	defer events.PublishPaymentRequest(request, true)

	useAutoPayer, err := g.prompter.Prompt(ctx, request, options)
	if err != nil {
		return false, err
	}

	g.logger.Info("Payment approved",
		zap.String("tool", toolName),
		zap.String("amount", amount.String()),
		zap.Bool("autoPay", useAutoPayer))
	return useAutoPayer, nil
}

// collectOptions builds the payer list with live balances. A wallet whose
// balance cannot be fetched or falls short of amount stays visible but
// disabled, so the user sees why it cannot pay.
func (g *Gate) collectOptions(ctx context.Context, session *entities.Session, amount decimal.Decimal) []interfaces.PayerOption {
	var options []interfaces.PayerOption

	appendWallet := func(w *entities.Wallet, autoPay bool) {
		if w == nil {
			return
		}
		balance, err := g.balances.Balance(ctx, w.Address)
		if err != nil {
			g.logger.Warn("Balance lookup failed",
				zap.String("address", w.Address),
				zap.Error(err))
			options = append(options, interfaces.PayerOption{
				Wallet:   *w,
				Balance:  decimal.Zero,
				AutoPay:  autoPay,
				Disabled: true,
			})
			return
		}
		options = append(options, interfaces.PayerOption{
			Wallet:   *w,
			Balance:  balance,
			AutoPay:  autoPay,
			Disabled: balance.LessThan(amount),
		})
	}

	appendWallet(session.ConnectedWallet(), false)
	appendWallet(session.AutoPayWallet(), true)
	return options
}
