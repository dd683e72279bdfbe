package services

import (
	"context"
	"time"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WalletService manages the per-conversation wallet session: the auto-pay
// wallet generated on first run, the user-connected external wallet, and the
// subset selected as prompt context. Every mutation persists the session.
type WalletService struct {
	sessions interfaces.SessionRepository
	balances interfaces.BalanceChecker
	logger   *zap.Logger
}

func NewWalletService(sessions interfaces.SessionRepository, balances interfaces.BalanceChecker, logger *zap.Logger) *WalletService {
	return &WalletService{
		sessions: sessions,
		balances: balances,
		logger:   logger,
	}
}

// EnsureAutoPayWallet registers the built-in payer if the session does not
// hold one yet. The address comes from the local signer's persisted key, so
// it is stable across runs.
func (s *WalletService) EnsureAutoPayWallet(ctx context.Context, address string) error {
	session, err := s.sessions.Load(ctx)
	if err != nil {
		return errors.InternalErrorf("failed to load wallet session: %v", err)
	}
	if existing := session.AutoPayWallet(); existing != nil {
		if existing.Address == address {
			return nil
		}
		existing.Address = address
		return s.sessions.Save(ctx, session)
	}

	wallet := entities.Wallet{
		ID:        uuid.New().String(),
		Name:      "Auto-Pay Wallet",
		Address:   address,
		IsBuiltIn: true,
		CreatedAt: time.Now(),
	}
	session.Wallets = append(session.Wallets, wallet)
	session.SelectedWallets = append(session.SelectedWallets, wallet.ID)
	s.logger.Info("Registered auto-pay wallet", zap.String("address", address))
	return s.sessions.Save(ctx, session)
}

// ConnectWallet adds (or replaces) the external wallet by address.
func (s *WalletService) ConnectWallet(ctx context.Context, address, name string) (*entities.Wallet, error) {
	if !entities.IsValidAddress(address) {
		return nil, errors.ValidationErrorf("invalid wallet address %q, expected 0x followed by 40 hex characters", address)
	}
	session, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, errors.InternalErrorf("failed to load wallet session: %v", err)
	}

	if name == "" {
		name = "Connected Wallet"
	}
	if existing := session.ConnectedWallet(); existing != nil {
		existing.Address = address
		existing.Name = name
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, errors.InternalErrorf("failed to save wallet session: %v", err)
		}
		return existing, nil
	}

	wallet := entities.Wallet{
		ID:          uuid.New().String(),
		Name:        name,
		Address:     address,
		IsConnected: true,
		CreatedAt:   time.Now(),
	}
	session.Wallets = append(session.Wallets, wallet)
	session.SelectedWallets = append(session.SelectedWallets, wallet.ID)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, errors.InternalErrorf("failed to save wallet session: %v", err)
	}
	s.logger.Info("Connected wallet", zap.String("address", address))
	return &session.Wallets[len(session.Wallets)-1], nil
}

// SelectWallets sets the prompt-context selection. Unknown ids are rejected.
func (s *WalletService) SelectWallets(ctx context.Context, ids []string) error {
	session, err := s.sessions.Load(ctx)
	if err != nil {
		return errors.InternalErrorf("failed to load wallet session: %v", err)
	}
	known := make(map[string]bool, len(session.Wallets))
	for _, w := range session.Wallets {
		known[w.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return errors.ValidationErrorf("unknown wallet id %q", id)
		}
	}
	session.SelectedWallets = ids
	return s.sessions.Save(ctx, session)
}

// ListWallets returns the wallet book with freshly fetched balances. Lookup
// failures leave the stale display balance in place rather than failing the
// listing.
func (s *WalletService) ListWallets(ctx context.Context) ([]entities.Wallet, error) {
	session, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, errors.InternalErrorf("failed to load wallet session: %v", err)
	}
	changed := false
	for i := range session.Wallets {
		balance, err := s.balances.Balance(ctx, session.Wallets[i].Address)
		if err != nil {
			s.logger.Warn("Balance refresh failed",
				zap.String("address", session.Wallets[i].Address),
				zap.Error(err))
			continue
		}
		session.Wallets[i].Balance = "$" + balance.StringFixed(2)
		changed = true
	}
	if changed {
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, errors.InternalErrorf("failed to save wallet session: %v", err)
		}
	}
	return session.Wallets, nil
}

// Selected returns the ids currently chosen as prompt context.
func (s *WalletService) Selected(ctx context.Context) ([]string, error) {
	session, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, errors.InternalErrorf("failed to load wallet session: %v", err)
	}
	return session.SelectedWallets, nil
}
