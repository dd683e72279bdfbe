package entities

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsValidAddress reports whether s is a strict 0x-prefixed hex EVM address.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// Wallet is one candidate payer: either a user-connected external wallet or
// the locally generated auto-pay wallet. Balance is a point-in-time snapshot
// for display; payment decisions always re-fetch it live.
type Wallet struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Balance     string    `json:"balance,omitempty"`
	IsConnected bool      `json:"isConnected"`
	IsBuiltIn   bool      `json:"isBuiltIn"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// PayerChoice identifies which wallet funds a paid call. Exactly one payer is
// chosen per call; the choice is not remembered across calls.
type PayerChoice struct {
	UseAutoPayer bool
	Wallet       *Wallet
}

// PaymentRequest is the ephemeral state of one pending payer decision. It is
// never persisted: created when a paid tool call is detected, resolved or
// rejected by the user, then discarded.
type PaymentRequest struct {
	Amount   decimal.Decimal
	ToolName string
}

// Session is the explicit per-conversation context object: the wallet book
// and current selection that used to live in ambient browser globals. It is
// persisted on every mutation and torn down on clear-chat.
type Session struct {
	ChatID          string    `json:"chatId"`
	Wallets         []Wallet  `json:"wallets"`
	SelectedWallets []string  `json:"selectedWallets"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ConnectedWallet returns the externally connected payer, if any.
func (s *Session) ConnectedWallet() *Wallet {
	for i := range s.Wallets {
		if s.Wallets[i].IsConnected {
			return &s.Wallets[i]
		}
	}
	return nil
}

// AutoPayWallet returns the locally held auto-pay payer, if any.
func (s *Session) AutoPayWallet() *Wallet {
	for i := range s.Wallets {
		if s.Wallets[i].IsBuiltIn {
			return &s.Wallets[i]
		}
	}
	return nil
}

// WalletsForChat returns the wallets currently selected for prompt context.
func (s *Session) WalletsForChat() []Wallet {
	selected := make(map[string]bool, len(s.SelectedWallets))
	for _, id := range s.SelectedWallets {
		selected[id] = true
	}
	wallets := make([]Wallet, 0, len(s.Wallets))
	for _, w := range s.Wallets {
		if selected[w.ID] {
			wallets = append(wallets, w)
		}
	}
	return wallets
}
