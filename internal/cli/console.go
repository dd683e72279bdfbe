package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/events"
	"github.com/heyaura/heyaura/internal/domain/services"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"go.uber.org/zap"
)

// Console is the terminal REPL: free text goes through a full conversation
// turn, slash commands manage the wallet session and the chat itself.
type Console struct {
	chats   *services.ChatService
	wallets *services.WalletService
	logger  *zap.Logger
}

func NewConsole(chats *services.ChatService, wallets *services.WalletService, logger *zap.Logger) *Console {
	return &Console{
		chats:   chats,
		wallets: wallets,
		logger:  logger,
	}
}

// Run blocks until the user exits or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	unsubMessages := events.SubscribeToMessages(func(data events.MessageAppendedData) {
		if data.Message.Role == entities.RoleUser {
			return
		}
		fmt.Println(RenderMessage(data.Message))
	})
	defer unsubMessages()

	unsubNotices := events.SubscribeToNotifications(func(data events.NotificationData) {
		fmt.Println(RenderNotice(data.Level, data.Message))
	})
	defer unsubNotices()

	fmt.Println(RenderNotice("info", "HeyAura: ask about DeFi, or /help for commands"))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var input string
		prompt := &survey.Input{Message: ">"}
		if err := survey.AskOne(prompt, &input); err != nil {
			if stderrors.Is(err, terminal.InterruptErr) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if done := c.runCommand(ctx, input); done {
				return nil
			}
			continue
		}

		// The turn renders its own messages through the event subscription.
		if _, err := c.chats.SendMessage(ctx, input); err != nil {
			fmt.Println(RenderNotice("error", err.Error()))
		}
	}
}

func (c *Console) runCommand(ctx context.Context, input string) (exit bool) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/exit", "/quit":
		return true
	case "/help":
		fmt.Println(`commands:
  /wallets             list wallets with live balances
  /connect <address>   connect an external wallet
  /select              choose which wallets the assistant sees
  /history             replay the conversation
  /clear               start a fresh chat (tears down the wallet session)
  /exit                leave`)
	case "/wallets":
		c.showWallets(ctx)
	case "/connect":
		if len(fields) < 2 {
			fmt.Println(RenderNotice("error", "usage: /connect <address>"))
			return false
		}
		if _, err := c.wallets.ConnectWallet(ctx, fields[1], ""); err != nil {
			fmt.Println(RenderNotice("error", err.Error()))
			return false
		}
		fmt.Println(RenderNotice("info", "wallet connected"))
	case "/select":
		c.selectWallets(ctx)
	case "/history":
		c.showHistory(ctx)
	case "/clear":
		if err := c.chats.ClearChat(ctx); err != nil {
			fmt.Println(RenderNotice("error", err.Error()))
			return false
		}
		fmt.Println(RenderNotice("info", "chat cleared"))
	default:
		fmt.Println(RenderNotice("error", "unknown command, try /help"))
	}
	return false
}

func (c *Console) showWallets(ctx context.Context) {
	wallets, err := c.wallets.ListWallets(ctx)
	if err != nil {
		fmt.Println(RenderNotice("error", err.Error()))
		return
	}
	selected, err := c.wallets.Selected(ctx)
	if err != nil {
		fmt.Println(RenderNotice("error", err.Error()))
		return
	}
	fmt.Print(RenderWallets(wallets, selected))
}

func (c *Console) selectWallets(ctx context.Context) {
	wallets, err := c.wallets.ListWallets(ctx)
	if err != nil {
		fmt.Println(RenderNotice("error", err.Error()))
		return
	}
	if len(wallets) == 0 {
		fmt.Println(RenderNotice("error", "no wallets to select"))
		return
	}

	labels := make([]string, len(wallets))
	byLabel := make(map[string]string, len(wallets))
	for i, w := range wallets {
		labels[i] = fmt.Sprintf("%s (%s)", w.Name, shortAddress(w.Address))
		byLabel[labels[i]] = w.ID
	}

	var chosen []string
	prompt := &survey.MultiSelect{
		Message: "Wallets the assistant may analyze:",
		Options: labels,
		Default: labels,
	}
	if err := survey.AskOne(prompt, &chosen); err != nil {
		return
	}

	ids := make([]string, 0, len(chosen))
	for _, label := range chosen {
		ids = append(ids, byLabel[label])
	}
	if err := c.wallets.SelectWallets(ctx, ids); err != nil {
		fmt.Println(RenderNotice("error", err.Error()))
	}
}

func (c *Console) showHistory(ctx context.Context) {
	history, err := c.chats.History(ctx)
	if err != nil {
		fmt.Println(RenderNotice("error", err.Error()))
		return
	}
	for i := range history {
		fmt.Println(RenderMessage(&history[i]))
	}
}
