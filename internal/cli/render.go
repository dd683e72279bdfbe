package cli

import (
	"fmt"
	"strings"

	"github.com/heyaura/heyaura/internal/domain/entities"

	"github.com/charmbracelet/lipgloss"
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213"))

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	costStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// RenderMessage formats one conversation message for the terminal.
func RenderMessage(msg *entities.Message) string {
	switch msg.Role {
	case entities.RoleUser:
		return userStyle.Render("You: ") + msg.Content
	case entities.RoleAssistant:
		line := assistantStyle.Render("Aura: ") + msg.Content
		if msg.ToolCall != nil && msg.ToolCall.Cost != nil && !msg.ToolCall.Cost.IsZero() {
			line += "\n" + costStyle.Render(fmt.Sprintf("  [%s, $%s]", msg.ToolCall.Name, msg.ToolCall.Cost.StringFixed(2)))
		}
		return line
	case entities.RoleTool:
		name := "tool"
		if msg.Metadata != nil {
			name = msg.Metadata.ToolName
		}
		return toolStyle.Render(fmt.Sprintf("  [%s returned %d bytes]", name, len(msg.Content)))
	default:
		return msg.Content
	}
}

// RenderNotice formats a transient notification.
func RenderNotice(level, message string) string {
	if level == "error" {
		return errorStyle.Render(message)
	}
	return noticeStyle.Render(message)
}

// RenderWallets formats the wallet book as a short table.
func RenderWallets(wallets []entities.Wallet, selected []string) string {
	selectedSet := make(map[string]bool, len(selected))
	for _, id := range selected {
		selectedSet[id] = true
	}

	var b strings.Builder
	for _, w := range wallets {
		marker := " "
		if selectedSet[w.ID] {
			marker = "*"
		}
		kind := "connected"
		if w.IsBuiltIn {
			kind = "auto-pay"
		}
		balance := w.Balance
		if balance == "" {
			balance = "$?"
		}
		fmt.Fprintf(&b, "%s %-18s %s  %s  %s\n", marker, w.Name, shortAddress(w.Address), kind, balance)
	}
	if b.Len() == 0 {
		return "no wallets yet, use /connect <address>\n"
	}
	return b.String()
}
