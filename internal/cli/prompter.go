package cli

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

const cancelOption = "Cancel payment"

// SurveyPrompter renders a pending payment request as a blocking terminal
// select. Underfunded payers are shown with their balance but are not
// offered; dismissing the prompt (or Ctrl-C) cancels the payment.
type SurveyPrompter struct{}

var _ interfaces.PaymentPrompter = (*SurveyPrompter)(nil)

func NewSurveyPrompter() *SurveyPrompter {
	return &SurveyPrompter{}
}

func (p *SurveyPrompter) Prompt(ctx context.Context, req *entities.PaymentRequest, options []interfaces.PayerOption) (bool, error) {
	labels := make([]string, 0, len(options)+1)
	byLabel := make(map[string]interfaces.PayerOption, len(options))
	for _, opt := range options {
		if opt.Disabled {
			continue
		}
		label := fmt.Sprintf("%s (%s) - balance $%s", opt.Wallet.Name, shortAddress(opt.Wallet.Address), opt.Balance.StringFixed(2))
		labels = append(labels, label)
		byLabel[label] = opt
	}
	labels = append(labels, cancelOption)

	message := fmt.Sprintf("Pay $%s for %s?", req.Amount.StringFixed(2), req.ToolName)
	var selected string
	prompt := &survey.Select{
		Message: message,
		Options: labels,
		Help:    "Pick the wallet that funds this call, or cancel to skip it.",
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		if stderrors.Is(err, terminal.InterruptErr) {
			return false, errors.PaymentCancelledErrorf("payment request dismissed")
		}
		return false, errors.InternalErrorf("payment prompt failed: %v", err)
	}
	if selected == cancelOption {
		return false, errors.PaymentCancelledErrorf("payment request dismissed")
	}

	return byLabel[selected].AutoPay, nil
}

func shortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
