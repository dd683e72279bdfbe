package tools

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"
	"github.com/heyaura/heyaura/internal/impl/defaults"
	"github.com/heyaura/heyaura/internal/impl/x402"

	"go.uber.org/zap"
)

// Dispatcher executes paid tool calls against the API server, paying the 402
// challenge with whichever payer the gate resolved. Arguments are validated
// against the tool schema before any network or payment activity.
type Dispatcher struct {
	serverBaseURL string
	autoPaySigner interfaces.PaymentSigner
	walletSigner  interfaces.PaymentSigner
	logger        *zap.Logger
}

var _ interfaces.ToolDispatcher = (*Dispatcher)(nil)

func NewDispatcher(serverBaseURL string, autoPaySigner, walletSigner interfaces.PaymentSigner, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		serverBaseURL: serverBaseURL,
		autoPaySigner: autoPaySigner,
		walletSigner:  walletSigner,
		logger:        logger,
	}
}

// Validate checks the call's arguments against the tool schema without any
// network or payment activity.
func (d *Dispatcher) Validate(call *entities.ToolCall) error {
	tool, ok := defaults.ToolByName(call.Name)
	if !ok {
		return errors.UnknownToolErrorf("unknown tool: %s", call.Name)
	}
	_, err := validateArguments(tool, call)
	return err
}

func (d *Dispatcher) Execute(ctx context.Context, call *entities.ToolCall, useAutoPayer bool) (json.RawMessage, error) {
	tool, ok := defaults.ToolByName(call.Name)
	if !ok {
		return nil, errors.UnknownToolErrorf("unknown tool: %s", call.Name)
	}

	body, err := validateArguments(tool, call)
	if err != nil {
		return nil, err
	}

	signer := d.walletSigner
	if useAutoPayer {
		signer = d.autoPaySigner
	}
	if signer == nil {
		return nil, errors.InternalErrorf("no signer available for the chosen payer")
	}

	d.logger.Info("Dispatching paid tool call",
		zap.String("tool", call.Name),
		zap.String("route", tool.Route),
		zap.Bool("autoPay", useAutoPayer))

	client := x402.NewClient(d.serverBaseURL, signer, d.logger)
	return client.Post(ctx, tool.Route, body)
}

// validateArguments checks required parameters and patterns against the tool
// schema and returns the request body for the route.
func validateArguments(tool entities.ToolDefinition, call *entities.ToolCall) (map[string]string, error) {
	body := make(map[string]string, len(tool.Parameters))
	for _, param := range tool.Parameters {
		value := call.Argument(param.Name)
		if value == "" {
			if param.Required {
				return nil, errors.ValidationErrorf("tool %s requires a %s argument", tool.Name, param.Name)
			}
			continue
		}
		if param.Pattern != "" {
			matched, err := regexp.MatchString(param.Pattern, value)
			if err != nil || !matched {
				return nil, errors.ValidationErrorf("invalid %s %q for tool %s", param.Name, value, tool.Name)
			}
		}
		body[param.Name] = value
	}
	return body, nil
}
