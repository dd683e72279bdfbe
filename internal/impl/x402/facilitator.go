package x402

import (
	"context"
	"time"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// FacilitatorClient talks to the payment facilitator that verifies payment
// payloads off-chain and settles them on-chain on the resource server's
// behalf.
type FacilitatorClient struct {
	client *resty.Client
	logger *zap.Logger
}

func NewFacilitatorClient(baseURL, apiKeyID, apiKeySecret string, logger *zap.Logger) *FacilitatorClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	client.SetBasicAuth(apiKeyID, apiKeySecret)

	return &FacilitatorClient{
		client: client,
		logger: logger,
	}
}

type verifyRequest struct {
	X402Version         int                          `json:"x402Version"`
	PaymentPayload      entities.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements entities.PaymentRequirements `json:"paymentRequirements"`
}

type verifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// Verify checks a payment payload against the advertised requirements
// without moving funds.
func (f *FacilitatorClient) Verify(ctx context.Context, payload entities.PaymentPayload, req entities.PaymentRequirements) error {
	var result verifyResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(verifyRequest{X402Version: payload.X402Version, PaymentPayload: payload, PaymentRequirements: req}).
		SetResult(&result).
		Post("/verify")
	if err != nil {
		return errors.FacilitatorUnavailableErrorf("payment facilitator not responding: %v", err)
	}
	if resp.IsError() {
		f.logger.Warn("Facilitator verify failed",
			zap.Int("status", resp.StatusCode()), zap.String("body", resp.String()))
		return errors.FacilitatorUnavailableErrorf("payment facilitator returned status %d", resp.StatusCode())
	}
	if !result.IsValid {
		return errors.ValidationErrorf("payment rejected: %s", result.InvalidReason)
	}
	return nil
}

// Settle submits the payment for on-chain settlement and returns the result.
func (f *FacilitatorClient) Settle(ctx context.Context, payload entities.PaymentPayload, req entities.PaymentRequirements) (*entities.SettlementResponse, error) {
	var result entities.SettlementResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(verifyRequest{X402Version: payload.X402Version, PaymentPayload: payload, PaymentRequirements: req}).
		SetResult(&result).
		Post("/settle")
	if err != nil {
		return nil, errors.FacilitatorUnavailableErrorf("payment facilitator not responding: %v", err)
	}
	if resp.IsError() {
		f.logger.Warn("Facilitator settle failed",
			zap.Int("status", resp.StatusCode()), zap.String("body", resp.String()))
		return nil, errors.FacilitatorUnavailableErrorf("payment facilitator returned status %d", resp.StatusCode())
	}
	if !result.Success {
		return nil, errors.UpstreamErrorf("payment settlement failed: %s", result.ErrorReason)
	}
	return &result, nil
}
