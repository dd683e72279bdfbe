package x402

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/impl/defaults"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	x402Version = 1

	// USDC contract on Base mainnet, the settlement asset for all routes.
	baseUSDCAddress = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	networkBase     = "base"

	paymentHeader         = "X-Payment"
	paymentResponseHeader = "X-Payment-Response"
)

// RoutePrice declares the price of one payment-gated route.
type RoutePrice struct {
	Price       decimal.Decimal
	Description string
}

// RoutePrices derives the middleware's route configuration from the static
// tool table, keeping the advertised price identical to the one the model
// displays and the gate authorizes.
func RoutePrices() map[string]RoutePrice {
	prices := make(map[string]RoutePrice)
	for _, tool := range defaults.DefaultTools() {
		prices[tool.Route] = RoutePrice{Price: tool.Price, Description: tool.Description}
	}
	return prices
}

// PaymentMiddleware gates the configured routes behind the x402 handshake: a
// request without a payment header gets a 402 challenge naming the exact
// price and network; a request with one is verified and settled through the
// facilitator before the handler runs.
func PaymentMiddleware(payTo string, routes map[string]RoutePrice, facilitator *FacilitatorClient, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route, gated := routes[c.Request().URL.Path]
			if !gated {
				return next(c)
			}

			requirements := entities.PaymentRequirements{
				Scheme:            "exact",
				Network:           networkBase,
				MaxAmountRequired: entities.AtomicUSDC(route.Price),
				Resource:          c.Scheme() + "://" + c.Request().Host + c.Request().URL.Path,
				Description:       route.Description,
				MimeType:          "application/json",
				PayTo:             payTo,
				MaxTimeoutSeconds: 60,
				Asset:             baseUSDCAddress,
				Extra:             json.RawMessage(`{"name":"USD Coin","version":"2"}`),
			}

			header := c.Request().Header.Get(paymentHeader)
			if header == "" {
				return c.JSON(http.StatusPaymentRequired, entities.PaymentChallenge{
					X402Version: x402Version,
					Error:       "X-Payment header is required",
					Accepts:     []entities.PaymentRequirements{requirements},
				})
			}

			payload, err := DecodePaymentHeader(header)
			if err != nil {
				logger.Warn("Rejecting malformed payment header", zap.Error(err))
				return c.JSON(http.StatusPaymentRequired, entities.PaymentChallenge{
					X402Version: x402Version,
					Error:       "invalid X-Payment header: " + err.Error(),
					Accepts:     []entities.PaymentRequirements{requirements},
				})
			}

			ctx := c.Request().Context()
			if err := facilitator.Verify(ctx, *payload, requirements); err != nil {
				logger.Warn("Payment verification failed", zap.Error(err))
				return c.JSON(http.StatusPaymentRequired, entities.PaymentChallenge{
					X402Version: x402Version,
					Error:       err.Error(),
					Accepts:     []entities.PaymentRequirements{requirements},
				})
			}

			settlement, err := facilitator.Settle(ctx, *payload, requirements)
			if err != nil {
				logger.Error("Payment settlement failed", zap.Error(err))
				return c.JSON(http.StatusPaymentRequired, entities.PaymentChallenge{
					X402Version: x402Version,
					Error:       err.Error(),
					Accepts:     []entities.PaymentRequirements{requirements},
				})
			}

			if encoded, err := EncodeSettlementHeader(settlement); err == nil {
				c.Response().Header().Set(paymentResponseHeader, encoded)
			}

			logger.Info("Payment settled",
				zap.String("payer", settlement.Payer),
				zap.String("transaction", settlement.Transaction),
				zap.String("resource", requirements.Resource))

			return next(c)
		}
	}
}

// DecodePaymentHeader decodes a base64 X-Payment header into its payload.
func DecodePaymentHeader(header string) (*entities.PaymentPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, err
	}
	var payload entities.PaymentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// EncodePaymentHeader encodes a payment payload for the X-Payment header.
func EncodePaymentHeader(payload *entities.PaymentPayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// EncodeSettlementHeader encodes a settlement result for X-Payment-Response.
func EncodeSettlementHeader(settlement *entities.SettlementResponse) (string, error) {
	raw, err := json.Marshal(settlement)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
