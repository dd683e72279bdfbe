package tools

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/heyaura/heyaura/internal/domain/errors"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// AuraClient fetches DeFi strategy recommendations from the Aura Network API.
type AuraClient struct {
	http   *resty.Client
	apiKey string
	logger *zap.Logger
}

func NewAuraClient(baseURL, apiKey string, logger *zap.Logger) *AuraClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(60 * time.Second)

	return &AuraClient{
		http:   client,
		apiKey: apiKey,
		logger: logger,
	}
}

// FetchStrategies retrieves strategies for one address and bounds the payload
// size before it reaches the model: each portfolio item keeps at most 10
// tokens so the result fits in the completion context.
func (c *AuraClient) FetchStrategies(ctx context.Context, address string) (json.RawMessage, error) {
	start := time.Now()
	c.logger.Info("Fetching strategies", zap.String("address", address))

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("address", address).
		SetHeader("Content-Type", "application/json")
	if c.apiKey != "" {
		req.SetQueryParam("apiKey", c.apiKey)
	}

	resp, err := req.Get("/api/portfolio/strategies")
	if err != nil {
		var netErr interface{ Timeout() bool }
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			return nil, errors.TimeoutErrorf("request timed out, the Aura API took too long to respond")
		}
		return nil, errors.UpstreamErrorf("API call failed: %v", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, errors.NotFoundErrorf("API endpoint not found, please check the Aura API documentation")
	}
	if resp.IsError() {
		return nil, errors.UpstreamErrorf("API call failed: status %d", resp.StatusCode())
	}

	limited, err := limitPortfolioTokens(resp.Body())
	if err != nil {
		return nil, errors.UpstreamErrorf("API returned unparseable strategies: %v", err)
	}

	c.logger.Info("Strategies received",
		zap.String("address", address),
		zap.Duration("duration", time.Since(start)))
	return limited, nil
}

const maxTokensPerPortfolioItem = 10

// limitPortfolioTokens truncates each portfolio item's token list. Items that
// are not objects or have no token array pass through untouched.
func limitPortfolioTokens(body []byte) (json.RawMessage, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	rawPortfolio, ok := payload["portfolio"]
	if !ok {
		return json.RawMessage(body), nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawPortfolio, &items); err != nil {
		return json.RawMessage(body), nil
	}

	for i, raw := range items {
		var item map[string]json.RawMessage
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		rawTokens, ok := item["tokens"]
		if !ok {
			continue
		}
		var tokens []json.RawMessage
		if err := json.Unmarshal(rawTokens, &tokens); err != nil {
			continue
		}
		if len(tokens) <= maxTokensPerPortfolioItem {
			continue
		}
		trimmed, err := json.Marshal(tokens[:maxTokensPerPortfolioItem])
		if err != nil {
			continue
		}
		item["tokens"] = trimmed
		rebuilt, err := json.Marshal(item)
		if err != nil {
			continue
		}
		items[i] = rebuilt
	}

	rebuiltPortfolio, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	payload["portfolio"] = rebuiltPortfolio
	return json.Marshal(payload)
}
