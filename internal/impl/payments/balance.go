package payments

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// balanceOf(address) selector.
const balanceOfSelector = "0x70a08231"

// USDCBalanceChecker reads ERC-20 USDC balances straight from a JSON-RPC
// node. Balances are fetched fresh on every call so the payment gate always
// sees live funds, never a cached figure.
type USDCBalanceChecker struct {
	http     *resty.Client
	contract string
	logger   *zap.Logger
}

var _ interfaces.BalanceChecker = (*USDCBalanceChecker)(nil)

func NewUSDCBalanceChecker(rpcURL, contract string, logger *zap.Logger) *USDCBalanceChecker {
	client := resty.New()
	client.SetBaseURL(rpcURL)
	client.SetTimeout(15 * time.Second)

	return &USDCBalanceChecker{
		http:     client,
		contract: contract,
		logger:   logger,
	}
}

// Balance returns the USDC balance of address in USD.
func (c *USDCBalanceChecker) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	data := balanceOfSelector + paddedAddress(address)

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "eth_call",
		"params": []any{
			map[string]string{"to": c.contract, "data": data},
			"latest",
		},
	}

	var resp struct {
		Result string `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	httpResp, err := c.http.R().SetContext(ctx).SetBody(req).SetResult(&resp).Post("")
	if err != nil {
		return decimal.Zero, errors.UpstreamErrorf("balance lookup failed: %v", err)
	}
	if httpResp.IsError() {
		return decimal.Zero, errors.UpstreamErrorf("balance lookup returned status %d", httpResp.StatusCode())
	}
	if resp.Error != nil {
		return decimal.Zero, errors.UpstreamErrorf("balance lookup failed: %s", resp.Error.Message)
	}

	units, ok := new(big.Int).SetString(strings.TrimPrefix(resp.Result, "0x"), 16)
	if !ok {
		return decimal.Zero, errors.UpstreamErrorf("balance lookup returned unparseable value %q", resp.Result)
	}

	balance := decimal.NewFromBigInt(units, -6)
	c.logger.Debug("Fetched USDC balance",
		zap.String("address", address),
		zap.String("balance", balance.String()))
	return balance, nil
}

// paddedAddress strips the 0x prefix, lowercases, and left-pads the address
// to 32 bytes for the calldata slot.
func paddedAddress(address string) string {
	hex := strings.ToLower(strings.TrimPrefix(address, "0x"))
	if len(hex) >= 64 {
		return hex
	}
	return strings.Repeat("0", 64-len(hex)) + hex
}
