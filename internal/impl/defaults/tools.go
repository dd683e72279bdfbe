package defaults

import (
	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/shopspring/decimal"
)

// StrategiesCost is the per-address price of a strategies lookup in USD.
var StrategiesCost = decimal.RequireFromString("0.01")

// DefaultTools returns the static tool table. This is the single source of
// truth for per-tool pricing: the completion client reads it for display, the
// payment gate for the amount to authorize, and the paid endpoint's payment
// middleware for its route price. They must never diverge.
func DefaultTools() []entities.ToolDefinition {
	return []entities.ToolDefinition{
		{
			Name: "get_strategies",
			Description: "Get DeFi strategy recommendations for a single wallet address from Aura Network API. " +
				"Costs $" + StrategiesCost.StringFixed(2) + " per address. " +
				"IMPORTANT: Only one wallet address can be analyzed at a time.",
			Parameters: []entities.ToolParameter{
				{
					Name:        "address",
					Type:        "string",
					Pattern:     "^0x[a-fA-F0-9]{40}$",
					Description: "Single EVM wallet address to analyze",
					Required:    true,
				},
			},
			Price: StrategiesCost,
			Route: "/api/aura-strategies",
			FirstTimeMessage: "This is your first time requesting DeFi strategies. You'll need to pay $" +
				StrategiesCost.StringFixed(2) + " per wallet address to get personalized recommendations. " +
				"The payment will be processed automatically through your connected wallet.",
		},
	}
}

// ToolByName looks a tool up in the static table.
func ToolByName(name string) (entities.ToolDefinition, bool) {
	for _, tool := range DefaultTools() {
		if tool.Name == name {
			return tool, true
		}
	}
	return entities.ToolDefinition{}, false
}

// Cost computes the price of a call once, at detection time. It is a pure
// function of the tool name and arguments: get_strategies costs the flat
// per-address price when an address argument is present, and unknown tool
// names cost zero (the dispatcher rejects them before any payment happens).
func Cost(toolName string, call *entities.ToolCall) decimal.Decimal {
	tool, ok := ToolByName(toolName)
	if !ok {
		return decimal.Zero
	}
	if toolName == "get_strategies" && call.Argument("address") == "" {
		return decimal.Zero
	}
	return tool.Price
}
