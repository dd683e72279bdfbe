package entities

import "github.com/shopspring/decimal"

// ToolParameter describes one argument in a tool's JSON schema.
type ToolParameter struct {
	Name        string
	Type        string
	Description string
	Pattern     string
	Required    bool
}

// ToolDefinition is the static declaration of a paid tool: schema for the
// model, price for the payment gate, and route for the dispatcher. The price
// here is the single source of truth; the completion client, the payment
// gate, and the paid endpoint's middleware all read from the same table.
type ToolDefinition struct {
	Name             string
	Description      string
	Parameters       []ToolParameter
	Price            decimal.Decimal
	Route            string
	FirstTimeMessage string
}
