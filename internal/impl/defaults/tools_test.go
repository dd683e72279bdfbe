package defaults

import (
	"encoding/json"
	"testing"

	"github.com/heyaura/heyaura/internal/domain/entities"

	"github.com/shopspring/decimal"
)

func TestCostKnownToolWithAddress(t *testing.T) {
	call := &entities.ToolCall{
		Name:      "get_strategies",
		Arguments: json.RawMessage(`{"address":"0x1111111111111111111111111111111111111111"}`),
	}

	got := Cost("get_strategies", call)
	if !got.Equal(StrategiesCost) {
		t.Errorf("expected %s, got %s", StrategiesCost, got)
	}
}

func TestCostUnknownToolIsZero(t *testing.T) {
	call := &entities.ToolCall{Name: "send_funds", Arguments: json.RawMessage(`{}`)}
	if got := Cost("send_funds", call); !got.Equal(decimal.Zero) {
		t.Errorf("unknown tool must cost zero, got %s", got)
	}
}

func TestCostMissingAddressIsZero(t *testing.T) {
	call := &entities.ToolCall{Name: "get_strategies", Arguments: json.RawMessage(`{}`)}
	if got := Cost("get_strategies", call); !got.Equal(decimal.Zero) {
		t.Errorf("call without an address must cost zero, got %s", got)
	}
}

func TestCostDeterministic(t *testing.T) {
	call := &entities.ToolCall{
		Name:      "get_strategies",
		Arguments: json.RawMessage(`{"address":"0x1111111111111111111111111111111111111111"}`),
	}
	first := Cost("get_strategies", call)
	second := Cost("get_strategies", call)
	if !first.Equal(second) {
		t.Errorf("cost must be a pure function: %s vs %s", first, second)
	}
}

func TestPriceTableAgreement(t *testing.T) {
	tool, ok := ToolByName("get_strategies")
	if !ok {
		t.Fatal("get_strategies missing from the tool table")
	}
	if !tool.Price.Equal(StrategiesCost) {
		t.Errorf("tool price %s diverged from StrategiesCost %s", tool.Price, StrategiesCost)
	}
	if tool.Route == "" {
		t.Error("paid tool must declare its route")
	}
	if entities.AtomicUSDC(tool.Price) != "10000" {
		t.Errorf("expected 10000 atomic units, got %s", entities.AtomicUSDC(tool.Price))
	}
}
