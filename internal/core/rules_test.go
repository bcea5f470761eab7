package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeOrderLimitRoundsPriceAndQty(t *testing.T) {
	order := Order{
		Symbol: "BTCUSDT",
		Side:   Buy,
		Type:   Limit,
		Price:  decimal.RequireFromString("64123.456"),
		Qty:    decimal.RequireFromString("0.0015678"),
	}
	rules := Rules{
		MinQty:      decimal.RequireFromString("0.001"),
		MinNotional: decimal.RequireFromString("5"),
		PriceTick:   decimal.RequireFromString("0.1"),
		QtyStep:     decimal.RequireFromString("0.001"),
	}

	got, err := NormalizeOrder(order, rules)
	if err != nil {
		t.Fatalf("NormalizeOrder() error = %v", err)
	}
	if !got.Price.Equal(decimal.RequireFromString("64123.4")) {
		t.Fatalf("rounded price = %s, want 64123.4", got.Price)
	}
	if !got.Qty.Equal(decimal.RequireFromString("0.001")) {
		t.Fatalf("rounded qty = %s, want 0.001", got.Qty)
	}
}

func TestNormalizeOrderBelowMinQty(t *testing.T) {
	order := Order{
		Symbol: "BTCUSDT",
		Side:   Sell,
		Type:   Limit,
		Price:  decimal.RequireFromString("60000"),
		Qty:    decimal.RequireFromString("0.0005"),
	}
	rules := Rules{
		MinQty: decimal.RequireFromString("0.001"),
	}

	_, err := NormalizeOrder(order, rules)
	if !errors.Is(err, ErrBelowMinQty) {
		t.Fatalf("NormalizeOrder() error = %v, want %v", err, ErrBelowMinQty)
	}
}

func TestNormalizeOrderLimitBelowMinNotional(t *testing.T) {
	order := Order{
		Symbol: "BTCUSDT",
		Side:   Buy,
		Type:   Limit,
		Price:  decimal.RequireFromString("100"),
		Qty:    decimal.RequireFromString("0.01"),
	}
	rules := Rules{
		MinNotional: decimal.RequireFromString("5"),
	}

	_, err := NormalizeOrder(order, rules)
	if !errors.Is(err, ErrBelowMinNotional) {
		t.Fatalf("NormalizeOrder() error = %v, want %v", err, ErrBelowMinNotional)
	}
}

func TestNormalizeOrderMarketSkipsNotionalWithoutPrice(t *testing.T) {
	rules := Rules{
		MinNotional: decimal.RequireFromString("100"),
		QtyStep:     decimal.RequireFromString("0.001"),
	}

	noPrice := Order{
		Symbol: "BTCUSDT",
		Side:   Buy,
		Type:   Market,
		Price:  decimal.Zero,
		Qty:    decimal.RequireFromString("0.002"),
	}
	if _, err := NormalizeOrder(noPrice, rules); err != nil {
		t.Fatalf("NormalizeOrder() no-price market error = %v", err)
	}

	withPrice := noPrice
	withPrice.Price = decimal.RequireFromString("40000")
	if _, err := NormalizeOrder(withPrice, rules); !errors.Is(err, ErrBelowMinNotional) {
		t.Fatalf("NormalizeOrder() market with reference price error = %v, want %v", err, ErrBelowMinNotional)
	}
}

func TestNormalizeOrderRejectsNonPositive(t *testing.T) {
	rules := Rules{QtyStep: decimal.RequireFromString("0.001")}

	zeroQty := Order{Symbol: "BTCUSDT", Side: Buy, Type: Market, Qty: decimal.Zero}
	if _, err := NormalizeOrder(zeroQty, rules); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("NormalizeOrder(zero qty) error = %v, want %v", err, ErrInvalidOrder)
	}

	// Qty that rounds down to zero is also invalid.
	dust := Order{Symbol: "BTCUSDT", Side: Buy, Type: Market, Qty: decimal.RequireFromString("0.0004")}
	if _, err := NormalizeOrder(dust, rules); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("NormalizeOrder(dust qty) error = %v, want %v", err, ErrInvalidOrder)
	}

	zeroPriceLimit := Order{Symbol: "BTCUSDT", Side: Buy, Type: Limit, Qty: decimal.RequireFromString("0.01")}
	if _, err := NormalizeOrder(zeroPriceLimit, rules); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("NormalizeOrder(zero price limit) error = %v, want %v", err, ErrInvalidOrder)
	}
}

func TestRoundDown(t *testing.T) {
	got := RoundDown(decimal.RequireFromString("123.456"), decimal.RequireFromString("0.05"))
	if !got.Equal(decimal.RequireFromString("123.45")) {
		t.Fatalf("RoundDown() = %s, want 123.45", got)
	}
	unchanged := RoundDown(decimal.RequireFromString("7"), decimal.Zero)
	if !unchanged.Equal(decimal.RequireFromString("7")) {
		t.Fatalf("RoundDown(zero step) = %s, want 7", unchanged)
	}
}

func TestParseSideAndOrderType(t *testing.T) {
	if side, ok := ParseSide("BUY"); !ok || side != Buy {
		t.Fatalf("ParseSide(BUY) = %q, %t", side, ok)
	}
	if _, ok := ParseSide("HOLD"); ok {
		t.Fatalf("ParseSide(HOLD) should fail")
	}
	if typ, ok := ParseOrderType("MARKET"); !ok || typ != Market {
		t.Fatalf("ParseOrderType(MARKET) = %q, %t", typ, ok)
	}
	if _, ok := ParseOrderType("STOP"); ok {
		t.Fatalf("ParseOrderType(STOP) should fail")
	}
}
