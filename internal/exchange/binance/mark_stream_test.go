package binance

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMarkPriceEvent(t *testing.T) {
	data := []byte(`{"e":"markPriceUpdate","E":1700000001000,"s":"BTCUSDT","p":"60123.40000000","i":"60120.11","r":"0.00010000","T":1700028800000}`)
	tick, ok := parseMarkPriceEvent(data)
	if !ok {
		t.Fatalf("parseMarkPriceEvent() ok = false, want true")
	}
	if tick.Symbol != "BTCUSDT" {
		t.Fatalf("symbol = %q, want BTCUSDT", tick.Symbol)
	}
	if !tick.Price.Equal(decimal.RequireFromString("60123.4")) {
		t.Fatalf("price = %s, want 60123.4", tick.Price)
	}
	if !tick.IndexPrice.Equal(decimal.RequireFromString("60120.11")) {
		t.Fatalf("index price = %s, want 60120.11", tick.IndexPrice)
	}
	if !tick.FundingRate.Equal(decimal.RequireFromString("0.0001")) {
		t.Fatalf("funding rate = %s, want 0.0001", tick.FundingRate)
	}
	if tick.Time.UnixMilli() != 1700000001000 {
		t.Fatalf("event time = %d, want 1700000001000", tick.Time.UnixMilli())
	}
	if tick.NextFunding.UnixMilli() != 1700028800000 {
		t.Fatalf("next funding = %d, want 1700028800000", tick.NextFunding.UnixMilli())
	}
}

func TestParseMarkPriceEventSkipsOtherFrames(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte(`not json`),
		[]byte(`{"e":"aggTrade","s":"BTCUSDT","p":"1"}`),
		[]byte(`{"e":"markPriceUpdate","s":"BTCUSDT","p":"0"}`),
		[]byte(`{"e":"markPriceUpdate","s":"BTCUSDT","p":"bogus"}`),
	}
	for _, data := range cases {
		if _, ok := parseMarkPriceEvent(data); ok {
			t.Fatalf("parseMarkPriceEvent(%s) ok = true, want false", data)
		}
	}
}
