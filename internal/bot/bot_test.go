package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"futures-term/internal/core"
)

type fakeExchange struct {
	rules       core.Rules
	rulesErr    error
	price       decimal.Decimal
	account     core.Account
	placed      []core.Order
	placeErr    error
	canceled    []string
	openOrders  []core.Order
	pingErr     error
	placeResult *core.Order
}

func (f *fakeExchange) Name() string                   { return "fake" }
func (f *fakeExchange) Ping(ctx context.Context) error { return f.pingErr }
func (f *fakeExchange) ServerTime(ctx context.Context) (time.Time, error) {
	return time.Now(), nil
}
func (f *fakeExchange) GetRules(ctx context.Context, symbol string) (core.Rules, error) {
	return f.rules, f.rulesErr
}
func (f *fakeExchange) TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return f.price, nil
}
func (f *fakeExchange) Account(ctx context.Context) (core.Account, error) {
	return f.account, nil
}
func (f *fakeExchange) PlaceOrder(ctx context.Context, order core.Order) (core.Order, error) {
	if f.placeErr != nil {
		return core.Order{}, f.placeErr
	}
	f.placed = append(f.placed, order)
	if f.placeResult != nil {
		return *f.placeResult, nil
	}
	order.ID = "1"
	order.Status = core.OrderNew
	return order, nil
}
func (f *fakeExchange) CancelOrder(ctx context.Context, symbol, orderID string) error {
	f.canceled = append(f.canceled, orderID)
	return nil
}
func (f *fakeExchange) OpenOrders(ctx context.Context, symbol string) ([]core.Order, error) {
	return f.openOrders, nil
}
func (f *fakeExchange) QueryOrder(ctx context.Context, symbol, orderID, clientID string) (core.Order, error) {
	return core.Order{}, core.ErrOrderNotFound
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(ctx context.Context, msg string) error {
	r.messages = append(r.messages, msg)
	return nil
}

func standardRules() core.Rules {
	return core.Rules{
		MinQty:      decimal.RequireFromString("0.001"),
		MinNotional: decimal.RequireFromString("100"),
		PriceTick:   decimal.RequireFromString("0.1"),
		QtyStep:     decimal.RequireFromString("0.001"),
	}
}

func TestPlaceLimitOrderNormalizesBeforeSend(t *testing.T) {
	ex := &fakeExchange{rules: standardRules()}
	b := New(ex, nil, nil)

	got, err := b.PlaceLimitOrder(context.Background(),
		"BTCUSDT", core.Buy,
		decimal.RequireFromString("0.0025678"),
		decimal.RequireFromString("60000.123"),
	)
	if err != nil {
		t.Fatalf("PlaceLimitOrder() error = %v", err)
	}
	if got.ID != "1" {
		t.Fatalf("order id = %q, want 1", got.ID)
	}
	if len(ex.placed) != 1 {
		t.Fatalf("placed count = %d, want 1", len(ex.placed))
	}
	sent := ex.placed[0]
	if !sent.Qty.Equal(decimal.RequireFromString("0.002")) {
		t.Fatalf("sent qty = %s, want 0.002", sent.Qty)
	}
	if !sent.Price.Equal(decimal.RequireFromString("60000.1")) {
		t.Fatalf("sent price = %s, want 60000.1", sent.Price)
	}
}

func TestPlaceMarketOrderRejectsBadInput(t *testing.T) {
	ex := &fakeExchange{rules: standardRules()}
	b := New(ex, nil, nil)
	ctx := context.Background()

	if _, err := b.PlaceMarketOrder(ctx, "btc", core.Buy, decimal.RequireFromString("0.001")); !errors.Is(err, ErrInvalidSymbol) {
		t.Fatalf("bad symbol error = %v, want %v", err, ErrInvalidSymbol)
	}
	if _, err := b.PlaceMarketOrder(ctx, "BTCUSDT", core.Side("HOLD"), decimal.RequireFromString("0.001")); !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("bad side error = %v, want %v", err, ErrInvalidSide)
	}
	if _, err := b.PlaceMarketOrder(ctx, "BTCUSDT", core.Buy, decimal.Zero); !errors.Is(err, ErrInvalidQty) {
		t.Fatalf("bad qty error = %v, want %v", err, ErrInvalidQty)
	}
	if _, err := b.PlaceLimitOrder(ctx, "BTCUSDT", core.Buy, decimal.RequireFromString("0.001"), decimal.Zero); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("bad price error = %v, want %v", err, ErrInvalidPrice)
	}
	if len(ex.placed) != 0 {
		t.Fatalf("invalid input must not reach the exchange, placed = %d", len(ex.placed))
	}
}

func TestPlaceLimitOrderBelowMinNotionalNeverSent(t *testing.T) {
	ex := &fakeExchange{rules: standardRules()}
	b := New(ex, nil, nil)

	_, err := b.PlaceLimitOrder(context.Background(),
		"BTCUSDT", core.Buy,
		decimal.RequireFromString("0.001"),
		decimal.RequireFromString("50"),
	)
	if !errors.Is(err, core.ErrBelowMinNotional) {
		t.Fatalf("PlaceLimitOrder() error = %v, want %v", err, core.ErrBelowMinNotional)
	}
	if len(ex.placed) != 0 {
		t.Fatalf("below-notional order must not reach the exchange")
	}
}

func TestPlaceOrderNotifiesOnSuccessAndFailure(t *testing.T) {
	filled := core.Order{
		ID: "7", Symbol: "BTCUSDT", Side: core.Buy, Type: core.Market,
		Qty: decimal.RequireFromString("0.002"), Status: core.OrderFilled,
	}
	ex := &fakeExchange{rules: standardRules(), placeResult: &filled}
	n := &recordingNotifier{}
	b := New(ex, nil, n)

	if _, err := b.PlaceMarketOrder(context.Background(), "BTCUSDT", core.Buy, decimal.RequireFromString("0.002")); err != nil {
		t.Fatalf("PlaceMarketOrder() error = %v", err)
	}
	if len(n.messages) != 1 {
		t.Fatalf("notifications = %d, want 1", len(n.messages))
	}

	ex.placeErr = core.ErrInsufficientMargin
	if _, err := b.PlaceMarketOrder(context.Background(), "BTCUSDT", core.Buy, decimal.RequireFromString("0.002")); !errors.Is(err, core.ErrInsufficientMargin) {
		t.Fatalf("PlaceMarketOrder() error = %v, want insufficient margin", err)
	}
	if len(n.messages) != 2 {
		t.Fatalf("notifications after failure = %d, want 2", len(n.messages))
	}
}

func TestMarketPriceValidatesSymbol(t *testing.T) {
	ex := &fakeExchange{price: decimal.RequireFromString("3210.5")}
	b := New(ex, nil, nil)

	if _, err := b.MarketPrice(context.Background(), "eth"); !errors.Is(err, ErrInvalidSymbol) {
		t.Fatalf("MarketPrice(bad) error = %v, want %v", err, ErrInvalidSymbol)
	}
	price, err := b.MarketPrice(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("MarketPrice() error = %v", err)
	}
	if !price.Equal(decimal.RequireFromString("3210.5")) {
		t.Fatalf("price = %s, want 3210.5", price)
	}
}

func TestCancelOrderRequiresID(t *testing.T) {
	ex := &fakeExchange{}
	b := New(ex, nil, nil)

	if err := b.CancelOrder(context.Background(), "BTCUSDT", ""); err == nil {
		t.Fatalf("CancelOrder() should require an order id")
	}
	if err := b.CancelOrder(context.Background(), "BTCUSDT", "55"); err != nil {
		t.Fatalf("CancelOrder() error = %v", err)
	}
	if len(ex.canceled) != 1 || ex.canceled[0] != "55" {
		t.Fatalf("canceled = %v, want [55]", ex.canceled)
	}
}

func TestConnectFailsOnPingError(t *testing.T) {
	ex := &fakeExchange{pingErr: errors.New("connection refused")}
	b := New(ex, nil, nil)

	if _, err := b.Connect(context.Background()); err == nil {
		t.Fatalf("Connect() should surface ping failure")
	}
}
