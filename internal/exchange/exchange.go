package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"futures-term/internal/core"
)

type Exchange interface {
	Name() string
	Ping(ctx context.Context) error
	ServerTime(ctx context.Context) (time.Time, error)
	GetRules(ctx context.Context, symbol string) (core.Rules, error)
	TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Account(ctx context.Context) (core.Account, error)
	PlaceOrder(ctx context.Context, order core.Order) (core.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	OpenOrders(ctx context.Context, symbol string) ([]core.Order, error)
	QueryOrder(ctx context.Context, symbol, orderID, clientID string) (core.Order, error)
}
