package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"futures-term/internal/alert"
	"futures-term/internal/config"
	"futures-term/internal/core"
	"futures-term/internal/exchange"
)

var (
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrInvalidSide   = errors.New("side must be BUY or SELL")
	ErrInvalidQty    = errors.New("quantity must be > 0")
	ErrInvalidPrice  = errors.New("price must be > 0")
)

// Bot wraps the exchange client with input validation, symbol-rule
// normalization, and logging of every request and outcome.
type Bot struct {
	exchange exchange.Exchange
	logger   *zap.Logger
	notifier alert.Notifier
}

func New(ex exchange.Exchange, logger *zap.Logger, notifier alert.Notifier) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{exchange: ex, logger: logger, notifier: notifier}
}

// Connect verifies exchange reachability and credentials: ping, server time
// (logged so signed-timestamp drift is visible), then a signed account fetch.
func (b *Bot) Connect(ctx context.Context) (core.Account, error) {
	if err := b.exchange.Ping(ctx); err != nil {
		b.logger.Error("exchange ping failed", zap.Error(err))
		return core.Account{}, fmt.Errorf("ping %s: %w", b.exchange.Name(), err)
	}
	serverTime, err := b.exchange.ServerTime(ctx)
	if err != nil {
		b.logger.Error("server time fetch failed", zap.Error(err))
		return core.Account{}, fmt.Errorf("server time: %w", err)
	}
	drift := time.Since(serverTime)
	b.logger.Info("connected to exchange",
		zap.String("exchange", b.exchange.Name()),
		zap.Time("server_time", serverTime),
		zap.Duration("clock_drift", drift),
	)
	acct, err := b.AccountInfo(ctx)
	if err != nil {
		return core.Account{}, err
	}
	return acct, nil
}

func (b *Bot) PlaceMarketOrder(ctx context.Context, symbol string, side core.Side, qty decimal.Decimal) (core.Order, error) {
	return b.placeOrder(ctx, core.Order{
		Symbol: symbol,
		Side:   side,
		Type:   core.Market,
		Qty:    qty,
	})
}

func (b *Bot) PlaceLimitOrder(ctx context.Context, symbol string, side core.Side, qty, price decimal.Decimal) (core.Order, error) {
	if price.Cmp(decimal.Zero) <= 0 {
		return core.Order{}, ErrInvalidPrice
	}
	return b.placeOrder(ctx, core.Order{
		Symbol: symbol,
		Side:   side,
		Type:   core.Limit,
		Qty:    qty,
		Price:  price,
	})
}

func (b *Bot) placeOrder(ctx context.Context, order core.Order) (core.Order, error) {
	if err := validateOrderInput(order); err != nil {
		b.logger.Warn("order rejected before send",
			zap.String("symbol", order.Symbol),
			zap.String("side", string(order.Side)),
			zap.String("type", string(order.Type)),
			zap.Error(err),
		)
		return core.Order{}, err
	}

	rules, err := b.exchange.GetRules(ctx, order.Symbol)
	if err != nil {
		b.logger.Error("symbol rules fetch failed", zap.String("symbol", order.Symbol), zap.Error(err))
		return core.Order{}, fmt.Errorf("rules for %s: %w", order.Symbol, err)
	}

	requestedQty := order.Qty
	requestedPrice := order.Price
	normalized, err := core.NormalizeOrder(order, rules)
	if err != nil {
		b.logger.Warn("order failed symbol filters",
			zap.String("symbol", order.Symbol),
			zap.String("qty", requestedQty.String()),
			zap.String("price", requestedPrice.String()),
			zap.String("min_qty", rules.MinQty.String()),
			zap.String("min_notional", rules.MinNotional.String()),
			zap.Error(err),
		)
		return core.Order{}, err
	}
	if !normalized.Qty.Equal(requestedQty) || (order.Type == core.Limit && !normalized.Price.Equal(requestedPrice)) {
		b.logger.Info("order values rounded to symbol rules",
			zap.String("symbol", order.Symbol),
			zap.String("requested_qty", requestedQty.String()),
			zap.String("qty", normalized.Qty.String()),
			zap.String("requested_price", requestedPrice.String()),
			zap.String("price", normalized.Price.String()),
		)
	}

	b.logger.Info("placing order",
		zap.String("symbol", normalized.Symbol),
		zap.String("side", string(normalized.Side)),
		zap.String("type", string(normalized.Type)),
		zap.String("qty", normalized.Qty.String()),
		zap.String("price", normalized.Price.String()),
	)
	placed, err := b.exchange.PlaceOrder(ctx, normalized)
	if err != nil {
		b.logger.Error("order placement failed",
			zap.String("symbol", normalized.Symbol),
			zap.String("side", string(normalized.Side)),
			zap.String("type", string(normalized.Type)),
			zap.Error(err),
		)
		b.notify(ctx, alert.OrderFailedMessage(normalized.Symbol, normalized.Side, normalized.Type, err))
		return core.Order{}, err
	}
	b.logger.Info("order placed",
		zap.String("symbol", placed.Symbol),
		zap.String("id", placed.ID),
		zap.String("client_id", placed.ClientID),
		zap.String("status", string(placed.Status)),
		zap.String("avg_price", placed.AvgPrice.String()),
	)
	b.notify(ctx, alert.OrderPlacedMessage(placed))
	return placed, nil
}

func (b *Bot) AccountInfo(ctx context.Context) (core.Account, error) {
	acct, err := b.exchange.Account(ctx)
	if err != nil {
		b.logger.Error("account fetch failed", zap.Error(err))
		return core.Account{}, fmt.Errorf("account: %w", err)
	}
	b.logger.Info("account retrieved",
		zap.Int("assets", len(acct.Assets)),
		zap.String("total_wallet_balance", acct.TotalWalletBalance.String()),
		zap.String("total_unrealized_profit", acct.TotalUnrealizedProfit.String()),
	)
	return acct, nil
}

func (b *Bot) MarketPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if !config.IsValidSymbol(symbol) {
		return decimal.Zero, ErrInvalidSymbol
	}
	price, err := b.exchange.TickerPrice(ctx, symbol)
	if err != nil {
		b.logger.Error("price fetch failed", zap.String("symbol", symbol), zap.Error(err))
		return decimal.Zero, fmt.Errorf("price for %s: %w", symbol, err)
	}
	b.logger.Info("market price", zap.String("symbol", symbol), zap.String("price", price.String()))
	return price, nil
}

func (b *Bot) OpenOrders(ctx context.Context, symbol string) ([]core.Order, error) {
	if !config.IsValidSymbol(symbol) {
		return nil, ErrInvalidSymbol
	}
	orders, err := b.exchange.OpenOrders(ctx, symbol)
	if err != nil {
		b.logger.Error("open orders fetch failed", zap.String("symbol", symbol), zap.Error(err))
		return nil, fmt.Errorf("open orders for %s: %w", symbol, err)
	}
	b.logger.Info("open orders retrieved", zap.String("symbol", symbol), zap.Int("count", len(orders)))
	return orders, nil
}

func (b *Bot) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if !config.IsValidSymbol(symbol) {
		return ErrInvalidSymbol
	}
	if orderID == "" {
		return errors.New("order id required")
	}
	if err := b.exchange.CancelOrder(ctx, symbol, orderID); err != nil {
		b.logger.Error("cancel failed", zap.String("symbol", symbol), zap.String("order_id", orderID), zap.Error(err))
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	b.logger.Info("order canceled", zap.String("symbol", symbol), zap.String("order_id", orderID))
	return nil
}

func (b *Bot) notify(ctx context.Context, msg string) {
	if b.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := b.notifier.Notify(nctx, msg); err != nil {
		b.logger.Warn("notification failed", zap.Error(err))
	}
}

func validateOrderInput(order core.Order) error {
	if !config.IsValidSymbol(order.Symbol) {
		return ErrInvalidSymbol
	}
	if order.Side != core.Buy && order.Side != core.Sell {
		return ErrInvalidSide
	}
	if order.Qty.Cmp(decimal.Zero) <= 0 {
		return ErrInvalidQty
	}
	return nil
}
