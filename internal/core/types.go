package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

type OrderType string

type OrderStatus string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

const (
	Limit  OrderType = "LIMIT"
	Market OrderType = "MARKET"
)

const (
	OrderNew             OrderStatus = "NEW"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCanceled        OrderStatus = "CANCELED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderExpired         OrderStatus = "EXPIRED"
)

type Order struct {
	ID          string
	ClientID    string
	Symbol      string
	Side        Side
	Type        OrderType
	Price       decimal.Decimal
	Qty         decimal.Decimal
	ExecutedQty decimal.Decimal
	AvgPrice    decimal.Decimal
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Rules are the symbol trading filters from futures exchange info.
// A zero field means the exchange did not publish that filter.
type Rules struct {
	MinQty      decimal.Decimal
	MinNotional decimal.Decimal
	PriceTick   decimal.Decimal
	QtyStep     decimal.Decimal
}

type AssetBalance struct {
	Asset              string
	WalletBalance      decimal.Decimal
	AvailableBalance   decimal.Decimal
	MarginBalance      decimal.Decimal
	CrossWalletBalance decimal.Decimal
	UnrealizedProfit   decimal.Decimal
}

type Account struct {
	Assets                []AssetBalance
	TotalWalletBalance    decimal.Decimal
	TotalMarginBalance    decimal.Decimal
	TotalInitialMargin    decimal.Decimal
	TotalUnrealizedProfit decimal.Decimal
	AvailableBalance      decimal.Decimal
}

// MarkPrice is a single tick from the futures mark price stream.
type MarkPrice struct {
	Symbol      string
	Price       decimal.Decimal
	IndexPrice  decimal.Decimal
	FundingRate decimal.Decimal
	NextFunding time.Time
	Time        time.Time
}

func ParseSide(v string) (Side, bool) {
	switch Side(v) {
	case Buy:
		return Buy, true
	case Sell:
		return Sell, true
	}
	return "", false
}

func ParseOrderType(v string) (OrderType, bool) {
	switch OrderType(v) {
	case Limit:
		return Limit, true
	case Market:
		return Market, true
	}
	return "", false
}
