package binance

import (
	"strconv"

	"github.com/shopspring/decimal"

	"futures-term/internal/core"
)

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type APIError struct {
	Code int
	Msg  string
}

func (e APIError) Error() string {
	return "binance api error " + strconv.Itoa(e.Code) + ": " + e.Msg
}

type serverTimeResponse struct {
	ServerTime int64 `json:"serverTime"`
}

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type orderResponse struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Price         string `json:"price"`
	AvgPrice      string `json:"avgPrice"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Status        string `json:"status"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Time          int64  `json:"time"`
	UpdateTime    int64  `json:"updateTime"`
}

func (r orderResponse) toOrder() core.Order {
	price, _ := decimal.NewFromString(r.Price)
	avgPrice, _ := decimal.NewFromString(r.AvgPrice)
	qty, _ := decimal.NewFromString(r.OrigQty)
	executed, _ := decimal.NewFromString(r.ExecutedQty)
	order := core.Order{
		ID:          strconv.FormatInt(r.OrderID, 10),
		ClientID:    r.ClientOrderID,
		Symbol:      r.Symbol,
		Side:        core.Side(r.Side),
		Type:        core.OrderType(r.Type),
		Price:       price,
		AvgPrice:    avgPrice,
		Qty:         qty,
		ExecutedQty: executed,
		Status:      core.OrderStatus(r.Status),
	}
	if order.Status == "" {
		order.Status = core.OrderNew
	}
	if r.Time > 0 {
		order.CreatedAt = msToTime(r.Time)
	}
	if r.UpdateTime > 0 {
		order.UpdatedAt = msToTime(r.UpdateTime)
	}
	return order
}

type accountResponse struct {
	TotalWalletBalance    string `json:"totalWalletBalance"`
	TotalMarginBalance    string `json:"totalMarginBalance"`
	TotalInitialMargin    string `json:"totalInitialMargin"`
	TotalUnrealizedProfit string `json:"totalUnrealizedProfit"`
	AvailableBalance      string `json:"availableBalance"`
	Assets                []struct {
		Asset              string `json:"asset"`
		WalletBalance      string `json:"walletBalance"`
		AvailableBalance   string `json:"availableBalance"`
		MarginBalance      string `json:"marginBalance"`
		CrossWalletBalance string `json:"crossWalletBalance"`
		UnrealizedProfit   string `json:"unrealizedProfit"`
	} `json:"assets"`
}

func (r accountResponse) toAccount() core.Account {
	acct := core.Account{
		TotalWalletBalance:    parseDecimal(r.TotalWalletBalance),
		TotalMarginBalance:    parseDecimal(r.TotalMarginBalance),
		TotalInitialMargin:    parseDecimal(r.TotalInitialMargin),
		TotalUnrealizedProfit: parseDecimal(r.TotalUnrealizedProfit),
		AvailableBalance:      parseDecimal(r.AvailableBalance),
	}
	for _, a := range r.Assets {
		acct.Assets = append(acct.Assets, core.AssetBalance{
			Asset:              a.Asset,
			WalletBalance:      parseDecimal(a.WalletBalance),
			AvailableBalance:   parseDecimal(a.AvailableBalance),
			MarginBalance:      parseDecimal(a.MarginBalance),
			CrossWalletBalance: parseDecimal(a.CrossWalletBalance),
			UnrealizedProfit:   parseDecimal(a.UnrealizedProfit),
		})
	}
	return acct
}

type exchangeInfoResponse struct {
	Symbols []symbolInfoResponse `json:"symbols"`
}

type symbolInfoResponse struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
	Filters    []struct {
		FilterType  string `json:"filterType"`
		MinQty      string `json:"minQty"`
		StepSize    string `json:"stepSize"`
		Notional    string `json:"notional"`
		MinNotional string `json:"minNotional"`
		TickSize    string `json:"tickSize"`
	} `json:"filters"`
}

type symbolInfo struct {
	baseAsset  string
	quoteAsset string
	rules      core.Rules
}

func parseSymbolInfo(src symbolInfoResponse) symbolInfo {
	info := symbolInfo{
		baseAsset:  src.BaseAsset,
		quoteAsset: src.QuoteAsset,
	}
	for _, f := range src.Filters {
		switch f.FilterType {
		case "LOT_SIZE":
			if v, err := decimal.NewFromString(f.MinQty); err == nil {
				info.rules.MinQty = v
			}
			if v, err := decimal.NewFromString(f.StepSize); err == nil {
				info.rules.QtyStep = v
			}
		case "PRICE_FILTER":
			if v, err := decimal.NewFromString(f.TickSize); err == nil {
				info.rules.PriceTick = v
			}
		case "MIN_NOTIONAL", "NOTIONAL":
			// Futures publishes "notional", spot "minNotional"; accept either
			// and keep the stricter minimum when both appear.
			raw := f.Notional
			if raw == "" {
				raw = f.MinNotional
			}
			if v, err := decimal.NewFromString(raw); err == nil && v.Cmp(info.rules.MinNotional) > 0 {
				info.rules.MinNotional = v
			}
		}
	}
	return info
}

func parseDecimal(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}
