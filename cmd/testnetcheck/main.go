package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"futures-term/internal/config"
	"futures-term/internal/core"
	"futures-term/internal/exchange/binance"
)

type checkStatus string

const (
	statusPass checkStatus = "PASS"
	statusFail checkStatus = "FAIL"
)

type checkResult struct {
	Name       string      `json:"name"`
	Status     checkStatus `json:"status"`
	DurationMs int64       `json:"duration_ms"`
	Detail     string      `json:"detail,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type report struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Mode       config.Mode   `json:"mode"`
	Symbol     string        `json:"symbol"`
	Checks     []checkResult `json:"checks"`
}

type selectedChecks struct {
	preflight bool
	lifecycle bool
	stream    bool
}

func main() {
	var (
		configPath   string
		timeoutSec   int
		streamWait   int
		outJSONPath  string
		allowLiveRun bool
		checkFlag    string
	)
	flag.StringVar(&configPath, "config", "config/config.yaml", "config yaml path")
	flag.IntVar(&timeoutSec, "timeout-sec", 120, "total timeout seconds")
	flag.IntVar(&streamWait, "stream-wait-sec", 10, "wait seconds for mark price stream check")
	flag.StringVar(&outJSONPath, "out-json", "", "optional output report path")
	flag.BoolVar(&allowLiveRun, "allow-live", false, "allow running checks when mode=live")
	flag.StringVar(&checkFlag, "check", "default", "checks to run: default | all | comma list (preflight,lifecycle,stream)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err.Error())
	}
	if cfg.Mode == config.ModeLive && !allowLiveRun {
		fatal("mode=live blocked by default; set -allow-live=true to continue")
	}
	checks, err := parseCheckFlag(checkFlag)
	if err != nil {
		fatal(err.Error())
	}

	if timeoutSec < 30 {
		timeoutSec = 30
	}
	if streamWait < 3 {
		streamWait = 3
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()

	client, err := binance.NewClient(cfg.Exchange, cfg.InstanceID)
	if err != nil {
		fatal(err.Error())
	}

	symbol := cfg.Trade.DefaultSymbol
	r := report{
		StartedAt: time.Now().UTC(),
		Mode:      cfg.Mode,
		Symbol:    symbol,
	}

	var (
		marketLoaded bool
		rules        core.Rules
		lastPrice    decimal.Decimal
		available    decimal.Decimal
		placedID     string
	)

	loadMarketContext := func() error {
		if marketLoaded {
			return nil
		}
		var err error
		rules, err = client.GetRules(ctx, symbol)
		if err != nil {
			return err
		}
		lastPrice, err = client.TickerPrice(ctx, symbol)
		if err != nil {
			return err
		}
		acct, err := client.Account(ctx)
		if err != nil {
			return err
		}
		available = acct.AvailableBalance
		marketLoaded = true
		return nil
	}

	run := func(name string, fn func() (string, error)) {
		start := time.Now()
		detail, err := fn()
		cr := checkResult{
			Name:       name,
			DurationMs: time.Since(start).Milliseconds(),
			Detail:     detail,
		}
		if err != nil {
			cr.Status = statusFail
			cr.Error = err.Error()
		} else {
			cr.Status = statusPass
		}
		r.Checks = append(r.Checks, cr)
		if cr.Status == statusPass {
			fmt.Printf("[PASS] %s (%dms)", name, cr.DurationMs)
			if cr.Detail != "" {
				fmt.Printf(" - %s", cr.Detail)
			}
			fmt.Println()
		} else {
			fmt.Printf("[FAIL] %s (%dms) - %s\n", name, cr.DurationMs, cr.Error)
		}
	}

	if checks.preflight {
		run("exchange_preflight", func() (string, error) {
			if err := client.Ping(ctx); err != nil {
				return "", err
			}
			serverTime, err := client.ServerTime(ctx)
			if err != nil {
				return "", err
			}
			drift := time.Since(serverTime).Round(time.Millisecond)
			if err := loadMarketContext(); err != nil {
				return "", err
			}
			return fmt.Sprintf("price=%s minQty=%s minNotional=%s available=%s drift=%s",
				lastPrice.String(), rules.MinQty.String(), rules.MinNotional.String(), available.String(), drift.String()), nil
		})
	}

	if checks.lifecycle {
		run("order_lifecycle_place_query_cancel", func() (string, error) {
			if err := loadMarketContext(); err != nil {
				return "", err
			}
			if lastPrice.Cmp(decimal.Zero) <= 0 {
				return "", errors.New("missing ticker price")
			}
			price := lastPrice.Mul(decimal.RequireFromString("0.5"))
			if rules.PriceTick.Cmp(decimal.Zero) > 0 {
				price = core.RoundDown(price, rules.PriceTick)
			}
			if price.Cmp(decimal.Zero) <= 0 {
				return "", errors.New("calculated order price <= 0")
			}
			qty, err := buildTinyLimitQty(cfg, rules, price)
			if err != nil {
				return "", err
			}
			notional := price.Mul(qty)
			if available.Cmp(notional) < 0 {
				return "", fmt.Errorf("insufficient margin for check order: need=%s have=%s", notional.String(), available.String())
			}

			order := core.Order{
				Symbol: symbol,
				Side:   core.Buy,
				Type:   core.Limit,
				Price:  price,
				Qty:    qty,
			}
			placed, err := client.PlaceOrder(ctx, order)
			if err != nil {
				return "", err
			}
			if placed.ID == "" {
				return "", errors.New("empty order id")
			}
			placedID = placed.ID

			query, err := client.QueryOrder(ctx, symbol, placed.ID, placed.ClientID)
			if err != nil {
				return "", err
			}

			open, err := client.OpenOrders(ctx, symbol)
			if err != nil {
				return "", err
			}
			foundInOpen := false
			for _, ord := range open {
				if ord.ID == placed.ID {
					foundInOpen = true
					break
				}
			}

			status := string(query.Status)
			switch query.Status {
			case core.OrderNew, core.OrderPartiallyFilled:
				if err := client.CancelOrder(ctx, symbol, placed.ID); err != nil {
					return "", fmt.Errorf("cancel order failed: %w", err)
				}
				time.Sleep(400 * time.Millisecond)
				queryAfter, err := client.QueryOrder(ctx, symbol, placed.ID, placed.ClientID)
				if err == nil {
					status = string(queryAfter.Status)
				}
			case core.OrderFilled:
				// Unexpected for a far-below-market order but acceptable for lifecycle check.
			default:
				// keep status for report
			}

			return fmt.Sprintf("id=%s clientId=%s side=%s qty=%s price=%s status=%s foundInOpen=%t",
				placed.ID, placed.ClientID, placed.Side, qty.String(), price.String(), status, foundInOpen), nil
		})
	}

	if checks.stream {
		run("mark_price_stream", func() (string, error) {
			cctx, ccancel := context.WithTimeout(ctx, time.Duration(streamWait)*time.Second)
			defer ccancel()

			stream, err := client.NewMarkPriceStream(cctx, symbol)
			if err != nil {
				return "", err
			}
			defer stream.Close()
			ticks, errs := stream.Updates(cctx)
			count := 0
			var last decimal.Decimal
			for {
				select {
				case <-cctx.Done():
					if errors.Is(cctx.Err(), context.DeadlineExceeded) {
						if count == 0 {
							return "", fmt.Errorf("no mark price ticks during %ds window", streamWait)
						}
						return fmt.Sprintf("ticks=%d last=%s during %ds window", count, last.String(), streamWait), nil
					}
					return "", cctx.Err()
				case tick, ok := <-ticks:
					if !ok {
						return "", errors.New("tick channel closed unexpectedly")
					}
					count++
					last = tick.Price
				case err, ok := <-errs:
					if ok && err != nil {
						return "", err
					}
				}
			}
		})
	}

	// cleanup: if lifecycle order still exists, best-effort cancel
	if placedID != "" {
		_ = client.CancelOrder(context.Background(), symbol, placedID)
	}

	r.FinishedAt = time.Now().UTC()
	printSummary(r)

	if outJSONPath != "" {
		if err := writeReport(outJSONPath, r); err != nil {
			fatal(err.Error())
		}
		fmt.Printf("report written: %s\n", outJSONPath)
	}

	for _, c := range r.Checks {
		if c.Status == statusFail {
			os.Exit(1)
		}
	}
}

func parseCheckFlag(raw string) (selectedChecks, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "default" || raw == "all" {
		return selectedChecks{
			preflight: true,
			lifecycle: true,
			stream:    true,
		}, nil
	}

	var out selectedChecks
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		name := strings.TrimSpace(p)
		switch name {
		case "":
			continue
		case "preflight", "exchange_preflight":
			out.preflight = true
		case "lifecycle", "order_lifecycle", "order_lifecycle_place_query_cancel":
			out.lifecycle = true
		case "stream", "mark_stream", "mark_price_stream":
			out.stream = true
		default:
			return selectedChecks{}, fmt.Errorf("unknown check: %s", name)
		}
	}
	if !out.preflight && !out.lifecycle && !out.stream {
		return selectedChecks{}, errors.New("no checks selected")
	}
	return out, nil
}

func buildTinyLimitQty(cfg config.Config, rules core.Rules, price decimal.Decimal) (decimal.Decimal, error) {
	if price.Cmp(decimal.Zero) <= 0 {
		return decimal.Zero, errors.New("invalid price")
	}

	qty := cfg.Trade.DefaultQuantity.Decimal
	if rules.MinQty.Cmp(decimal.Zero) > 0 && qty.Cmp(rules.MinQty) < 0 {
		qty = rules.MinQty
	}
	if rules.MinNotional.Cmp(decimal.Zero) > 0 {
		minNotionalQty := rules.MinNotional.Div(price)
		if minNotionalQty.Cmp(qty) > 0 {
			qty = minNotionalQty
		}
	}
	qty = roundQtyUp(qty, rules.QtyStep)
	if rules.MinQty.Cmp(decimal.Zero) > 0 && qty.Cmp(rules.MinQty) < 0 {
		qty = rules.MinQty
	}
	if qty.Cmp(decimal.Zero) <= 0 {
		return decimal.Zero, errors.New("calculated qty <= 0")
	}
	if rules.MinNotional.Cmp(decimal.Zero) > 0 {
		notional := price.Mul(qty)
		if notional.Cmp(rules.MinNotional) < 0 {
			qty = roundQtyUp(rules.MinNotional.Div(price), rules.QtyStep)
		}
	}
	norm, err := core.NormalizeOrder(core.Order{
		Symbol: cfg.Trade.DefaultSymbol,
		Side:   core.Buy,
		Type:   core.Limit,
		Price:  price,
		Qty:    qty,
	}, rules)
	if err != nil {
		return decimal.Zero, err
	}
	return norm.Qty, nil
}

func roundQtyUp(qty, step decimal.Decimal) decimal.Decimal {
	if qty.Cmp(decimal.Zero) <= 0 {
		return decimal.Zero
	}
	if step.Cmp(decimal.Zero) <= 0 {
		return qty
	}
	return qty.Div(step).Ceil().Mul(step)
}

func printSummary(r report) {
	pass := 0
	fail := 0
	for _, c := range r.Checks {
		if c.Status == statusPass {
			pass++
		} else {
			fail++
		}
	}
	fmt.Printf("\nsummary mode=%s symbol=%s pass=%d fail=%d duration=%s\n",
		r.Mode,
		r.Symbol,
		pass,
		fail,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
	)
}

func writeReport(path string, r report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, strings.TrimSpace(msg))
	os.Exit(1)
}
