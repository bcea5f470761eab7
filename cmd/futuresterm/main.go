package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"futures-term/internal/alert"
	"futures-term/internal/bot"
	"futures-term/internal/config"
	"futures-term/internal/core"
	"futures-term/internal/exchange/binance"
	"futures-term/internal/logging"
)

func main() {
	var (
		configPath string
		allowLive  bool
	)
	flag.StringVar(&configPath, "config", "config/config.yaml", "config yaml path")
	flag.BoolVar(&allowLive, "allow-live", false, "allow trading when mode=live")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err.Error())
	}
	if cfg.Mode == config.ModeLive && !allowLive {
		fatal("mode=live blocked by default; set -allow-live to continue")
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fatal(err.Error())
	}
	defer func() { _ = logger.Sync() }()

	client, err := binance.NewClient(cfg.Exchange, cfg.InstanceID)
	if err != nil {
		fatal(err.Error())
	}
	var notifier alert.Notifier
	if cfg.Telegram.Enabled {
		notifier = alert.NewTelegramNotifier(
			cfg.Telegram.Enabled,
			cfg.Telegram.BotToken,
			cfg.Telegram.ChatID,
			cfg.Telegram.APIBaseURL,
			time.Duration(cfg.Telegram.TimeoutSec)*time.Second,
		)
	}
	b := bot.New(client, logger, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting futures terminal",
		zap.String("mode", string(cfg.Mode)),
		zap.String("rest_base_url", cfg.Exchange.RestBaseURL),
	)
	if _, err := b.Connect(ctx); err != nil {
		logger.Error("connect failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "\nFailed to connect to Binance Futures (%s).\n", cfg.Mode)
		fmt.Fprintln(os.Stderr, "Check your API keys and network connection.")
		fmt.Fprintf(os.Stderr, "See %s for details.\n", cfg.Logging.FilePath)
		os.Exit(1)
	}

	p := newPrompter(os.Stdin, os.Stdout)
	if err := runMenu(ctx, cfg, b, client, p); err != nil && err != io.EOF && !errors.Is(err, context.Canceled) {
		fatal(err.Error())
	}
	logger.Info("futures terminal exited")
}

func runMenu(ctx context.Context, cfg config.Config, b *bot.Bot, client *binance.Client, p *prompter) error {
	out := p.out
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "--- Futures Terminal ---")
		fmt.Fprintln(out, "1. Place Market Order")
		fmt.Fprintln(out, "2. Place Limit Order")
		fmt.Fprintln(out, "3. Account Info")
		fmt.Fprintln(out, "4. Market Price")
		fmt.Fprintln(out, "5. Open Orders")
		fmt.Fprintln(out, "6. Cancel Order")
		fmt.Fprintln(out, "7. Watch Mark Price")
		fmt.Fprintln(out, "8. Exit")
		fmt.Fprintln(out, "------------------------")

		choice, err := p.menuChoice("Enter your choice (1-8): ", 1, 8)
		if err != nil {
			return err
		}

		switch choice {
		case 1:
			if err := placeMarketOrder(ctx, cfg, b, p); err != nil {
				return err
			}
		case 2:
			if err := placeLimitOrder(ctx, cfg, b, p); err != nil {
				return err
			}
		case 3:
			showAccount(ctx, b, out)
		case 4:
			if err := showPrice(ctx, cfg, b, p); err != nil {
				return err
			}
		case 5:
			if err := showOpenOrders(ctx, cfg, b, p); err != nil {
				return err
			}
		case 6:
			if err := cancelOrder(ctx, cfg, b, p); err != nil {
				return err
			}
		case 7:
			if err := watchMarkPrice(ctx, cfg, client, p); err != nil {
				return err
			}
		case 8:
			fmt.Fprintln(out, "Bye.")
			return nil
		}
	}
}

func promptSymbol(cfg config.Config, p *prompter) (string, error) {
	return p.symbol(fmt.Sprintf("Enter trading symbol (e.g. %s): ", cfg.Trade.DefaultSymbol))
}

func promptQty(cfg config.Config, p *prompter) (decimal.Decimal, error) {
	return p.positiveDecimal(fmt.Sprintf("Enter quantity (e.g. %s): ", cfg.Trade.DefaultQuantity.String()))
}

func placeMarketOrder(ctx context.Context, cfg config.Config, b *bot.Bot, p *prompter) error {
	fmt.Fprintln(p.out, "\n--- Place Market Order ---")
	symbol, err := promptSymbol(cfg, p)
	if err != nil {
		return err
	}
	side, err := p.side("Enter order side (BUY/SELL): ")
	if err != nil {
		return err
	}
	qty, err := promptQty(cfg, p)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "\nPlacing MARKET %s order for %s %s...\n", side, qty.String(), symbol)
	order, err := b.PlaceMarketOrder(ctx, symbol, side, qty)
	if err != nil {
		printOrderFailure(p.out, cfg, err)
		return nil
	}
	printOrder(p.out, "MARKET Order Placed Successfully!", order)
	return nil
}

func placeLimitOrder(ctx context.Context, cfg config.Config, b *bot.Bot, p *prompter) error {
	fmt.Fprintln(p.out, "\n--- Place Limit Order ---")
	symbol, err := promptSymbol(cfg, p)
	if err != nil {
		return err
	}
	side, err := p.side("Enter order side (BUY/SELL): ")
	if err != nil {
		return err
	}
	qty, err := promptQty(cfg, p)
	if err != nil {
		return err
	}
	price, err := p.positiveDecimal("Enter limit price: ")
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "\nPlacing LIMIT %s order for %s %s at %s...\n", side, qty.String(), symbol, price.String())
	order, err := b.PlaceLimitOrder(ctx, symbol, side, qty, price)
	if err != nil {
		printOrderFailure(p.out, cfg, err)
		return nil
	}
	printOrder(p.out, "LIMIT Order Placed Successfully!", order)
	return nil
}

func printOrder(out io.Writer, header string, order core.Order) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, header)
	fmt.Fprintf(out, "  Order ID: %s\n", order.ID)
	fmt.Fprintf(out, "  Symbol:   %s\n", order.Symbol)
	fmt.Fprintf(out, "  Side:     %s\n", order.Side)
	fmt.Fprintf(out, "  Type:     %s\n", order.Type)
	if order.Type == core.Limit {
		fmt.Fprintf(out, "  Price:    %s\n", order.Price.String())
	}
	if order.AvgPrice.Cmp(decimal.Zero) > 0 {
		fmt.Fprintf(out, "  Avg Fill: %s\n", order.AvgPrice.String())
	}
	fmt.Fprintf(out, "  Status:   %s\n", order.Status)
}

func printOrderFailure(out io.Writer, cfg config.Config, err error) {
	fmt.Fprintf(out, "\nFailed to place order: %v\n", err)
	fmt.Fprintf(out, "See %s for details.\n", cfg.Logging.FilePath)
}

func showAccount(ctx context.Context, b *bot.Bot, out io.Writer) {
	fmt.Fprintln(out, "\n--- Account Information ---")
	acct, err := b.AccountInfo(ctx)
	if err != nil {
		fmt.Fprintf(out, "\nFailed to retrieve account information: %v\n", err)
		return
	}
	for _, asset := range acct.Assets {
		if asset.WalletBalance.Cmp(decimal.Zero) == 0 && asset.UnrealizedProfit.Cmp(decimal.Zero) == 0 {
			continue
		}
		fmt.Fprintf(out, "  Asset: %s\n", asset.Asset)
		fmt.Fprintf(out, "    Wallet Balance:    %s\n", asset.WalletBalance.String())
		fmt.Fprintf(out, "    Available Balance: %s\n", asset.AvailableBalance.String())
		fmt.Fprintf(out, "    Margin Balance:    %s\n", asset.MarginBalance.String())
	}
	fmt.Fprintf(out, "  Total Initial Margin:    %s\n", acct.TotalInitialMargin.String())
	fmt.Fprintf(out, "  Total Unrealized Profit: %s\n", acct.TotalUnrealizedProfit.String())
}

func showPrice(ctx context.Context, cfg config.Config, b *bot.Bot, p *prompter) error {
	fmt.Fprintln(p.out, "\n--- Market Price ---")
	symbol, err := promptSymbol(cfg, p)
	if err != nil {
		return err
	}
	price, err := b.MarketPrice(ctx, symbol)
	if err != nil {
		fmt.Fprintf(p.out, "\nFailed to retrieve market price for %s: %v\n", symbol, err)
		return nil
	}
	fmt.Fprintf(p.out, "\nCurrent market price for %s: %s\n", symbol, price.String())
	return nil
}

func showOpenOrders(ctx context.Context, cfg config.Config, b *bot.Bot, p *prompter) error {
	fmt.Fprintln(p.out, "\n--- Open Orders ---")
	symbol, err := promptSymbol(cfg, p)
	if err != nil {
		return err
	}
	orders, err := b.OpenOrders(ctx, symbol)
	if err != nil {
		fmt.Fprintf(p.out, "\nFailed to retrieve open orders: %v\n", err)
		return nil
	}
	if len(orders) == 0 {
		fmt.Fprintf(p.out, "\nNo open orders for %s.\n", symbol)
		return nil
	}
	fmt.Fprintln(p.out)
	for _, ord := range orders {
		fmt.Fprintf(p.out, "  id=%s %s %s qty=%s filled=%s price=%s status=%s\n",
			ord.ID, ord.Side, ord.Type, ord.Qty.String(), ord.ExecutedQty.String(), ord.Price.String(), ord.Status)
	}
	return nil
}

func cancelOrder(ctx context.Context, cfg config.Config, b *bot.Bot, p *prompter) error {
	fmt.Fprintln(p.out, "\n--- Cancel Order ---")
	symbol, err := promptSymbol(cfg, p)
	if err != nil {
		return err
	}
	orderID, err := p.text("Enter order id: ", func(raw string) (string, error) {
		if raw == "" {
			return "", fmt.Errorf("order id cannot be empty")
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	if err := b.CancelOrder(ctx, symbol, orderID); err != nil {
		fmt.Fprintf(p.out, "\nFailed to cancel order %s: %v\n", orderID, err)
		return nil
	}
	fmt.Fprintf(p.out, "\nOrder %s canceled.\n", orderID)
	return nil
}

func watchMarkPrice(ctx context.Context, cfg config.Config, client *binance.Client, p *prompter) error {
	fmt.Fprintln(p.out, "\n--- Watch Mark Price ---")
	symbol, err := promptSymbol(cfg, p)
	if err != nil {
		return err
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stream, err := client.NewMarkPriceStream(wctx, symbol)
	if err != nil {
		fmt.Fprintf(p.out, "\nFailed to open mark price stream: %v\n", err)
		return nil
	}
	ticks, errs := stream.Updates(wctx)

	stop := make(chan struct{})
	go func() {
		_, _ = p.in.ReadString('\n')
		close(stop)
	}()
	fmt.Fprintln(p.out, "Streaming mark price. Press Enter to stop.")

	var streamErr error
	ended := false
loop:
	for {
		select {
		case <-stop:
			break loop
		case <-wctx.Done():
			// Parent cancellation means the menu loop exits next, so the
			// Enter reader cannot race another prompt for stdin.
			cancel()
			_ = stream.Close()
			return nil
		case tick, ok := <-ticks:
			if !ok {
				ended = true
				break loop
			}
			fmt.Fprintf(p.out, "  %s mark=%s index=%s funding=%s\n",
				tick.Time.Format("15:04:05"), tick.Price.String(), tick.IndexPrice.String(), tick.FundingRate.String())
		case err, ok := <-errs:
			if ok && err != nil {
				streamErr = err
				break loop
			}
		}
	}
	cancel()
	_ = stream.Close()
	if streamErr != nil {
		fmt.Fprintf(p.out, "\nStream error: %v\n", streamErr)
	} else if ended {
		fmt.Fprintln(p.out, "\nStream ended.")
	}
	if streamErr != nil || ended {
		fmt.Fprintln(p.out, "Press Enter to return to the menu.")
	}
	// Wait for the Enter reader so the menu never races it for stdin.
	<-stop
	return nil
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
