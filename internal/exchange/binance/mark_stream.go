package binance

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"futures-term/internal/core"
)

// MarkPriceStream is a live subscription to a symbol's mark price channel on
// the futures market data stream.
type MarkPriceStream struct {
	conn      *websocket.Conn
	keepalive time.Duration
}

type markPriceEvent struct {
	EventType       string `json:"e"`
	EventTime       int64  `json:"E"`
	Symbol          string `json:"s"`
	MarkPrice       string `json:"p"`
	IndexPrice      string `json:"i"`
	FundingRate     string `json:"r"`
	NextFundingTime int64  `json:"T"`
}

func (c *Client) NewMarkPriceStream(ctx context.Context, symbol string) (*MarkPriceStream, error) {
	if c.streamBaseURL == "" {
		return nil, errors.New("stream base url required")
	}
	if symbol == "" {
		return nil, errors.New("symbol required")
	}
	endpoint := c.streamBaseURL + "/ws/" + strings.ToLower(symbol) + "@markPrice@1s"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return &MarkPriceStream{conn: conn, keepalive: c.streamKeepalive}, nil
}

// Updates starts the read loop and returns tick and error channels. The tick
// channel closes when the stream ends; the error channel is best effort and
// never blocks the reader.
func (s *MarkPriceStream) Updates(ctx context.Context) (<-chan core.MarkPrice, <-chan error) {
	ticks := make(chan core.MarkPrice)
	errCh := make(chan error, 4)
	done := make(chan struct{})

	reportErr := func(err error) {
		if err == nil {
			return
		}
		select {
		case errCh <- err:
		default:
		}
	}

	readTimeout := 45 * time.Second
	if s.keepalive > 0 {
		readTimeout = s.keepalive * 3
		if readTimeout < 30*time.Second {
			readTimeout = 30 * time.Second
		}
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go func() {
		defer close(done)
		defer close(ticks)
		defer s.conn.Close()

		for {
			_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, data, err := s.conn.ReadMessage()
			if err != nil {
				reportErr(err)
				return
			}
			tick, ok := parseMarkPriceEvent(data)
			if !ok {
				continue
			}
			select {
			case ticks <- tick:
			case <-ctx.Done():
				return
			}
		}
	}()

	if s.keepalive > 0 {
		go func() {
			ticker := time.NewTicker(s.keepalive)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
						reportErr(err)
						_ = s.conn.Close()
						return
					}
				case <-done:
					return
				case <-ctx.Done():
					_ = s.conn.Close()
					return
				}
			}
		}()
	}

	return ticks, errCh
}

func (s *MarkPriceStream) Close() error {
	return s.conn.Close()
}

func parseMarkPriceEvent(data []byte) (core.MarkPrice, bool) {
	if len(data) == 0 {
		return core.MarkPrice{}, false
	}
	var msg markPriceEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return core.MarkPrice{}, false
	}
	if msg.EventType != "markPriceUpdate" {
		return core.MarkPrice{}, false
	}
	price, err := decimal.NewFromString(msg.MarkPrice)
	if err != nil || price.Cmp(decimal.Zero) <= 0 {
		return core.MarkPrice{}, false
	}
	tick := core.MarkPrice{
		Symbol: msg.Symbol,
		Price:  price,
	}
	if v, err := decimal.NewFromString(msg.IndexPrice); err == nil {
		tick.IndexPrice = v
	}
	if v, err := decimal.NewFromString(msg.FundingRate); err == nil {
		tick.FundingRate = v
	}
	if msg.NextFundingTime > 0 {
		tick.NextFunding = msToTime(msg.NextFundingTime)
	}
	if msg.EventTime > 0 {
		tick.Time = msToTime(msg.EventTime)
	}
	return tick, true
}
