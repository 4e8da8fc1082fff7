package service

import (
	"context"
	"time"

	"botfleet/pkg/logger"

	"github.com/bytedance/sonic"
)

// StreamTicker держит подписку на публичный тикер и обновляет кэш последней цены.
// Работает до отмены ctx, при обрывах переподключается сам.
func (c *Client) StreamTicker(ctx context.Context, pair string) {
	symbol := Symbol(pair)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.streamOnce(ctx, symbol); err != nil && ctx.Err() == nil {
			logger.Warn("ws тикер %s оборвался: %v, переподключение через 5s", symbol, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (c *Client) streamOnce(ctx context.Context, symbol string) error {
	conn, _, err := c.wsDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]any{
		"op":   "subscribe",
		"args": []string{"tickers." + symbol},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	// закрываем коннект при отмене ctx, чтобы ReadMessage не завис
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	pingTicker := time.NewTicker(20 * time.Second)
	defer pingTicker.Stop()
	go func() {
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				_ = conn.WriteJSON(map[string]string{"op": "ping"})
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg struct {
			Topic string `json:"topic"`
			Data  struct {
				Symbol    string `json:"symbol"`
				LastPrice string `json:"lastPrice"`
			} `json:"data"`
		}
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			continue
		}
		// дельты без lastPrice пропускаем
		if msg.Topic == "" || msg.Data.LastPrice == "" {
			continue
		}
		price := parseF(msg.Data.LastPrice)
		if price <= 0 {
			continue
		}

		c.mu.Lock()
		c.lastPrice[symbol] = priceEntry{price: price, at: time.Now()}
		c.mu.Unlock()
	}
}
