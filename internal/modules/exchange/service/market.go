package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"botfleet/internal/models"

	"github.com/pkg/errors"
)

var intervals = map[models.Timeframe]string{
	models.TF1m:  "1",
	models.TF5m:  "5",
	models.TF15m: "15",
	models.TF1h:  "60",
	models.TF4h:  "240",
	models.TF1d:  "D",
}

// Candles возвращает до limit последних свечей, упорядоченных по времени по возрастанию.
func (c *Client) Candles(ctx context.Context, pair string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	interval, ok := intervals[tf]
	if !ok {
		return nil, errors.Errorf("unsupported timeframe %q", tf)
	}

	q := url.Values{}
	q.Set("category", "linear")
	q.Set("symbol", Symbol(pair))
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	var result struct {
		List [][]string `json:"list"`
	}
	if err := c.do(ctx, http.MethodGet, "/v5/market/kline", q.Encode(), nil, false, &result); err != nil {
		return nil, err
	}

	// Bybit отдаёт свечи от новых к старым
	candles := make([]models.Candle, 0, len(result.List))
	for i := len(result.List) - 1; i >= 0; i-- {
		row := result.List[i]
		if len(row) < 6 {
			continue
		}
		tsMs, _ := strconv.ParseInt(row[0], 10, 64)
		candles = append(candles, models.Candle{
			Ts:     time.UnixMilli(tsMs),
			Open:   parseF(row[1]),
			High:   parseF(row[2]),
			Low:    parseF(row[3]),
			Close:  parseF(row[4]),
			Volume: parseF(row[5]),
		})
	}
	return candles, nil
}

// priceMaxAge — пока ws-цена свежее этого, REST не дёргаем.
const priceMaxAge = 5 * time.Second

// Ticker возвращает последнюю цену: сперва из ws-кэша, иначе REST.
func (c *Client) Ticker(ctx context.Context, pair string) (float64, error) {
	symbol := Symbol(pair)

	c.mu.RLock()
	entry, ok := c.lastPrice[symbol]
	c.mu.RUnlock()
	if ok && time.Since(entry.at) < priceMaxAge && entry.price > 0 {
		return entry.price, nil
	}

	q := url.Values{}
	q.Set("category", "linear")
	q.Set("symbol", symbol)

	var result struct {
		List []struct {
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := c.do(ctx, http.MethodGet, "/v5/market/tickers", q.Encode(), nil, false, &result); err != nil {
		return 0, err
	}
	if len(result.List) == 0 {
		return 0, &ExchangeError{RetMsg: fmt.Sprintf("no ticker for %s", symbol)}
	}
	price := parseF(result.List[0].LastPrice)
	if price <= 0 {
		return 0, &ExchangeError{RetMsg: fmt.Sprintf("bad last price %q for %s", result.List[0].LastPrice, symbol)}
	}
	return price, nil
}
