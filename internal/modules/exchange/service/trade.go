package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type OrderSide string

const (
	SideBuy  OrderSide = "Buy"
	SideSell OrderSide = "Sell"
)

// Bracket — TP/SL, встраиваемые в сам маркет-ордер одной заявкой.
type Bracket struct {
	TakeProfit float64
	StopLoss   float64
}

// SetLeverage выставляет плечо по обеим сторонам. Код 110043 ("leverage not
// modified") не считаем ошибкой.
func (c *Client) SetLeverage(ctx context.Context, pair string, leverage int) error {
	lev := strconv.Itoa(leverage)
	body := map[string]string{
		"category":     "linear",
		"symbol":       Symbol(pair),
		"buyLeverage":  lev,
		"sellLeverage": lev,
	}
	err := c.do(ctx, http.MethodPost, "/v5/position/set-leverage", "", body, true, nil)
	if ee, ok := err.(*ExchangeError); ok && ee.RetCode == 110043 {
		return nil
	}
	return err
}

// CreateOrder отправляет маркет-ордер с триггерами TP/SL. Возвращает orderId.
func (c *Client) CreateOrder(ctx context.Context, pair string, side OrderSide, qty float64, br Bracket) (string, error) {
	body := map[string]string{
		"category":  "linear",
		"symbol":    Symbol(pair),
		"side":      string(side),
		"orderType": "Market",
		"qty":       strconv.FormatFloat(qty, 'f', -1, 64),
	}
	if br.TakeProfit > 0 {
		body["takeProfit"] = strconv.FormatFloat(br.TakeProfit, 'f', -1, 64)
	}
	if br.StopLoss > 0 {
		body["stopLoss"] = strconv.FormatFloat(br.StopLoss, 'f', -1, 64)
	}

	var result struct {
		OrderID string `json:"orderId"`
	}
	if err := c.do(ctx, http.MethodPost, "/v5/order/create", "", body, true, &result); err != nil {
		return "", err
	}
	return result.OrderID, nil
}

// PositionSize возвращает размер открытой позиции по паре (0 — позиции нет).
func (c *Client) PositionSize(ctx context.Context, pair string) (float64, error) {
	q := url.Values{}
	q.Set("category", "linear")
	q.Set("symbol", Symbol(pair))

	var result struct {
		List []struct {
			Size string `json:"size"`
		} `json:"list"`
	}
	if err := c.do(ctx, http.MethodGet, "/v5/position/list", q.Encode(), nil, true, &result); err != nil {
		return 0, err
	}
	if len(result.List) == 0 {
		return 0, nil
	}
	return parseF(result.List[0].Size), nil
}
