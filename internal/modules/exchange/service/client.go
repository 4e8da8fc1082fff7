package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	defaultBaseURL = "https://api.bybit.com"
	defaultWSURL   = "wss://stream.bybit.com/v5/public/linear"
	recvWindow     = "5000"
)

// Client — REST-клиент фьючерсов Bybit v5 (category=linear)
// плюс опциональный ws-кэш последней цены.
type Client struct {
	http     *http.Client
	baseURL  string
	wsURL    string
	wsDialer *websocket.Dialer

	apiKey    string
	apiSecret string

	mu        sync.RWMutex
	lastPrice map[string]priceEntry
}

type priceEntry struct {
	price float64
	at    time.Time
}

func NewClient() *Client {
	return &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		baseURL:   defaultBaseURL,
		wsURL:     defaultWSURL,
		wsDialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		lastPrice: make(map[string]priceEntry),
	}
}

func (c *Client) SetCreds(apiKey, apiSecret string) {
	c.apiKey = apiKey
	c.apiSecret = apiSecret
}

// SetBaseURL нужен тестам и тестнету.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// Symbol нормализует ccxt-подобные пары ("BTC/USDT:USDT") к виду Bybit ("BTCUSDT").
func Symbol(pair string) string {
	s := strings.ToUpper(strings.TrimSpace(pair))
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

type baseResp struct {
	RetCode int64           `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) sign(ts, payload string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(ts + c.apiKey + recvWindow + payload))
	return hex.EncodeToString(h.Sum(nil))
}

// do выполняет запрос и раскладывает сбои на NetworkError / ExchangeError.
// Для GET подписывается query, для POST — тело.
func (c *Client) do(ctx context.Context, method, path, query string, body any, signed bool, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = sonic.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
	}

	url := c.baseURL + path
	if query != "" {
		url += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	if signed {
		ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
		signPayload := query
		if method == http.MethodPost {
			signPayload = string(payload)
		}
		req.Header.Set("X-BAPI-API-KEY", c.apiKey)
		req.Header.Set("X-BAPI-TIMESTAMP", ts)
		req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
		req.Header.Set("X-BAPI-SIGN", c.sign(ts, signPayload))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}
	if resp.StatusCode/100 != 2 {
		return &ExchangeError{HTTPStatus: resp.StatusCode, RetMsg: string(rb)}
	}

	var base baseResp
	if err := sonic.Unmarshal(rb, &base); err != nil {
		return errors.Wrapf(err, "decode response: %s", string(rb))
	}
	if base.RetCode != 0 {
		return &ExchangeError{HTTPStatus: resp.StatusCode, RetCode: base.RetCode, RetMsg: base.RetMsg}
	}
	if out != nil && len(base.Result) > 0 {
		if err := sonic.Unmarshal(base.Result, out); err != nil {
			return errors.Wrap(err, "decode result")
		}
	}
	return nil
}

func parseF(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
