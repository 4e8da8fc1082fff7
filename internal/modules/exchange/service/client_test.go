package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botfleet/internal/models"
	"botfleet/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient()
	c.SetBaseURL(srv.URL)
	c.SetCreds("test-key", "test-secret")
	return c, srv
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", Symbol("BTC/USDT"))
	assert.Equal(t, "BTCUSDT", Symbol("BTC/USDT:USDT"))
	assert.Equal(t, "BTCUSDT", Symbol("btc-usdt"))
	assert.Equal(t, "ETHUSDT", Symbol("ETHUSDT"))
}

func TestCandlesAscendingOrder(t *testing.T) {
	// Bybit отдаёт свечи от новых к старым
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/kline", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{
			"retCode": 0, "retMsg": "OK",
			"result": {"list": [
				["1700000120000","102","103","101","102.5","7","0"],
				["1700000060000","101","102","100","101.5","6","0"],
				["1700000000000","100","101","99","100.5","5","0"]
			]}
		}`))
	}))
	defer srv.Close()

	candles, err := c.Candles(context.Background(), "BTC/USDT", models.TF1m, 100)
	require.NoError(t, err)
	require.Len(t, candles, 3)
	assert.Equal(t, 100.5, candles[0].Close)
	assert.Equal(t, 102.5, candles[2].Close)
	assert.True(t, candles[0].Ts.Before(candles[1].Ts))
	assert.True(t, candles[1].Ts.Before(candles[2].Ts))
}

func TestTickerREST(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[{"lastPrice":"50123.5"}]}}`))
	}))
	defer srv.Close()

	price, err := c.Ticker(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 50123.5, price)
}

func TestTickerUsesFreshCache(t *testing.T) {
	// REST-обработчик не должен быть вызван вовсе
	called := false
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c.mu.Lock()
	c.lastPrice["BTCUSDT"] = priceEntry{price: 49999.0, at: time.Now()}
	c.mu.Unlock()

	price, err := c.Ticker(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 49999.0, price)
	assert.False(t, called)
}

func TestExchangeErrorOnRetCode(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"retCode":10006,"retMsg":"too many visits"}`))
	}))
	defer srv.Close()

	_, err := c.Ticker(context.Background(), "BTC/USDT")
	require.Error(t, err)
	assert.True(t, IsExchangeError(err))
	assert.False(t, IsNetworkError(err))
}

func TestExchangeErrorOnHTTPStatus(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := c.Candles(context.Background(), "BTC/USDT", models.TF1h, 100)
	require.Error(t, err)
	assert.True(t, IsExchangeError(err))
}

func TestNetworkErrorOnDeadServer(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // сервер уже мёртв

	_, err := c.Ticker(context.Background(), "BTC/USDT")
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestCreateOrderSignsAndSendsBracket(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/order/create", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-BAPI-API-KEY"))
		assert.NotEmpty(t, r.Header.Get("X-BAPI-SIGN"))
		assert.NotEmpty(t, r.Header.Get("X-BAPI-TIMESTAMP"))
		_, _ = w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"orderId":"abc-123"}}`))
	}))
	defer srv.Close()

	id, err := c.CreateOrder(context.Background(), "BTC/USDT", SideBuy, 0.02, Bracket{TakeProfit: 52500, StopLoss: 49000})
	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)
}

func TestPositionSizeEmpty(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[]}}`))
	}))
	defer srv.Close()

	size, err := c.PositionSize(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Zero(t, size)
}
