package service

import (
	"context"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botfleet/internal/models"
	exchange "botfleet/internal/modules/exchange/service"
	"botfleet/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeTrader struct {
	price    float64
	priceErr error

	orderErr error
	orders   int
	lastSide exchange.OrderSide
	lastQty  float64
	lastBr   exchange.Bracket

	contracts    float64
	contractsErr error
}

func (f *fakeTrader) Ticker(context.Context, string) (float64, error) {
	return f.price, f.priceErr
}

func (f *fakeTrader) CreateOrder(_ context.Context, _ string, side exchange.OrderSide, qty float64, br exchange.Bracket) (string, error) {
	if f.orderErr != nil {
		return "", f.orderErr
	}
	f.orders++
	f.lastSide = side
	f.lastQty = qty
	f.lastBr = br
	return "order-1", nil
}

func (f *fakeTrader) PositionSize(context.Context, string) (float64, error) {
	return f.contracts, f.contractsErr
}

func longBot() *models.BotConfig {
	return &models.BotConfig{
		TradingPair:       "BTC/USDT",
		Strategy:          models.StrategyLong,
		Leverage:          10,
		Deposit:           100,
		TakeProfitPercent: 5,
		StopLossPercent:   2,
		Indicators: []models.IndicatorSpec{
			{Type: models.IndicatorRSI, Timeframe: models.TF1h, Period: 14, Threshold: 30, Direction: models.DirectionBelow},
		},
	}
}

func shortBot() *models.BotConfig {
	cfg := longBot()
	cfg.Strategy = models.StrategyShort
	return cfg
}

func TestSize(t *testing.T) {
	assert.Equal(t, 0.02, Size(100, 10, 50000))
	assert.Equal(t, 0.0, Size(100, 10, 0))
	// слишком мелкий объём округляется в ноль
	assert.Equal(t, 0.0, Size(0.01, 1, 100000))
}

func TestTPSL(t *testing.T) {
	tp, sl := TPSL(models.StrategyLong, 50000, 5, 2)
	assert.Equal(t, 52500.0, tp)
	assert.Equal(t, 49000.0, sl)

	tp, sl = TPSL(models.StrategyShort, 50000, 5, 2)
	assert.Equal(t, 47500.0, tp)
	assert.Equal(t, 51000.0, sl)
}

func TestOpenLong(t *testing.T) {
	tr := &fakeTrader{price: 50000}
	m := NewManager(longBot(), tr)

	require.NoError(t, m.Open(context.Background()))
	assert.Equal(t, StateOpen, m.State())
	assert.Equal(t, exchange.SideBuy, tr.lastSide)
	assert.Equal(t, 0.02, tr.lastQty)
	assert.Equal(t, 52500.0, tr.lastBr.TakeProfit)
	assert.Equal(t, 49000.0, tr.lastBr.StopLoss)

	pos := m.Position()
	assert.True(t, pos.Open)
	assert.Equal(t, 50000.0, pos.EntryPrice)
}

func TestOpenShortSide(t *testing.T) {
	tr := &fakeTrader{price: 50000}
	m := NewManager(shortBot(), tr)

	require.NoError(t, m.Open(context.Background()))
	assert.Equal(t, exchange.SideSell, tr.lastSide)
	assert.Equal(t, 47500.0, tr.lastBr.TakeProfit)
	assert.Equal(t, 51000.0, tr.lastBr.StopLoss)
}

func TestOpenZeroSizeStaysIdle(t *testing.T) {
	cfg := longBot()
	cfg.Deposit = 0.01
	cfg.Leverage = 1
	tr := &fakeTrader{price: 100000}
	m := NewManager(cfg, tr)

	require.NoError(t, m.Open(context.Background()))
	assert.Equal(t, StateIdle, m.State())
	assert.Zero(t, tr.orders)
}

func TestOpenOrderFailureStaysIdle(t *testing.T) {
	tr := &fakeTrader{price: 50000, orderErr: errors.New("rejected")}
	m := NewManager(longBot(), tr)

	err := m.Open(context.Background())
	require.Error(t, err)
	// никакого частичного состояния
	assert.Equal(t, StateIdle, m.State())
	assert.False(t, m.Position().Open)
}

func TestCheckClosedStillOpen(t *testing.T) {
	tr := &fakeTrader{price: 50000, contracts: 0.02}
	m := NewManager(longBot(), tr)
	require.NoError(t, m.Open(context.Background()))

	closed, _, err := m.CheckClosed(context.Background())
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, StateOpen, m.State())
}

func TestCheckClosedClassifiesTakeProfit(t *testing.T) {
	tr := &fakeTrader{price: 50000, contracts: 0.02}
	m := NewManager(longBot(), tr)
	require.NoError(t, m.Open(context.Background()))

	// позиция исчезла, последняя цена выше тейка
	tr.contracts = 0
	tr.price = 52600
	closed, reason, err := m.CheckClosed(context.Background())
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, models.CloseTakeProfit, reason)
	assert.Equal(t, StateIdle, m.State())
	assert.False(t, m.Position().Open)
}

func TestCheckClosedClassifiesStopLoss(t *testing.T) {
	tr := &fakeTrader{price: 50000, contracts: 0.02}
	m := NewManager(longBot(), tr)
	require.NoError(t, m.Open(context.Background()))

	tr.contracts = 0
	tr.price = 48900
	closed, reason, err := m.CheckClosed(context.Background())
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, models.CloseStopLoss, reason)
}

func TestCheckClosedShortTakeProfit(t *testing.T) {
	tr := &fakeTrader{price: 50000, contracts: 0.02}
	m := NewManager(shortBot(), tr)
	require.NoError(t, m.Open(context.Background()))

	// для шорта тейк ниже входа
	tr.contracts = 0
	tr.price = 47400
	closed, reason, err := m.CheckClosed(context.Background())
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, models.CloseTakeProfit, reason)
}

func TestCheckClosedRetriesWhenClosePriceUnavailable(t *testing.T) {
	tr := &fakeTrader{price: 50000, contracts: 0.02}
	m := NewManager(longBot(), tr)
	require.NoError(t, m.Open(context.Background()))

	// контрактов уже ноль, но цену закрытия получить не удалось:
	// исход не угадываем, позиция остаётся открытой до следующего цикла
	tr.contracts = 0
	tr.priceErr = &exchange.NetworkError{Err: errors.New("timeout")}
	closed, _, err := m.CheckClosed(context.Background())
	require.Error(t, err)
	assert.False(t, closed)
	assert.Equal(t, StateOpen, m.State())

	// цена вернулась — классифицируем как обычно
	tr.priceErr = nil
	tr.price = 52600
	closed, reason, err := m.CheckClosed(context.Background())
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, models.CloseTakeProfit, reason)
	assert.Equal(t, StateIdle, m.State())
}

func TestCheckClosedPropagatesFetchError(t *testing.T) {
	tr := &fakeTrader{price: 50000, contracts: 0.02}
	m := NewManager(longBot(), tr)
	require.NoError(t, m.Open(context.Background()))

	tr.contractsErr = &exchange.NetworkError{Err: errors.New("timeout")}
	_, _, err := m.CheckClosed(context.Background())
	require.Error(t, err)
	assert.True(t, exchange.IsNetworkError(err))
	// позиция по-прежнему считается открытой
	assert.Equal(t, StateOpen, m.State())
}
