package service

import (
	"context"
	"math"
	"time"

	"botfleet/internal/models"
	exchange "botfleet/internal/modules/exchange/service"
	"botfleet/pkg/logger"

	"github.com/pkg/errors"
)

type State string

const (
	StateIdle    State = "IDLE"
	StateOpening State = "OPENING" // переходное, живёт только внутри Open()
	StateOpen    State = "OPEN"
)

// Trader — часть биржевого клиента, нужная менеджеру позиции.
type Trader interface {
	Ticker(ctx context.Context, pair string) (float64, error)
	CreateOrder(ctx context.Context, pair string, side exchange.OrderSide, qty float64, br exchange.Bracket) (string, error)
	PositionSize(ctx context.Context, pair string) (float64, error)
}

// Manager владеет состоянием позиции бота. Однопоточный, как и весь цикл бота:
// никакой синхронизации здесь нет намеренно.
type Manager struct {
	cfg    *models.BotConfig
	trader Trader

	state State
	pos   models.Position
}

func NewManager(cfg *models.BotConfig, trader Trader) *Manager {
	return &Manager{cfg: cfg, trader: trader, state: StateIdle}
}

func (m *Manager) State() State              { return m.state }
func (m *Manager) Position() models.Position { return m.pos }

// Size: (депозит * плечо) / цена, округление до 3 знаков.
func Size(deposit float64, leverage int, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return round3(deposit * float64(leverage) / price)
}

// TPSL считает цены тейка и стопа от цены входа, округление до 2 знаков.
func TPSL(strategy models.Strategy, entry, tpPct, slPct float64) (tp, sl float64) {
	if strategy == models.StrategyLong {
		tp = round2(entry * (1 + tpPct/100))
		sl = round2(entry * (1 - slPct/100))
	} else {
		tp = round2(entry * (1 - tpPct/100))
		sl = round2(entry * (1 + slPct/100))
	}
	return tp, sl
}

// Open открывает позицию: цена -> размер -> TP/SL -> маркет-ордер с брекетом.
// При любой ошибке состояние остаётся IDLE, частичных записей нет.
func (m *Manager) Open(ctx context.Context) error {
	if m.state != StateIdle {
		return errors.Errorf("open from state %s", m.state)
	}
	m.state = StateOpening

	price, err := m.trader.Ticker(ctx, m.cfg.TradingPair)
	if err != nil {
		m.state = StateIdle
		return errors.Wrap(err, "fetch ticker")
	}

	size := Size(m.cfg.Deposit, m.cfg.Leverage, price)
	if size <= 0 {
		m.state = StateIdle
		logger.Warn("[POSITION] %s: размер позиции %.3f <= 0, вход отменён", m.cfg.TradingPair, size)
		return nil
	}

	tp, sl := TPSL(m.cfg.Strategy, price, m.cfg.TakeProfitPercent, m.cfg.StopLossPercent)

	side := exchange.SideBuy
	if m.cfg.Strategy == models.StrategyShort {
		side = exchange.SideSell
	}

	orderID, err := m.trader.CreateOrder(ctx, m.cfg.TradingPair, side, size, exchange.Bracket{
		TakeProfit: tp,
		StopLoss:   sl,
	})
	if err != nil {
		// заявка могла дойти до биржи: такую позицию закроют её же TP/SL
		m.state = StateIdle
		return errors.Wrap(err, "create order")
	}

	m.pos = models.Position{
		EntryPrice: price,
		Size:       size,
		TPPrice:    tp,
		SLPrice:    sl,
		Open:       true,
		OpenedAt:   time.Now(),
	}
	m.state = StateOpen

	logger.Info("[POSITION] %s: открыта %s %.3f @ %.2f (TP %.2f / SL %.2f, ордер %s)",
		m.cfg.TradingPair, side, size, price, tp, sl, orderID)
	return nil
}

// CheckClosed опрашивает биржу: ноль контрактов = позиция закрыта.
// Классификация TP/SL — по близости последней цены к расчётному тейку,
// а не по авторитетной причине исполнения. Пока цену закрытия получить
// не удалось, позиция числится открытой.
func (m *Manager) CheckClosed(ctx context.Context) (bool, models.CloseReason, error) {
	if m.state != StateOpen {
		return false, "", errors.Errorf("check closed from state %s", m.state)
	}

	contracts, err := m.trader.PositionSize(ctx, m.cfg.TradingPair)
	if err != nil {
		return false, "", errors.Wrap(err, "fetch position")
	}
	if contracts != 0 {
		return false, "", nil
	}

	// без цены закрытия исход не определить — состояние не трогаем,
	// следующий цикл попробует снова
	closePrice, err := m.trader.Ticker(ctx, m.cfg.TradingPair)
	if err != nil {
		return false, "", errors.Wrap(err, "fetch close price")
	}
	reason := m.Classify(closePrice)

	logger.Info("[POSITION] %s: закрыта, исход %s (вход %.2f)", m.cfg.TradingPair, reason, m.pos.EntryPrice)
	m.pos = models.Position{}
	m.state = StateIdle
	return true, reason, nil
}

// Classify сравнивает цену закрытия с тейком для стороны входа.
func (m *Manager) Classify(closePrice float64) models.CloseReason {
	tp, _ := TPSL(m.cfg.Strategy, m.pos.EntryPrice, m.cfg.TakeProfitPercent, m.cfg.StopLossPercent)
	if m.cfg.Strategy == models.StrategyLong {
		if closePrice >= tp {
			return models.CloseTakeProfit
		}
		return models.CloseStopLoss
	}
	if closePrice <= tp {
		return models.CloseTakeProfit
	}
	return models.CloseStopLoss
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
