package service

import (
	"context"

	"botfleet/internal/models"
	indicator "botfleet/internal/modules/indicator/service"
	"botfleet/pkg/logger"
)

// candleLimit — сколько последних свечей берём на каждый индикатор.
const candleLimit = 100

// MarketData — источник свечей (REST-клиент биржи в проде, фейк в тестах).
type MarketData interface {
	Candles(ctx context.Context, pair string, tf models.Timeframe, limit int) ([]models.Candle, error)
}

type Aggregator struct {
	md     MarketData
	engine *indicator.Engine
}

func NewAggregator(md MarketData, engine *indicator.Engine) *Aggregator {
	return &Aggregator{md: md, engine: engine}
}

// Evaluate проверяет все индикаторы бота и сводит их логическим AND.
// Fail-closed: любой сбой данных или несработавший предикат = false.
// Ошибки не поднимаются наверх — цикл просто попробует в следующий раз.
func (a *Aggregator) Evaluate(ctx context.Context, cfg *models.BotConfig) bool {
	for _, spec := range cfg.Indicators {
		candles, err := a.md.Candles(ctx, cfg.TradingPair, spec.Timeframe, candleLimit)
		if err != nil {
			logger.Error("[SIGNAL] %s %s(%s): свечи не получены: %v",
				cfg.TradingPair, spec.Type, spec.Timeframe, err)
			return false
		}

		value, ok := a.engine.Compute(spec.Type, candles, spec.Period)
		if !ok {
			logger.Warn("[SIGNAL] %s %s(%s, период %d): значение недоступно",
				cfg.TradingPair, spec.Type, spec.Timeframe, spec.Period)
			return false
		}

		if !CheckSignal(spec.Direction, value, spec.Threshold) {
			logger.Info("[SIGNAL] %s %s(%s): %.2f %s %.2f ✗ — ждём",
				cfg.TradingPair, spec.Type, spec.Timeframe, value, cmpSign(spec.Direction), spec.Threshold)
			return false
		}
		logger.Info("[SIGNAL] %s %s(%s): %.2f %s %.2f ✓",
			cfg.TradingPair, spec.Type, spec.Timeframe, value, cmpSign(spec.Direction), spec.Threshold)
	}

	logger.Info("[SIGNAL] %s: все %d индикатора(ов) дали сигнал на вход", cfg.TradingPair, len(cfg.Indicators))
	return true
}

// CheckSignal — предикат одного индикатора против порога.
func CheckSignal(direction models.Direction, value, threshold float64) bool {
	switch direction {
	case models.DirectionAbove:
		return value > threshold
	case models.DirectionBelow:
		return value < threshold
	default:
		return false
	}
}

func cmpSign(d models.Direction) string {
	if d == models.DirectionBelow {
		return "<"
	}
	return ">"
}
