package service

import (
	"math"

	"botfleet/internal/models"
)

// minExtra — сколько свечей сверх периода нужно, чтобы значение успело "устаканиться".
const minExtra = 10

// CalcFunc считает последнее значение индикатора по серии свечей.
// ok=false означает "данных пока нет" — это не ошибка, цикл просто ждёт.
type CalcFunc func(candles []models.Candle, period int) (float64, bool)

type Engine struct {
	calcs map[models.IndicatorType]CalcFunc
}

func NewEngine() *Engine {
	return &Engine{
		calcs: map[models.IndicatorType]CalcFunc{
			models.IndicatorRSI: calcRSI,
			models.IndicatorCCI: calcCCI,
		},
	}
}

// Compute диспатчит по закрытой таблице типов. Неизвестный тип = unavailable.
func (e *Engine) Compute(typ models.IndicatorType, candles []models.Candle, period int) (float64, bool) {
	calc, ok := e.calcs[typ]
	if !ok {
		return 0, false
	}
	if period <= 0 || len(candles) < period+minExtra {
		return 0, false
	}
	v, ok := calc(candles, period)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return round2(v), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
