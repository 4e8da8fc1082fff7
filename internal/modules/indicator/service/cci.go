package service

import (
	"math"

	"botfleet/internal/models"
)

// calcCCI — Commodity Channel Index по типичной цене (H+L+C)/3
// с нормировкой на среднее отклонение и константу Ламберта 0.015.
func calcCCI(candles []models.Candle, period int) (float64, bool) {
	tp := make([]float64, len(candles))
	for i, c := range candles {
		tp[i] = (c.High + c.Low + c.Close) / 3.0
	}

	window := tp[len(tp)-period:]

	sma := 0.0
	for _, v := range window {
		sma += v
	}
	sma /= float64(period)

	meanDev := 0.0
	for _, v := range window {
		meanDev += math.Abs(v - sma)
	}
	meanDev /= float64(period)

	if meanDev == 0 {
		// плоская серия — CCI не определён
		return 0, false
	}

	last := window[len(window)-1]
	return (last - sma) / (0.015 * meanDev), true
}
