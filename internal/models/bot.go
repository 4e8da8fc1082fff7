package models

import "fmt"

type Strategy string

const (
	StrategyLong  Strategy = "long"
	StrategyShort Strategy = "short"
)

type IndicatorType string

const (
	IndicatorRSI IndicatorType = "RSI"
	IndicatorCCI IndicatorType = "CCI"
)

type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// IndicatorSpec — одно условие входа: индикатор на своём таймфрейме против порога.
type IndicatorSpec struct {
	Type      IndicatorType `json:"type"`
	Timeframe Timeframe     `json:"timeframe"`
	Period    int           `json:"period"`
	Threshold float64       `json:"threshold"`
	Direction Direction     `json:"direction"`
}

// BotConfig — иммутабельная конфигурация одного бота на весь запуск.
// Валидацию диапазонов делает API-слой бэкенда, здесь только sanity-check.
type BotConfig struct {
	TradingPair       string          `json:"trading_pair"`
	Strategy          Strategy        `json:"strategy"`
	Leverage          int             `json:"leverage"`
	Deposit           float64         `json:"deposit"`
	TakeProfitPercent float64         `json:"take_profit_percent"`
	StopLossPercent   float64         `json:"stop_loss_percent"`
	Indicators        []IndicatorSpec `json:"indicators"`
}

func (c *BotConfig) Validate() error {
	if c.TradingPair == "" {
		return fmt.Errorf("trading_pair is empty")
	}
	if c.Strategy != StrategyLong && c.Strategy != StrategyShort {
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	if c.Leverage <= 0 {
		return fmt.Errorf("leverage must be positive, got %d", c.Leverage)
	}
	if c.Deposit <= 0 {
		return fmt.Errorf("deposit must be positive, got %v", c.Deposit)
	}
	if c.TakeProfitPercent <= 0 || c.StopLossPercent <= 0 {
		return fmt.Errorf("tp/sl percents must be positive")
	}
	if len(c.Indicators) == 0 {
		return fmt.Errorf("indicator set is empty")
	}
	if len(c.Indicators) > 5 {
		return fmt.Errorf("too many indicators: %d (max 5)", len(c.Indicators))
	}
	for i, ind := range c.Indicators {
		if ind.Type != IndicatorRSI && ind.Type != IndicatorCCI {
			return fmt.Errorf("indicator[%d]: unknown type %q", i, ind.Type)
		}
		if !ind.Timeframe.Valid() {
			return fmt.Errorf("indicator[%d]: unknown timeframe %q", i, ind.Timeframe)
		}
		if ind.Period <= 0 {
			return fmt.Errorf("indicator[%d]: period must be positive", i)
		}
		if ind.Direction != DirectionAbove && ind.Direction != DirectionBelow {
			return fmt.Errorf("indicator[%d]: unknown direction %q", i, ind.Direction)
		}
	}
	return nil
}
