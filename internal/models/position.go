package models

import "time"

// Position живёт только в памяти процесса бота: рестарт всегда начинает с IDLE.
// Молча открытая на бирже позиция после рестарта ядром не сверяется.
type Position struct {
	EntryPrice float64
	Size       float64
	TPPrice    float64
	SLPrice    float64
	Open       bool
	OpenedAt   time.Time
}

type CloseReason string

const (
	CloseTakeProfit CloseReason = "TAKE_PROFIT"
	CloseStopLoss   CloseReason = "STOP_LOSS"
)
