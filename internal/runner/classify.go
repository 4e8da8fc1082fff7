package runner

import (
	"context"
	"net"
	"time"

	exchange "botfleet/internal/modules/exchange/service"

	"github.com/pkg/errors"
)

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNetwork
	KindExchange
	KindUnclassified
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNetwork:
		return "network"
	case KindExchange:
		return "exchange"
	default:
		return "unclassified"
	}
}

const (
	pollInterval     = 10 * time.Second
	transientBackoff = 60 * time.Second
)

// Classify раскладывает ошибку цикла: сеть и биржа — ожидаемые
// transient-сбои, всё остальное — unclassified
// и считается отдельно, чтобы не маскировать реальные дефекты.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if exchange.IsNetworkError(err) {
		return KindNetwork
	}
	if exchange.IsExchangeError(err) {
		return KindExchange
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	return KindUnclassified
}

// Backoff: transient-сбои ждут минуту, остальное — обычный темп цикла.
func Backoff(kind ErrorKind) time.Duration {
	switch kind {
	case KindNetwork, KindExchange:
		return transientBackoff
	default:
		return pollInterval
	}
}
