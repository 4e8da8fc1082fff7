package runner

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	exchange "botfleet/internal/modules/exchange/service"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, KindNone, Classify(nil))

	netErr := &exchange.NetworkError{Err: errors.New("dial tcp: timeout")}
	assert.Equal(t, KindNetwork, Classify(netErr))
	// классификация видна и сквозь обёртки
	assert.Equal(t, KindNetwork, Classify(errors.Wrap(netErr, "fetch ticker")))

	exErr := &exchange.ExchangeError{RetCode: 10006, RetMsg: "rate limit"}
	assert.Equal(t, KindExchange, Classify(exErr))
	assert.Equal(t, KindExchange, Classify(errors.Wrap(exErr, "create order")))

	assert.Equal(t, KindNetwork, Classify(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, KindNetwork, Classify(context.DeadlineExceeded))

	assert.Equal(t, KindUnclassified, Classify(errors.New("index out of range")))
}

func TestBackoff(t *testing.T) {
	// transient-сбои ждут минуту, остальное — обычный темп
	assert.Equal(t, 60*time.Second, Backoff(KindNetwork))
	assert.Equal(t, 60*time.Second, Backoff(KindExchange))
	assert.Equal(t, 10*time.Second, Backoff(KindUnclassified))
	assert.Equal(t, 10*time.Second, Backoff(KindNone))
}
