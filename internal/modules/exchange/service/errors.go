package service

import (
	"fmt"

	"github.com/pkg/errors"
)

// NetworkError — транспортный сбой: нет связи, таймаут, оборванный коннект.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ExchangeError — биржа ответила, но отказала: плохой запрос, rate limit, reject.
type ExchangeError struct {
	HTTPStatus int
	RetCode    int64
	RetMsg     string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange error: http=%d retCode=%d retMsg=%q", e.HTTPStatus, e.RetCode, e.RetMsg)
}

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsExchangeError(err error) bool {
	var ee *ExchangeError
	return errors.As(err, &ee)
}
