package signal

import (
	"go.uber.org/fx"

	exchange "botfleet/internal/modules/exchange/service"
	"botfleet/internal/modules/signal/service"
)

func Module() fx.Option {
	return fx.Module("signal",
		fx.Provide(
			func(c *exchange.Client) service.MarketData { return c },
			service.NewAggregator,
		),
	)
}
