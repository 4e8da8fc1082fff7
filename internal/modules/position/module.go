package position

import (
	"go.uber.org/fx"

	exchange "botfleet/internal/modules/exchange/service"
	"botfleet/internal/modules/position/service"
)

func Module() fx.Option {
	return fx.Module("position",
		fx.Provide(
			func(c *exchange.Client) service.Trader { return c },
			service.NewManager,
		),
	)
}
