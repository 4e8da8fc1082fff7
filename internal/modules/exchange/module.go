package exchange

import (
	"go.uber.org/fx"

	"botfleet/internal/modules/exchange/service"
)

func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(
			service.NewClient,
		),
	)
}
