package indicator

import (
	"go.uber.org/fx"

	"botfleet/internal/modules/indicator/service"
)

func Module() fx.Option {
	return fx.Module("indicator",
		fx.Provide(
			service.NewEngine,
		),
	)
}
