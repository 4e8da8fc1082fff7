package runner

import (
	"context"

	"go.uber.org/fx"

	health "botfleet/internal/modules/health/service"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			New,
		),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner, state *health.State) {
			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go r.Start(runCtx)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					state.SetReady(false)
					cancel()
					return nil
				},
			})
		}),
	)
}
