package scheduler

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module(
		"scheduler",
		fx.Provide(New),
	)
}
