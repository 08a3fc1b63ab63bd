package shopware

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module(
		"shopware",
		fx.Provide(NewClient),
	)
}
