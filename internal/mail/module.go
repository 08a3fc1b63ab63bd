package mail

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module(
		"mail",
		fx.Provide(NewSender),
	)
}
