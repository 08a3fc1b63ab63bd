package metrics

import (
	"shopware_reports/internal/config"
	"shopware_reports/internal/shopware"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"metrics",
		fx.Provide(func(cfg config.Config, client *shopware.Client, logger *zap.Logger) *Aggregator {
			return NewAggregator(cfg, client, logger)
		}),
	)
}
