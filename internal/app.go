package internal

import (
	"context"

	"shopware_reports/internal/cli"
	"shopware_reports/internal/config"
	"shopware_reports/internal/logging"
	"shopware_reports/internal/mail"
	"shopware_reports/internal/metrics"
	"shopware_reports/internal/report"
	"shopware_reports/internal/reports"
	"shopware_reports/internal/scheduler"
	"shopware_reports/internal/shopware"

	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Run() error {
	var runner *cli.Runner

	app := fx.New(
		logger.Module(),
		logger.WithFxDefaultLogger(),
		config.Module(),
		logging.Module(),
		shopware.Module(),
		metrics.Module(),
		report.Module(),
		mail.Module(),
		reports.Module(),
		scheduler.Module(),
		cli.Module(),
		fx.Populate(&runner),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(ctx)
	}()

	return runner.Execute()
}
