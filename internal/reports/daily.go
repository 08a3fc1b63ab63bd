package reports

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shopware_reports/internal/config"
	"shopware_reports/internal/mail"
	"shopware_reports/internal/metrics"
	"shopware_reports/internal/report"

	"go.uber.org/zap"
)

// Options tweaks a single generation run.
type Options struct {
	SkipEmail bool
	OutDir    string
}

// Daily builds and distributes the daily report: upcoming weekday
// appointments, one day of closed sales with per-RO drill-down,
// low-margin services and payment totals for that day.
//
// Closed sales are reported for three days ago, giving late-settling
// repair orders time to close before they are counted.
type Daily struct {
	agg       *metrics.Aggregator
	renderer  *report.Renderer
	sender    *mail.Sender
	reportDir string
	logger    *zap.Logger
	now       func() time.Time
}

func NewDaily(cfg config.Config, agg *metrics.Aggregator, renderer *report.Renderer, sender *mail.Sender, logger *zap.Logger) *Daily {
	return &Daily{
		agg:       agg,
		renderer:  renderer,
		sender:    sender,
		reportDir: cfg.ReportDir,
		logger:    logger.Named("daily"),
		now:       time.Now,
	}
}

func (d *Daily) Generate(ctx context.Context, opts Options) error {
	now := d.now().UTC()
	salesDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -3)
	dayStart := salesDate
	dayEnd := dayStart.Add(24*time.Hour - time.Second)

	sales, err := d.agg.ClosedSalesOfDay(ctx, salesDate)
	if err != nil {
		return fmt.Errorf("daily report: %w", err)
	}

	model := &report.DailyReport{
		GeneratedAt: now,
		SalesDate:   salesDate,
		Sales:       sales,
	}

	// Secondary sections degrade to empty so the report still renders.
	if appointments, err := d.agg.UpcomingAppointments(ctx, 7); err != nil {
		d.logger.Warn("appointments section skipped", zap.Error(err))
	} else {
		model.Appointments = appointments
	}

	if lowMargin, err := d.agg.LowMarginServices(ctx, dayStart, dayEnd); err != nil {
		d.logger.Warn("low margin section skipped", zap.Error(err))
	} else {
		model.LowMargin = lowMargin
	}

	if payments, err := d.agg.PaymentsByType(ctx, dayStart); err != nil {
		d.logger.Warn("payments section skipped", zap.Error(err))
	} else {
		model.Payments = payments
	}

	var buf bytes.Buffer
	if err := d.renderer.RenderDaily(&buf, model); err != nil {
		return fmt.Errorf("daily report: %w", err)
	}
	html := buf.String()

	if err := saveHTML(reportPath(d.reportDir, opts, "daily_report", now), html, d.logger); err != nil {
		return err
	}

	if opts.SkipEmail {
		return nil
	}
	return d.sender.Send("Shop Ware Daily Report", html, nil)
}

func reportPath(dir string, opts Options, prefix string, now time.Time) string {
	if opts.OutDir != "" {
		dir = opts.OutDir
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.html", prefix, now.Format("2006-01-02")))
}

func saveHTML(path, html string, logger *zap.Logger) error {
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	logger.Info("report saved", zap.String("path", path))
	return nil
}
