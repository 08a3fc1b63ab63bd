package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"shopware_reports/internal/config"
	"shopware_reports/internal/mail"
	"shopware_reports/internal/metrics"
	"shopware_reports/internal/report"

	"go.uber.org/zap"
)

// Weekly builds and distributes the weekly report: two weeks of upcoming
// appointments, eight trailing weeks of closed sales and billable hours
// with line/bar charts, the last week's per-technician hours, and the
// shop's category list.
type Weekly struct {
	agg       *metrics.Aggregator
	renderer  *report.Renderer
	sender    *mail.Sender
	reportDir string
	logger    *zap.Logger
	now       func() time.Time
}

func NewWeekly(cfg config.Config, agg *metrics.Aggregator, renderer *report.Renderer, sender *mail.Sender, logger *zap.Logger) *Weekly {
	return &Weekly{
		agg:       agg,
		renderer:  renderer,
		sender:    sender,
		reportDir: cfg.ReportDir,
		logger:    logger.Named("weekly"),
		now:       time.Now,
	}
}

func (w *Weekly) Generate(ctx context.Context, opts Options) error {
	now := w.now().UTC()

	weeklySales, err := w.agg.WeeklyClosedSales(ctx)
	if err != nil {
		return fmt.Errorf("weekly report: %w", err)
	}

	model := &report.WeeklyReport{
		GeneratedAt: now,
		WeeklySales: weeklySales,
	}

	if appointments, err := w.agg.AppointmentsNextTwoWeeks(ctx); err != nil {
		w.logger.Warn("appointments section skipped", zap.Error(err))
	} else {
		model.Appointments = appointments
	}

	if weeklyHours, err := w.agg.WeeklyBillableHours(ctx); err != nil {
		w.logger.Warn("billable hours section skipped", zap.Error(err))
	} else {
		model.WeeklyHours = weeklyHours
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := today.AddDate(0, 0, -6)
	weekEnd := today.Add(24*time.Hour - time.Second)
	if techHours, err := w.agg.TechnicianBillableHours(ctx, weekStart, weekEnd); err != nil {
		w.logger.Warn("technician hours section skipped", zap.Error(err))
	} else {
		model.TechHours = techHours
		model.TechWeek = weekStart.Format("01/02") + " - " + today.Format("01/02")
	}

	if categories, err := w.agg.Categories(ctx); err != nil {
		w.logger.Warn("categories section skipped", zap.Error(err))
	} else {
		model.Categories = categories
	}

	model.Charts = w.buildCharts(model.WeeklySales, model.WeeklyHours)

	// File copy carries the charts as data URIs; the email references
	// its inline attachments by cid instead.
	fileHTML, err := w.render(model, false)
	if err != nil {
		return fmt.Errorf("weekly report: %w", err)
	}
	if err := saveHTML(reportPath(w.reportDir, opts, "weekly_report", now), fileHTML, w.logger); err != nil {
		return err
	}

	if opts.SkipEmail {
		return nil
	}

	emailHTML, err := w.render(model, true)
	if err != nil {
		return fmt.Errorf("weekly report: %w", err)
	}
	return w.sender.Send("Shop Ware Weekly Report", emailHTML, model.Charts)
}

func (w *Weekly) buildCharts(weeklySales []metrics.WeekSales, weeklyHours []metrics.WeekHours) []report.ChartImage {
	var charts []report.ChartImage

	if len(weeklySales) > 0 {
		if revenueChart, err := report.WeeklyRevenueChart(weeklySales); err != nil {
			w.logger.Warn("revenue chart skipped", zap.Error(err))
		} else {
			charts = append(charts, revenueChart)
		}
		if profitChart, err := report.WeeklyGrossProfitChart(weeklySales); err != nil {
			w.logger.Warn("gross profit chart skipped", zap.Error(err))
		} else {
			charts = append(charts, profitChart)
		}
	}

	if len(weeklyHours) > 0 {
		if hoursChart, err := report.WeeklyHoursChart(weeklyHours); err != nil {
			w.logger.Warn("billable hours chart skipped", zap.Error(err))
		} else {
			charts = append(charts, hoursChart)
		}
	}

	return charts
}

func (w *Weekly) render(model *report.WeeklyReport, forEmail bool) (string, error) {
	for i := range model.Charts {
		if forEmail {
			model.Charts[i].Src = model.Charts[i].CIDRef()
		} else {
			model.Charts[i].Src = model.Charts[i].DataURI()
		}
	}

	var buf bytes.Buffer
	if err := w.renderer.RenderWeekly(&buf, model); err != nil {
		return "", err
	}
	return buf.String(), nil
}
