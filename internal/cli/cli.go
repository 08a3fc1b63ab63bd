package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shopware_reports/internal/mail"
	"shopware_reports/internal/reports"
	"shopware_reports/internal/scheduler"
	"shopware_reports/internal/shopware"

	"go.uber.org/zap"
)

type Runner struct {
	daily  *reports.Daily
	weekly *reports.Weekly
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

func NewRunner(daily *reports.Daily, weekly *reports.Weekly, sched *scheduler.Scheduler, logger *zap.Logger) *Runner {
	return &Runner{
		daily:  daily,
		weekly: weekly,
		sched:  sched,
		logger: logger.Named("cli"),
	}
}

func (r *Runner) Execute() error {
	var (
		reportName string
		serve      bool
		noEmail    bool
		outDir     string
	)

	fs := flag.NewFlagSet("shopware-reports", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n", fs.Name())
		fs.PrintDefaults()
	}

	fs.StringVar(&reportName, "report", "daily", "Report to generate: daily, weekly or both")
	fs.BoolVar(&serve, "serve", false, "Run on the built-in schedule instead of once")
	fs.BoolVar(&noEmail, "no-email", false, "Write the HTML report without emailing it")
	fs.StringVar(&outDir, "out", "", "Directory for the HTML report (overrides report_dir)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			fs.Usage()
			return nil
		}
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if serve {
		if err := r.sched.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		r.sched.Stop()
		return nil
	}

	opts := reports.Options{SkipEmail: noEmail, OutDir: outDir}

	switch reportName {
	case "daily":
		return r.friendly(r.daily.Generate(ctx, opts))
	case "weekly":
		return r.friendly(r.weekly.Generate(ctx, opts))
	case "both":
		if err := r.friendly(r.daily.Generate(ctx, opts)); err != nil {
			return err
		}
		return r.friendly(r.weekly.Generate(ctx, opts))
	default:
		return fmt.Errorf("unknown report %q: use daily, weekly or both", reportName)
	}
}

func (r *Runner) friendly(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shopware.ErrMissingCredentials):
		return errors.New("missing API credentials: set API_PARTNER_ID and API_SECRET")
	case errors.Is(err, shopware.ErrMissingTenantID):
		return errors.New("missing tenant: set TENANT_ID")
	case errors.Is(err, shopware.ErrUnauthorized):
		return errors.New("API rejected the credentials: check API_PARTNER_ID and API_SECRET")
	case errors.Is(err, mail.ErrNotConfigured):
		return errors.New("smtp is not configured: set SMTP_HOST, SENDER_EMAIL and RECIPIENT_EMAIL, or pass -no-email")
	default:
		return err
	}
}
