package config

import (
	"fmt"
	"time"

	coreconfig "github.com/go-core-fx/config"
)

type Config struct {
	APIBaseURL   string `koanf:"api_base_url"`
	APIPartnerID string `koanf:"api_partner_id"`
	APISecret    string `koanf:"api_secret"`
	TenantID     string `koanf:"tenant_id"`
	ShopBaseURL  string `koanf:"shop_base_url"`

	Timeout time.Duration `koanf:"timeout"`
	PerPage int           `koanf:"per_page"`

	NumWeeks           int     `koanf:"num_weeks"`
	LaborBaselineHours float64 `koanf:"labor_baseline_hours"`
	LowMarginThreshold float64 `koanf:"low_margin_threshold_pct"`

	SMTPHost       string `koanf:"smtp_host"`
	SMTPPort       int    `koanf:"smtp_port"`
	SMTPUsername   string `koanf:"smtp_username"`
	SMTPPassword   string `koanf:"smtp_password"`
	SenderName     string `koanf:"sender_name"`
	SenderEmail    string `koanf:"sender_email"`
	RecipientEmail string `koanf:"recipient_email"`

	ReportDir string `koanf:"report_dir"`
	LogFile   string `koanf:"log_file"`
	Debug     bool   `koanf:"debug"`
}

func New() (Config, error) {
	cfg := Config{
		APIBaseURL:         "https://api.shop-ware.com",
		Timeout:            30 * time.Second,
		PerPage:            100,
		NumWeeks:           8,
		LaborBaselineHours: 40,
		LowMarginThreshold: 40,
		SMTPPort:           587,
		ReportDir:          ".",
		LogFile:            "./shopware-reports.log",
		Debug:              false,
	}

	if err := coreconfig.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}
