package report

import (
	"html/template"
	"time"

	"shopware_reports/internal/metrics"
	"shopware_reports/internal/shopware"
)

// ChartImage is a rendered PNG plot. Src is filled in by the caller:
// a data URI when the report is written to disk, a cid: reference when
// it travels inline in an email.
type ChartImage struct {
	Title   string
	Alt     string
	Caption string
	CID     string
	PNG     []byte
	Src     template.URL
}

type DailyReport struct {
	GeneratedAt  time.Time
	SalesDate    time.Time
	Appointments []metrics.AppointmentDay
	Sales        metrics.DaySales
	Payments     []metrics.PaymentTypeTotal
	LowMargin    []metrics.LowMarginService
}

type WeeklyReport struct {
	GeneratedAt  time.Time
	Appointments []metrics.AppointmentDay
	WeeklySales  []metrics.WeekSales
	WeeklyHours  []metrics.WeekHours
	TechHours    []metrics.TechnicianHours
	TechWeek     string
	Categories   []shopware.Category
	Charts       []ChartImage
}
