package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"shopware_reports/internal/config"
	"shopware_reports/internal/shopware"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ShopAPI is the slice of the Shop-Ware client the aggregator consumes.
type ShopAPI interface {
	ListAppointments(ctx context.Context, updatedAfter time.Time) ([]shopware.Appointment, error)
	ListRepairOrders(ctx context.Context, filter shopware.RepairOrderFilter) ([]shopware.RepairOrder, error)
	ListPayments(ctx context.Context, updatedAfter time.Time) ([]shopware.Payment, error)
	ListCategories(ctx context.Context) ([]shopware.Category, error)
	GetStaffMember(ctx context.Context, id int64) (shopware.StaffMember, error)
	IsTire(ctx context.Context, inventoryItemID int64) (bool, error)
}

type ROBreakdown struct {
	Number    int
	Revenue   decimal.Decimal
	Cost      decimal.Decimal
	MarginPct decimal.Decimal
	Link      string
}

type DaySales struct {
	Date           time.Time
	Revenue        decimal.Decimal
	Cost           decimal.Decimal
	GrossProfit    decimal.Decimal
	MarginPct      decimal.Decimal
	PartsRevenue   decimal.Decimal
	PartsCost      decimal.Decimal
	PartsMarginPct decimal.Decimal
	TireRevenue    decimal.Decimal
	TireCost       decimal.Decimal
	TireMarginPct  decimal.Decimal
	CarCount       int
	AverageRO      decimal.Decimal
	RepairOrders   []ROBreakdown
}

type WeekSales struct {
	Label             string
	Start             time.Time
	End               time.Time
	Revenue           decimal.Decimal
	Cost              decimal.Decimal
	GrossProfit       decimal.Decimal
	MarginPct         decimal.Decimal
	AvgDailyMarginPct decimal.Decimal
	CarCount          int
	AverageRO         decimal.Decimal
}

type TechnicianHours struct {
	TechnicianID int64
	Name         string
	Hours        float64
}

type WeekHours struct {
	Label         string
	Start         time.Time
	End           time.Time
	TotalHours    float64
	EfficiencyPct float64
}

type AppointmentDay struct {
	Date      time.Time
	DayOfWeek string
	Count     int
}

type PaymentTypeTotal struct {
	PaymentType string
	Count       int
	Amount      decimal.Decimal
}

type LowMarginService struct {
	RONumber  int
	Service   string
	Revenue   decimal.Decimal
	Cost      decimal.Decimal
	MarginPct decimal.Decimal
	Link      string
}

// Aggregator folds freshly fetched Shop-Ware records into report
// summaries. It holds no state between calls; every method fetches its
// own data and returns a complete result or an error.
type Aggregator struct {
	api           ShopAPI
	shopBaseURL   string
	numWeeks      int
	baselineHours float64
	lowMarginPct  decimal.Decimal
	logger        *zap.Logger
	now           func() time.Time
}

func NewAggregator(cfg config.Config, api ShopAPI, logger *zap.Logger) *Aggregator {
	numWeeks := cfg.NumWeeks
	if numWeeks <= 0 {
		numWeeks = 8
	}
	baseline := cfg.LaborBaselineHours
	if baseline <= 0 {
		baseline = 40
	}
	return &Aggregator{
		api:           api,
		shopBaseURL:   cfg.ShopBaseURL,
		numWeeks:      numWeeks,
		baselineHours: baseline,
		lowMarginPct:  decimal.NewFromFloat(cfg.LowMarginThreshold),
		logger:        logger.Named("metrics"),
		now:           time.Now,
	}
}

// ClosedSalesOfDay aggregates every repair order closed on the given
// calendar day (UTC). A repair order whose calculation fails contributes
// zeros; a failed fetch aborts the whole day.
func (a *Aggregator) ClosedSalesOfDay(ctx context.Context, day time.Time) (DaySales, error) {
	start, end := dayBounds(day)

	ros, err := a.api.ListRepairOrders(ctx, shopware.RepairOrderFilter{
		ClosedAfter:  start,
		ClosedBefore: end,
	})
	if err != nil {
		return DaySales{}, fmt.Errorf("closed sales of %s: %w", start.Format("2006-01-02"), err)
	}

	tires := shopware.NewTireCache(a.api)
	summary := DaySales{Date: start}

	for _, ro := range ros {
		fin, err := CalculateRepairOrder(ctx, ro, tires)
		if err != nil {
			a.logger.Warn("repair order calculation failed, counting as zero",
				zap.Int("ro_number", ro.Number),
				zap.Error(err),
			)
			fin = Financials{}
		}

		summary.Revenue = summary.Revenue.Add(fin.Revenue)
		summary.Cost = summary.Cost.Add(fin.Cost)
		summary.PartsRevenue = summary.PartsRevenue.Add(fin.PartsRevenue)
		summary.PartsCost = summary.PartsCost.Add(fin.PartsCost)
		summary.TireRevenue = summary.TireRevenue.Add(fin.TireRevenue)
		summary.TireCost = summary.TireCost.Add(fin.TireCost)

		summary.RepairOrders = append(summary.RepairOrders, ROBreakdown{
			Number:    ro.Number,
			Revenue:   fin.Revenue,
			Cost:      fin.Cost,
			MarginPct: MarginPercent(fin.Revenue, fin.Cost),
			Link:      a.workOrderLink(ro.ID),
		})
	}

	summary.CarCount = len(ros)
	summary.GrossProfit = summary.Revenue.Sub(summary.Cost)
	summary.MarginPct = MarginPercent(summary.Revenue, summary.Cost)
	summary.PartsMarginPct = MarginPercent(summary.PartsRevenue, summary.PartsCost)
	summary.TireMarginPct = MarginPercent(summary.TireRevenue, summary.TireCost)
	if summary.CarCount > 0 {
		summary.AverageRO = summary.Revenue.Div(decimal.NewFromInt(int64(summary.CarCount)))
	}

	return summary, nil
}

// WeeklyClosedSales aggregates the trailing 7-day windows ending today,
// seven days ago, and so on. Windows are built most-recent-first and
// emitted oldest-first.
//
// AvgDailyMarginPct divides by the count of days whose margin was
// positive, not by seven; days with no closed orders are excluded from
// that average on purpose.
func (a *Aggregator) WeeklyClosedSales(ctx context.Context) ([]WeekSales, error) {
	weeks := make([]WeekSales, 0, a.numWeeks)

	for _, window := range a.trailingWeeks() {
		week := WeekSales{
			Label: weekLabel(window.start, window.end),
			Start: window.start,
			End:   window.end,
		}

		marginDays := 0
		marginSum := decimal.Zero

		for day := window.start; !day.After(window.end); day = day.AddDate(0, 0, 1) {
			daySales, err := a.ClosedSalesOfDay(ctx, day)
			if err != nil {
				return nil, err
			}
			week.Revenue = week.Revenue.Add(daySales.Revenue)
			week.Cost = week.Cost.Add(daySales.Cost)
			week.CarCount += daySales.CarCount
			if daySales.MarginPct.GreaterThan(decimal.Zero) {
				marginDays++
				marginSum = marginSum.Add(daySales.MarginPct)
			}
		}

		week.GrossProfit = week.Revenue.Sub(week.Cost)
		week.MarginPct = MarginPercent(week.Revenue, week.Cost)
		if marginDays > 0 {
			week.AvgDailyMarginPct = marginSum.Div(decimal.NewFromInt(int64(marginDays)))
		}
		if week.CarCount > 0 {
			week.AverageRO = week.Revenue.Div(decimal.NewFromInt(int64(week.CarCount)))
		}

		weeks = append(weeks, week)
	}

	reverseWeeks(weeks)
	return weeks, nil
}

// TechnicianBillableHours sums labor hours per technician across every
// repair order closed in [start, end]. Names are resolved once per
// unique technician; a failed lookup keeps the hours under a
// placeholder name.
func (a *Aggregator) TechnicianBillableHours(ctx context.Context, start, end time.Time) ([]TechnicianHours, error) {
	ros, err := a.api.ListRepairOrders(ctx, shopware.RepairOrderFilter{
		ClosedAfter:  start,
		ClosedBefore: end,
	})
	if err != nil {
		return nil, fmt.Errorf("technician hours %s: %w", weekLabel(start, end), err)
	}

	hoursByTech := make(map[int64]float64)
	for _, ro := range ros {
		for _, svc := range ro.Services {
			for _, labor := range svc.Labors {
				if labor.TechnicianID == 0 || labor.Hours == 0 {
					continue
				}
				hoursByTech[labor.TechnicianID] += labor.Hours
			}
		}
	}

	result := make([]TechnicianHours, 0, len(hoursByTech))
	for techID, hours := range hoursByTech {
		result = append(result, TechnicianHours{
			TechnicianID: techID,
			Name:         a.resolveTechnicianName(ctx, techID),
			Hours:        hours,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Hours != result[j].Hours {
			return result[i].Hours > result[j].Hours
		}
		return result[i].TechnicianID < result[j].TechnicianID
	})

	return result, nil
}

// WeeklyBillableHours totals technician hours per trailing week and
// expresses them against the configured baseline, oldest week first.
func (a *Aggregator) WeeklyBillableHours(ctx context.Context) ([]WeekHours, error) {
	weeks := make([]WeekHours, 0, a.numWeeks)

	for _, window := range a.trailingWeeks() {
		start, _ := dayBounds(window.start)
		_, end := dayBounds(window.end)

		techHours, err := a.TechnicianBillableHours(ctx, start, end)
		if err != nil {
			return nil, err
		}

		total := 0.0
		for _, th := range techHours {
			total += th.Hours
		}

		weeks = append(weeks, WeekHours{
			Label:         weekLabel(window.start, window.end),
			Start:         window.start,
			End:           window.end,
			TotalHours:    total,
			EfficiencyPct: total / a.baselineHours * 100,
		})
	}

	reverseWeekHours(weeks)
	return weeks, nil
}

// UpcomingAppointments counts appointments per upcoming weekday,
// starting today, until numWeekdays weekday rows exist. Weekends are
// skipped entirely; a weekday with no appointments still gets a zero
// row. Source data is anything updated in the last 30 days.
func (a *Aggregator) UpcomingAppointments(ctx context.Context, numWeekdays int) ([]AppointmentDay, error) {
	today := dateOnly(a.now())
	counts, err := a.appointmentCounts(ctx, today, today.AddDate(0, 0, 13))
	if err != nil {
		return nil, err
	}

	days := make([]AppointmentDay, 0, numWeekdays)
	for day := today; len(days) < numWeekdays; day = day.AddDate(0, 0, 1) {
		if !isWeekday(day) {
			continue
		}
		days = append(days, AppointmentDay{
			Date:      day,
			DayOfWeek: day.Weekday().String(),
			Count:     counts[day],
		})
	}
	return days, nil
}

// AppointmentsNextTwoWeeks lists weekday appointment counts for the next
// 14 days, today inclusive, end exclusive.
func (a *Aggregator) AppointmentsNextTwoWeeks(ctx context.Context) ([]AppointmentDay, error) {
	today := dateOnly(a.now())
	endDate := today.AddDate(0, 0, 14)

	counts, err := a.appointmentCounts(ctx, today, endDate.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}

	var days []AppointmentDay
	for day := today; day.Before(endDate); day = day.AddDate(0, 0, 1) {
		if !isWeekday(day) {
			continue
		}
		days = append(days, AppointmentDay{
			Date:      day,
			DayOfWeek: day.Weekday().String(),
			Count:     counts[day],
		})
	}
	return days, nil
}

// PaymentsByType groups payments updated since the given time by
// payment type, largest totals first.
func (a *Aggregator) PaymentsByType(ctx context.Context, updatedAfter time.Time) ([]PaymentTypeTotal, error) {
	payments, err := a.api.ListPayments(ctx, updatedAfter)
	if err != nil {
		return nil, fmt.Errorf("payments: %w", err)
	}

	centsByType := make(map[string]int64)
	countByType := make(map[string]int)
	for _, p := range payments {
		paymentType := p.PaymentType
		if paymentType == "" {
			paymentType = "Unknown"
		}
		centsByType[paymentType] += p.AmountCents
		countByType[paymentType]++
	}

	totals := make([]PaymentTypeTotal, 0, len(centsByType))
	for paymentType, cents := range centsByType {
		totals = append(totals, PaymentTypeTotal{
			PaymentType: paymentType,
			Count:       countByType[paymentType],
			Amount:      decimal.New(cents, -2),
		})
	}

	sort.Slice(totals, func(i, j int) bool {
		if !totals[i].Amount.Equal(totals[j].Amount) {
			return totals[i].Amount.GreaterThan(totals[j].Amount)
		}
		return totals[i].PaymentType < totals[j].PaymentType
	})

	return totals, nil
}

// Categories lists the shop's service categories sorted by name.
func (a *Aggregator) Categories(ctx context.Context) ([]shopware.Category, error) {
	categories, err := a.api.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

// LowMarginServices finds services closed in [start, end] whose margin
// fell below the configured threshold. RO-level fees and discounts are
// not attributed to individual services.
func (a *Aggregator) LowMarginServices(ctx context.Context, start, end time.Time) ([]LowMarginService, error) {
	ros, err := a.api.ListRepairOrders(ctx, shopware.RepairOrderFilter{
		ClosedAfter:  start,
		ClosedBefore: end,
	})
	if err != nil {
		return nil, fmt.Errorf("low margin services: %w", err)
	}

	tires := shopware.NewTireCache(a.api)
	var flagged []LowMarginService

	for _, ro := range ros {
		for _, svc := range ro.Services {
			totals, err := calculateService(ctx, svc, tires)
			if err != nil {
				a.logger.Warn("service calculation failed, skipping",
					zap.Int("ro_number", ro.Number),
					zap.String("service", svc.Title),
					zap.Error(err),
				)
				continue
			}

			fin := totals.financials()
			if !fin.Revenue.GreaterThan(decimal.Zero) {
				continue
			}
			margin := MarginPercent(fin.Revenue, fin.Cost)
			if margin.GreaterThanOrEqual(a.lowMarginPct) {
				continue
			}

			flagged = append(flagged, LowMarginService{
				RONumber:  ro.Number,
				Service:   svc.Title,
				Revenue:   fin.Revenue,
				Cost:      fin.Cost,
				MarginPct: margin,
				Link:      a.workOrderLink(ro.ID),
			})
		}
	}

	sort.Slice(flagged, func(i, j int) bool {
		return flagged[i].MarginPct.LessThan(flagged[j].MarginPct)
	})

	return flagged, nil
}

func (a *Aggregator) appointmentCounts(ctx context.Context, first, last time.Time) (map[time.Time]int, error) {
	updatedAfter := a.now().AddDate(0, 0, -30)
	appointments, err := a.api.ListAppointments(ctx, updatedAfter)
	if err != nil {
		return nil, fmt.Errorf("appointments: %w", err)
	}

	counts := make(map[time.Time]int)
	for _, appt := range appointments {
		day := dateOnly(appt.StartAt.Time)
		if day.Before(first) || day.After(last) {
			continue
		}
		if !isWeekday(day) {
			continue
		}
		counts[day]++
	}
	return counts, nil
}

func (a *Aggregator) resolveTechnicianName(ctx context.Context, techID int64) string {
	member, err := a.api.GetStaffMember(ctx, techID)
	if err != nil {
		a.logger.Warn("staff lookup failed, using placeholder",
			zap.Int64("technician_id", techID),
			zap.Error(err),
		)
		return fmt.Sprintf("Unknown (ID: %d)", techID)
	}
	return fmt.Sprintf("%s %s", member.FirstName, member.LastName)
}

func (a *Aggregator) workOrderLink(roID int64) string {
	if a.shopBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/work_orders/%d", a.shopBaseURL, roID)
}

type weekWindow struct {
	start time.Time
	end   time.Time
}

// trailingWeeks builds numWeeks contiguous 7-day windows ending today,
// most recent first.
func (a *Aggregator) trailingWeeks() []weekWindow {
	today := dateOnly(a.now())
	windows := make([]weekWindow, 0, a.numWeeks)
	for i := 0; i < a.numWeeks; i++ {
		end := today.AddDate(0, 0, -i*7)
		windows = append(windows, weekWindow{start: end.AddDate(0, 0, -6), end: end})
	}
	return windows
}

func weekLabel(start, end time.Time) string {
	return start.Format("01/02") + " - " + end.Format("01/02")
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Second)
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func reverseWeeks(weeks []WeekSales) {
	for i, j := 0, len(weeks)-1; i < j; i, j = i+1, j-1 {
		weeks[i], weeks[j] = weeks[j], weeks[i]
	}
}

func reverseWeekHours(weeks []WeekHours) {
	for i, j := 0, len(weeks)-1; i < j; i, j = i+1, j-1 {
		weeks[i], weeks[j] = weeks[j], weeks[i]
	}
}
