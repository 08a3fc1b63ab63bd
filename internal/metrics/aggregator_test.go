package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"shopware_reports/internal/config"
	"shopware_reports/internal/shopware"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAPI struct {
	repairOrders []shopware.RepairOrder
	appointments []shopware.Appointment
	payments     []shopware.Payment
	categories   []shopware.Category
	staff        map[int64]shopware.StaffMember
	tires        map[int64]bool
	tireErrs     map[int64]error
	roErr        error

	staffCalls int
	tireCalls  int
}

func (f *fakeAPI) ListAppointments(_ context.Context, _ time.Time) ([]shopware.Appointment, error) {
	return f.appointments, nil
}

func (f *fakeAPI) ListRepairOrders(_ context.Context, filter shopware.RepairOrderFilter) ([]shopware.RepairOrder, error) {
	if f.roErr != nil {
		return nil, f.roErr
	}
	var matched []shopware.RepairOrder
	for _, ro := range f.repairOrders {
		if ro.ClosedAt == nil {
			continue
		}
		closed := ro.ClosedAt.Time
		if !filter.ClosedAfter.IsZero() && closed.Before(filter.ClosedAfter) {
			continue
		}
		if !filter.ClosedBefore.IsZero() && closed.After(filter.ClosedBefore) {
			continue
		}
		matched = append(matched, ro)
	}
	return matched, nil
}

func (f *fakeAPI) ListPayments(_ context.Context, _ time.Time) ([]shopware.Payment, error) {
	return f.payments, nil
}

func (f *fakeAPI) ListCategories(_ context.Context) ([]shopware.Category, error) {
	return f.categories, nil
}

func (f *fakeAPI) GetStaffMember(_ context.Context, id int64) (shopware.StaffMember, error) {
	f.staffCalls++
	member, ok := f.staff[id]
	if !ok {
		return shopware.StaffMember{}, errors.New("staff member not found")
	}
	return member, nil
}

func (f *fakeAPI) IsTire(_ context.Context, id int64) (bool, error) {
	f.tireCalls++
	if err, ok := f.tireErrs[id]; ok {
		return false, err
	}
	return f.tires[id], nil
}

func newTestAggregator(api ShopAPI, numWeeks int) *Aggregator {
	cfg := config.Config{
		ShopBaseURL:        "https://shop.example.com",
		NumWeeks:           numWeeks,
		LaborBaselineHours: 40,
		LowMarginThreshold: 40,
	}
	agg := NewAggregator(cfg, api, zap.NewNop())
	// 2026-08-31 is a Monday.
	agg.now = func() time.Time {
		return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	}
	return agg
}

func closedAt(t time.Time) *shopware.DateTime {
	return &shopware.DateTime{Time: t}
}

// partOrder builds a repair order closed on the given day with a single
// part line.
func partOrder(id int64, number int, day time.Time, priceCents, costCents int64) shopware.RepairOrder {
	return shopware.RepairOrder{
		ID:       id,
		Number:   number,
		ClosedAt: closedAt(day.Add(10 * time.Hour)),
		Services: []shopware.Service{{
			Parts: []shopware.Part{{
				InventoryItemID:  id,
				QuotedPriceCents: priceCents,
				CostCents:        costCents,
				Quantity:         1,
			}},
		}},
	}
}

func TestClosedSalesOfDay(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	otherDay := day.AddDate(0, 0, -1)

	api := &fakeAPI{
		repairOrders: []shopware.RepairOrder{
			partOrder(1, 101, day, 10000, 6000),
			partOrder(2, 102, day, 5000, 1000),
			partOrder(3, 103, otherDay, 99999, 1),
		},
		tires: map[int64]bool{2: true},
	}
	agg := newTestAggregator(api, 1)

	sales, err := agg.ClosedSalesOfDay(context.Background(), day)
	require.NoError(t, err)

	assertMoney(t, "150.00", sales.Revenue)
	assertMoney(t, "70.00", sales.Cost)
	assertMoney(t, "80.00", sales.GrossProfit)
	assertMoney(t, "100.00", sales.PartsRevenue)
	assertMoney(t, "50.00", sales.TireRevenue)
	assert.Equal(t, 2, sales.CarCount)
	assertMoney(t, "75.00", sales.AverageRO)

	require.Len(t, sales.RepairOrders, 2)
	assert.Equal(t, 101, sales.RepairOrders[0].Number)
	assert.Equal(t, "https://shop.example.com/work_orders/1", sales.RepairOrders[0].Link)
	assertMoney(t, "40", sales.RepairOrders[0].MarginPct)
}

func TestClosedSalesOfDayFailedOrderCountsAsZero(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	api := &fakeAPI{
		repairOrders: []shopware.RepairOrder{
			partOrder(1, 101, day, 10000, 6000),
			partOrder(2, 102, day, 5000, 1000),
		},
		tireErrs: map[int64]error{2: errors.New("inventory down")},
	}
	agg := newTestAggregator(api, 1)

	sales, err := agg.ClosedSalesOfDay(context.Background(), day)
	require.NoError(t, err)

	assertMoney(t, "100.00", sales.Revenue)
	assert.Equal(t, 2, sales.CarCount)
	require.Len(t, sales.RepairOrders, 2)
	assertMoney(t, "0", sales.RepairOrders[1].Revenue)
	assertMoney(t, "0", sales.RepairOrders[1].MarginPct)
}

func TestClosedSalesOfDayFetchFailurePropagates(t *testing.T) {
	fetchErr := errors.New("api down")
	agg := newTestAggregator(&fakeAPI{roErr: fetchErr}, 1)

	_, err := agg.ClosedSalesOfDay(context.Background(), time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, fetchErr)
}

func TestWeeklyClosedSalesMatchesDailySum(t *testing.T) {
	// Orders scattered across the current trailing week (Tue 08/25 to
	// Mon 08/31) and the one before it.
	api := &fakeAPI{
		repairOrders: []shopware.RepairOrder{
			partOrder(1, 201, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), 20000, 8000),
			partOrder(2, 202, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), 10000, 4000),
			partOrder(3, 203, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), 5000, 2000),
			partOrder(4, 204, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), 7000, 3000),
		},
	}
	agg := newTestAggregator(api, 2)

	weeks, err := agg.WeeklyClosedSales(context.Background())
	require.NoError(t, err)
	require.Len(t, weeks, 2)

	// Oldest first.
	assert.Equal(t, "08/18 - 08/24", weeks[0].Label)
	assert.Equal(t, "08/25 - 08/31", weeks[1].Label)

	assertMoney(t, "70.00", weeks[0].Revenue)
	assert.Equal(t, 1, weeks[0].CarCount)

	assertMoney(t, "350.00", weeks[1].Revenue)
	assertMoney(t, "140.00", weeks[1].Cost)
	assert.Equal(t, 3, weeks[1].CarCount)

	// Cross-check: the week equals the sum of its seven dailies.
	var revenue, cost decimal.Decimal
	for day := weeks[1].Start; !day.After(weeks[1].End); day = day.AddDate(0, 0, 1) {
		daySales, err := agg.ClosedSalesOfDay(context.Background(), day)
		require.NoError(t, err)
		revenue = revenue.Add(daySales.Revenue)
		cost = cost.Add(daySales.Cost)
	}
	assert.True(t, weeks[1].Revenue.Equal(revenue))
	assert.True(t, weeks[1].Cost.Equal(cost))
}

func TestWeeklyAvgDailyMarginSkipsZeroDays(t *testing.T) {
	// Two of seven days have revenue: margins 50% and 30%. The average
	// divides by 2, not 7.
	api := &fakeAPI{
		repairOrders: []shopware.RepairOrder{
			partOrder(1, 301, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), 10000, 5000),
			partOrder(2, 302, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), 10000, 7000),
		},
	}
	agg := newTestAggregator(api, 1)

	weeks, err := agg.WeeklyClosedSales(context.Background())
	require.NoError(t, err)
	require.Len(t, weeks, 1)

	assertMoney(t, "40", weeks[0].AvgDailyMarginPct)
}

func TestWeeklyAvgDailyMarginAllZeroDays(t *testing.T) {
	agg := newTestAggregator(&fakeAPI{}, 1)

	weeks, err := agg.WeeklyClosedSales(context.Background())
	require.NoError(t, err)
	require.Len(t, weeks, 1)

	assertMoney(t, "0", weeks[0].AvgDailyMarginPct)
	assertMoney(t, "0", weeks[0].MarginPct)
	assertMoney(t, "0", weeks[0].AverageRO)
}

func TestTechnicianBillableHours(t *testing.T) {
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		repairOrders: []shopware.RepairOrder{
			{
				ID:       1,
				ClosedAt: closedAt(day),
				Services: []shopware.Service{
					{Labors: []shopware.Labor{
						{TechnicianID: 10, Hours: 3.5},
						{TechnicianID: 20, Hours: 2},
						{TechnicianID: 0, Hours: 4},
					}},
					{Labors: []shopware.Labor{
						{TechnicianID: 10, Hours: 1.5},
						{TechnicianID: 20, Hours: 0},
					}},
				},
			},
		},
		staff: map[int64]shopware.StaffMember{
			10: {ID: 10, FirstName: "Dana", LastName: "Reyes"},
		},
	}
	agg := newTestAggregator(api, 1)

	hours, err := agg.TechnicianBillableHours(context.Background(),
		day.AddDate(0, 0, -6), day.AddDate(0, 0, 1))
	require.NoError(t, err)

	require.Len(t, hours, 2)
	assert.Equal(t, "Dana Reyes", hours[0].Name)
	assert.Equal(t, 5.0, hours[0].Hours)
	assert.Equal(t, "Unknown (ID: 20)", hours[1].Name)
	assert.Equal(t, 2.0, hours[1].Hours)
}

func TestWeeklyBillableHoursEfficiency(t *testing.T) {
	api := &fakeAPI{
		repairOrders: []shopware.RepairOrder{
			{
				ID:       1,
				ClosedAt: closedAt(time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)),
				Services: []shopware.Service{
					{Labors: []shopware.Labor{{TechnicianID: 10, Hours: 20}}},
				},
			},
		},
		staff: map[int64]shopware.StaffMember{10: {ID: 10, FirstName: "Dana", LastName: "Reyes"}},
	}
	agg := newTestAggregator(api, 1)

	weeks, err := agg.WeeklyBillableHours(context.Background())
	require.NoError(t, err)
	require.Len(t, weeks, 1)

	assert.Equal(t, 20.0, weeks[0].TotalHours)
	assert.Equal(t, 50.0, weeks[0].EfficiencyPct)
}

func TestUpcomingAppointments(t *testing.T) {
	// Today is Monday 08/31. Saturday 09/05 must not appear; Wednesday
	// 09/02 has two appointments; other weekdays zero.
	api := &fakeAPI{
		appointments: []shopware.Appointment{
			{ID: 1, StartAt: shopware.DateTime{Time: time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC)}},
			{ID: 2, StartAt: shopware.DateTime{Time: time.Date(2026, 9, 2, 14, 0, 0, 0, time.UTC)}},
			{ID: 3, StartAt: shopware.DateTime{Time: time.Date(2026, 9, 5, 9, 0, 0, 0, time.UTC)}},
		},
	}
	agg := newTestAggregator(api, 1)

	days, err := agg.UpcomingAppointments(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, days, 7)

	assert.Equal(t, "Monday", days[0].DayOfWeek)
	assert.Equal(t, 0, days[0].Count)
	assert.Equal(t, "Wednesday", days[2].DayOfWeek)
	assert.Equal(t, 2, days[2].Count)
	for _, d := range days {
		assert.NotEqual(t, "Saturday", d.DayOfWeek)
		assert.NotEqual(t, "Sunday", d.DayOfWeek)
	}
	// Seven weekdays from Monday span into the following week.
	assert.Equal(t, "Tuesday", days[6].DayOfWeek)
	assert.Equal(t, time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), days[6].Date)
}

func TestAppointmentsNextTwoWeeks(t *testing.T) {
	agg := newTestAggregator(&fakeAPI{}, 1)

	days, err := agg.AppointmentsNextTwoWeeks(context.Background())
	require.NoError(t, err)

	// Mon 08/31 through Sun 09/13 contains ten weekdays.
	require.Len(t, days, 10)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), days[0].Date)
	assert.Equal(t, time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC), days[9].Date)
}

func TestPaymentsByType(t *testing.T) {
	api := &fakeAPI{
		payments: []shopware.Payment{
			{ID: 1, AmountCents: 10000, PaymentType: "Credit Card"},
			{ID: 2, AmountCents: 2500, PaymentType: "Cash"},
			{ID: 3, AmountCents: 7500, PaymentType: "Credit Card"},
			{ID: 4, AmountCents: 400, PaymentType: ""},
		},
	}
	agg := newTestAggregator(api, 1)

	totals, err := agg.PaymentsByType(context.Background(), time.Time{})
	require.NoError(t, err)

	require.Len(t, totals, 3)
	assert.Equal(t, "Credit Card", totals[0].PaymentType)
	assert.Equal(t, 2, totals[0].Count)
	assertMoney(t, "175.00", totals[0].Amount)
	assert.Equal(t, "Cash", totals[1].PaymentType)
	assert.Equal(t, "Unknown", totals[2].PaymentType)
}

func TestLowMarginServices(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		repairOrders: []shopware.RepairOrder{
			{
				ID:       5,
				Number:   501,
				ClosedAt: closedAt(day),
				Services: []shopware.Service{
					{
						Title: "Brake job",
						Parts: []shopware.Part{{InventoryItemID: 1, QuotedPriceCents: 10000, CostCents: 7500, Quantity: 1}},
					},
					{
						Title: "Oil change",
						Parts: []shopware.Part{{InventoryItemID: 2, QuotedPriceCents: 10000, CostCents: 2000, Quantity: 1}},
					},
					{
						Title: "Courtesy inspection",
					},
				},
			},
		},
	}
	agg := newTestAggregator(api, 1)

	flagged, err := agg.LowMarginServices(context.Background(), day, day.Add(24*time.Hour-time.Second))
	require.NoError(t, err)

	require.Len(t, flagged, 1)
	assert.Equal(t, "Brake job", flagged[0].Service)
	assert.Equal(t, 501, flagged[0].RONumber)
	assertMoney(t, "25", flagged[0].MarginPct)
	assert.Equal(t, "https://shop.example.com/work_orders/5", flagged[0].Link)
}

func TestTrailingWeeksAreContiguous(t *testing.T) {
	agg := newTestAggregator(&fakeAPI{}, 3)

	windows := agg.trailingWeeks()
	require.Len(t, windows, 3)

	for i, w := range windows {
		assert.Equal(t, w.start.AddDate(0, 0, 6), w.end, "window %d spans 7 days", i)
		if i > 0 {
			assert.Equal(t, windows[i-1].start.AddDate(0, 0, -1), w.end,
				fmt.Sprintf("window %d abuts window %d", i, i-1))
		}
	}
}
