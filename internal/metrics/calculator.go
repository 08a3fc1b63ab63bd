package metrics

import (
	"context"
	"fmt"
	"math"

	"shopware_reports/internal/shopware"

	"github.com/shopspring/decimal"
)

// Financials is the per-repair-order breakdown. Revenue and Cost are
// grand totals; every part line also lands in exactly one of the
// parts/tire pairs.
type Financials struct {
	Revenue      decimal.Decimal
	Cost         decimal.Decimal
	PartsRevenue decimal.Decimal
	PartsCost    decimal.Decimal
	TireRevenue  decimal.Decimal
	TireCost     decimal.Decimal
}

// centsTotals accumulates in integer cents so large batches never
// accumulate float drift. Conversion to decimal happens once, at the end.
type centsTotals struct {
	revenue      int64
	cost         int64
	partsRevenue int64
	partsCost    int64
	tireRevenue  int64
	tireCost     int64
}

func (t *centsTotals) add(other centsTotals) {
	t.revenue += other.revenue
	t.cost += other.cost
	t.partsRevenue += other.partsRevenue
	t.partsCost += other.partsCost
	t.tireRevenue += other.tireRevenue
	t.tireCost += other.tireCost
}

func (t centsTotals) financials() Financials {
	return Financials{
		Revenue:      decimal.New(t.revenue, -2),
		Cost:         decimal.New(t.cost, -2),
		PartsRevenue: decimal.New(t.partsRevenue, -2),
		PartsCost:    decimal.New(t.partsCost, -2),
		TireRevenue:  decimal.New(t.tireRevenue, -2),
		TireCost:     decimal.New(t.tireCost, -2),
	}
}

// CalculateRepairOrder computes the revenue and cost of one repair order.
//
// Part lines count toward the grand totals and toward exactly one of the
// parts/tire buckets, decided by the inventory lookup. Labor bills hours
// at the enclosing service's rate with no tracked cost. A sublet's price
// and cost contribute independently. Hazmat fees need both a fee and a
// quantity. RO-level supply fees raise revenue; part and labor discounts
// reduce revenue only.
//
// A tire-lookup failure aborts this repair order: the caller gets an
// error and should count the order as zeros rather than risk a
// mis-bucketed total.
func CalculateRepairOrder(ctx context.Context, ro shopware.RepairOrder, tires shopware.TireLookup) (Financials, error) {
	var totals centsTotals

	for _, svc := range ro.Services {
		svcTotals, err := calculateService(ctx, svc, tires)
		if err != nil {
			return Financials{}, fmt.Errorf("repair order %d: %w", ro.Number, err)
		}
		totals.add(svcTotals)
	}

	if ro.SupplyFeeCents != 0 {
		totals.revenue += ro.SupplyFeeCents
	}
	if ro.PartDiscountCents != 0 {
		totals.revenue -= ro.PartDiscountCents
	}
	if ro.LaborDiscountCents != 0 {
		totals.revenue -= ro.LaborDiscountCents
	}

	return totals.financials(), nil
}

func calculateService(ctx context.Context, svc shopware.Service, tires shopware.TireLookup) (centsTotals, error) {
	var totals centsTotals

	for _, part := range svc.Parts {
		lineRevenue := roundCents(float64(part.QuotedPriceCents) * part.Quantity)
		lineCost := roundCents(float64(part.CostCents) * part.Quantity)

		totals.revenue += lineRevenue
		totals.cost += lineCost

		isTire, err := tires.IsTire(ctx, part.InventoryItemID)
		if err != nil {
			return centsTotals{}, fmt.Errorf("classify inventory item %d: %w", part.InventoryItemID, err)
		}
		if isTire {
			totals.tireRevenue += lineRevenue
			totals.tireCost += lineCost
		} else {
			totals.partsRevenue += lineRevenue
			totals.partsCost += lineCost
		}
	}

	for _, labor := range svc.Labors {
		if labor.Hours != 0 {
			totals.revenue += roundCents(labor.Hours * float64(svc.LaborRateCents))
		}
	}

	for _, sublet := range svc.Sublets {
		if price := centsValue(sublet.PriceCents); price != 0 {
			totals.revenue += price
		}
		if cost := centsValue(sublet.CostCents); cost != 0 {
			totals.cost += cost
		}
	}

	for _, hazmat := range svc.Hazmats {
		if hazmat.FeeCents != 0 && hazmat.Quantity != 0 {
			totals.revenue += roundCents(float64(hazmat.FeeCents) * hazmat.Quantity)
		}
	}

	return totals, nil
}

// MarginPercent is gross profit as a percentage of revenue. Zero or
// negative revenue is a defined-zero condition, never a division error.
func MarginPercent(revenue, cost decimal.Decimal) decimal.Decimal {
	if revenue.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return revenue.Sub(cost).Div(revenue).Mul(decimal.NewFromInt(100))
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

func centsValue(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
