package shopware

import "time"

type RepairOrder struct {
	ID                 int64     `json:"id"`
	Number             int       `json:"number"`
	ClosedAt           *DateTime `json:"closed_at"`
	Services           []Service `json:"services"`
	SupplyFeeCents     int64     `json:"supply_fee_cents"`
	PartDiscountCents  int64     `json:"part_discount_cents"`
	LaborDiscountCents int64     `json:"labor_discount_cents"`
}

type Service struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	LaborRateCents int64    `json:"labor_rate_cents"`
	Parts          []Part   `json:"parts"`
	Labors         []Labor  `json:"labors"`
	Sublets        []Sublet `json:"sublets"`
	Hazmats        []Hazmat `json:"hazmats"`
}

type Part struct {
	InventoryItemID  int64   `json:"inventory_item_id"`
	QuotedPriceCents int64   `json:"quoted_price_cents"`
	CostCents        int64   `json:"cost_cents"`
	Quantity         float64 `json:"quantity"`
}

type Labor struct {
	TechnicianID int64   `json:"technician_id"`
	Hours        float64 `json:"hours"`
}

type Sublet struct {
	PriceCents *int64 `json:"price_cents"`
	CostCents  *int64 `json:"cost_cents"`
}

type Hazmat struct {
	FeeCents int64   `json:"fee_cents"`
	Quantity float64 `json:"quantity"`
}

type Appointment struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	StartAt DateTime `json:"start_at"`
	EndAt   DateTime `json:"end_at"`
}

type Payment struct {
	ID          int64    `json:"id"`
	AmountCents int64    `json:"amount_cents"`
	PaymentType string   `json:"payment_type"`
	CreatedAt   DateTime `json:"created_at"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type StaffMember struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type InventoryItem struct {
	ID                int64  `json:"id"`
	PartType          string `json:"part_type"`
	ReportingCategory string `json:"reporting_category"`
}

// pagedResponse is the envelope every list endpoint returns. A missing
// total_pages field decodes to zero and is treated as "single page".
type pagedResponse[T any] struct {
	Results    []T `json:"results"`
	TotalPages int `json:"total_pages"`
	TotalCount int `json:"total_count"`
}

// DateTime accepts the API's timestamp forms: RFC3339 with or without a
// fractional second, or a bare date.
type DateTime struct {
	time.Time
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		d.Time = time.Time{}
		return nil
	}
	s = s[1 : len(s)-1]
	var lastErr error
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			d.Time = t.UTC()
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Time.UTC().Format(time.RFC3339) + `"`), nil
}
