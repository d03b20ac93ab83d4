// Package pricing resolves a ground's rate table into a quote for one slot.
package pricing

import (
	"math"
	"strings"

	"ground-booking/internal/slot"
)

// FeeRate is the convenience fee charged on the discounted amount.
const FeeRate = 0.02

// DefaultCurrency matches the default PromptPay source, which only settles THB.
const DefaultCurrency = "THB"

// RateRange prices hours in [StartHour, EndHour). StartHour > EndHour wraps past midnight.
type RateRange struct {
	StartHour int     `json:"start_hour"`
	EndHour   int     `json:"end_hour"`
	PerHour   float64 `json:"per_hour"`
}

// Contains reports whether hour falls in the range.
func (r RateRange) Contains(hour int) bool {
	if r.StartHour > r.EndHour {
		return hour >= r.StartHour || hour < r.EndHour
	}
	return hour >= r.StartHour && hour < r.EndHour
}

// RateTable is the read-only pricing data owned by the ground catalog.
type RateTable struct {
	HourlyRate      float64     `json:"hourly_rate"`
	Ranges          []RateRange `json:"ranges,omitempty"`
	DiscountPercent float64     `json:"discount_percent"`
	DiscountAmount  float64     `json:"discount_amount"`
	Currency        string      `json:"currency"`
}

func (t RateTable) CurrencyOrDefault() string {
	if t.Currency == "" {
		return DefaultCurrency
	}
	return t.Currency
}

// WithDefaultCurrency fills in currency when the table names none.
func (t RateTable) WithDefaultCurrency(currency string) RateTable {
	if t.Currency == "" {
		t.Currency = strings.ToUpper(currency)
	}
	return t
}

type Quote struct {
	PerHour  float64
	Hours    float64
	Base     float64
	Discount float64
	Fee      float64
	Total    float64
	Currency string

	// RangeIndex is the selected range, -1 when the flat hourly rate was used.
	RangeIndex int
	// Fallback is set when no range matched and the first range was used.
	Fallback bool
}

// SelectRate picks the hourly rate for a slot starting at startHour.
func SelectRate(t RateTable, startHour int) (perHour float64, index int, fallback bool) {
	if len(t.Ranges) == 0 {
		return t.HourlyRate, -1, false
	}
	for i, r := range t.Ranges {
		if r.Contains(startHour) {
			return r.PerHour, i, false
		}
	}
	return t.Ranges[0].PerHour, 0, true
}

// Price is pure: the same table and slot always give the same quote.
func Price(t RateTable, s slot.Slot) Quote {
	perHour, idx, fallback := SelectRate(t, s.StartHour())
	hours := s.Hours()
	base := round2(perHour * hours)

	var discount float64
	switch {
	case t.DiscountPercent > 0:
		discount = round2(base * t.DiscountPercent / 100)
	case t.DiscountAmount > 0:
		discount = math.Min(t.DiscountAmount, base)
	}

	fee := math.Round(FeeRate * (base - discount))

	return Quote{
		PerHour:    perHour,
		Hours:      hours,
		Base:       base,
		Discount:   discount,
		Fee:        fee,
		Total:      round2(base - discount + fee),
		Currency:   t.CurrencyOrDefault(),
		RangeIndex: idx,
		Fallback:   fallback,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
