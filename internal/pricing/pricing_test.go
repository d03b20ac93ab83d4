package pricing

import (
	"testing"

	"ground-booking/internal/slot"

	"github.com/stretchr/testify/assert"
)

func dayNightTable() RateTable {
	return RateTable{
		Ranges: []RateRange{
			{StartHour: 6, EndHour: 18, PerHour: 500},
			{StartHour: 18, EndHour: 6, PerHour: 800},
		},
	}
}

func TestPriceOvernightRange(t *testing.T) {
	q := Price(dayNightTable(), slot.MustParse("19:00-20:00"))

	assert.Equal(t, 1, q.RangeIndex)
	assert.False(t, q.Fallback)
	assert.Equal(t, 800.0, q.Base)
	assert.Equal(t, 0.0, q.Discount)
	assert.Equal(t, 16.0, q.Fee)
	assert.Equal(t, 816.0, q.Total)
	assert.Equal(t, DefaultCurrency, q.Currency)
}

func TestPriceOvernightAfterMidnight(t *testing.T) {
	q := Price(dayNightTable(), slot.MustParse("02:00-04:00"))

	assert.Equal(t, 1, q.RangeIndex)
	assert.Equal(t, 1600.0, q.Base)
}

func TestPriceDayRange(t *testing.T) {
	q := Price(dayNightTable(), slot.MustParse("06:00-07:30"))

	assert.Equal(t, 0, q.RangeIndex)
	assert.Equal(t, 750.0, q.Base)
	assert.Equal(t, 15.0, q.Fee)
}

func TestPriceFallbackIsObservable(t *testing.T) {
	table := RateTable{Ranges: []RateRange{
		{StartHour: 8, EndHour: 12, PerHour: 300},
		{StartHour: 12, EndHour: 16, PerHour: 400},
	}}

	q := Price(table, slot.MustParse("20:00-21:00"))

	assert.True(t, q.Fallback)
	assert.Equal(t, 0, q.RangeIndex)
	assert.Equal(t, 300.0, q.Base)
}

func TestPriceFlatRateWithDiscount(t *testing.T) {
	table := RateTable{HourlyRate: 1000, DiscountPercent: 10, Currency: "THB"}

	q := Price(table, slot.MustParse("10:00-12:00"))

	assert.Equal(t, -1, q.RangeIndex)
	assert.Equal(t, 2000.0, q.Base)
	assert.Equal(t, 200.0, q.Discount)
	assert.Equal(t, 36.0, q.Fee)
	assert.Equal(t, 1836.0, q.Total)
	assert.Equal(t, "THB", q.Currency)
}

func TestPriceDiscountAmountCappedAtBase(t *testing.T) {
	q := Price(RateTable{HourlyRate: 100, DiscountAmount: 500}, slot.MustParse("10:00-11:00"))

	assert.Equal(t, 100.0, q.Discount)
	assert.Equal(t, 0.0, q.Total)
}

func TestPriceIsDeterministic(t *testing.T) {
	table := RateTable{
		Ranges:          []RateRange{{StartHour: 6, EndHour: 18, PerHour: 333.33}},
		DiscountPercent: 7.5,
	}
	s := slot.MustParse("09:00-10:30")

	first := Price(table, s)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Price(table, s))
	}
}

func TestWithDefaultCurrency(t *testing.T) {
	assert.Equal(t, "SGD", RateTable{}.WithDefaultCurrency("sgd").CurrencyOrDefault())
	assert.Equal(t, "USD", RateTable{Currency: "USD"}.WithDefaultCurrency("THB").CurrencyOrDefault())
	assert.Equal(t, DefaultCurrency, RateTable{}.WithDefaultCurrency("").CurrencyOrDefault())
}
