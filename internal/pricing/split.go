package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidShareCount = errors.New("share count must be at least 1")

// Share is the part of a breakdown one booking row of a series carries.
type Share struct {
	Subtotal   float64
	ServiceFee float64
	CautionFee float64
	Total      float64
}

// SplitSeries divides a breakdown across n sibling bookings in whole cents.
// Subtotal and service fee are split evenly with the leftover cents assigned
// to the first occurrence; the caution fee sits on the first occurrence
// only. The shares always add up to the cent-rounded breakdown.
func SplitSeries(b Breakdown, n int) ([]Share, error) {
	if n < 1 {
		return nil, ErrInvalidShareCount
	}

	subtotals := splitCents(decimal.NewFromFloat(b.Subtotal), n)
	fees := splitCents(decimal.NewFromFloat(b.ServiceFee), n)
	caution := decimal.NewFromFloat(b.CautionFee).Round(2)

	shares := make([]Share, n)
	for i := 0; i < n; i++ {
		c := decimal.Zero
		if i == 0 {
			c = caution
		}
		total := subtotals[i].Add(fees[i]).Add(c)
		shares[i] = Share{
			Subtotal:   subtotals[i].InexactFloat64(),
			ServiceFee: fees[i].InexactFloat64(),
			CautionFee: c.InexactFloat64(),
			Total:      total.InexactFloat64(),
		}
	}
	return shares, nil
}

// splitCents rounds amount to cents and divides it into n parts that differ
// by at most the remainder, which goes to the first part.
func splitCents(amount decimal.Decimal, n int) []decimal.Decimal {
	cents := amount.Round(2).Shift(2).IntPart()
	count := int64(n)
	base := cents / count
	remainder := cents - base*count

	parts := make([]decimal.Decimal, n)
	for i := range parts {
		c := base
		if i == 0 {
			c += remainder
		}
		parts[i] = decimal.New(c, -2)
	}
	return parts
}

// ChargeTotal is the amount to authorize for a series: the exact sum of the
// share totals the ledger will record.
func ChargeTotal(shares []Share) float64 {
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(decimal.NewFromFloat(s.Total))
	}
	return sum.InexactFloat64()
}
