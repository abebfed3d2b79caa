// Package pricing turns a booking request into a fee breakdown. The same
// functions back quotes, booking creation and any server-side re-check, so
// every caller computes identical numbers.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/space-booking-backend/internal/listing"
)

// DefaultServiceFeeRate is the platform cut applied when no rate is configured.
const DefaultServiceFeeRate = 0.10

type Request struct {
	DurationUnits    int // selected hours for hourly listings, nights for daily ones
	GuestCount       int
	SelectedAddOnIDs []string
	IsRecurring      bool
	OccurrenceCount  int
}

// Breakdown keeps full float precision. Round only for display.
type Breakdown struct {
	Subtotal   float64 `json:"subtotal"`
	ServiceFee float64 `json:"serviceFee"`
	CautionFee float64 `json:"cautionFee"`
	Total      float64 `json:"total"`
}

// Calculator applies one platform service fee rate.
type Calculator struct {
	serviceFeeRate float64
}

func NewCalculator(serviceFeeRate float64) *Calculator {
	if serviceFeeRate < 0 {
		serviceFeeRate = 0
	}
	return &Calculator{serviceFeeRate: serviceFeeRate}
}

func (c *Calculator) ServiceFeeRate() float64 {
	return c.serviceFeeRate
}

// CalculateFees computes the breakdown for req against l.
func (c *Calculator) CalculateFees(l *listing.Listing, req Request) Breakdown {
	return CalculateFees(l, req, c.serviceFeeRate)
}

// CalculateFees is the pure form of Calculator.CalculateFees.
func CalculateFees(l *listing.Listing, req Request, serviceFeeRate float64) Breakdown {
	unitPrice := nonNegative(l.Price)
	if extra := req.GuestCount - l.IncludedGuests; extra > 0 && l.PricePerExtraGuest > 0 {
		unitPrice += float64(extra) * l.PricePerExtraGuest
	}

	rental := unitPrice * float64(max(req.DurationUnits, 0))

	// Add-ons are flat per occurrence. Unknown ids are ignored.
	addOns := 0.0
	for _, id := range req.SelectedAddOnIDs {
		if a, ok := l.AddOn(id); ok {
			addOns += nonNegative(a.Price)
		}
	}

	occurrences := 1
	if req.IsRecurring && req.OccurrenceCount > 1 {
		occurrences = req.OccurrenceCount
	}

	subtotal := (rental + addOns) * float64(occurrences)
	serviceFee := subtotal * nonNegative(serviceFeeRate)
	// The deposit covers the whole series and is charged once.
	caution := nonNegative(l.CautionFee)

	return Breakdown{
		Subtotal:   subtotal,
		ServiceFee: serviceFee,
		CautionFee: caution,
		Total:      subtotal + serviceFee + caution,
	}
}

// Round2 rounds half away from zero to cents, matching SplitSeries.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return cents(v).InexactFloat64()
}

func cents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// Rounded returns the breakdown in whole cents. Its Total is the sum of the
// rounded parts, which is what a guest is charged.
func (b Breakdown) Rounded() Breakdown {
	subtotal, fee, caution := cents(b.Subtotal), cents(b.ServiceFee), cents(b.CautionFee)
	return Breakdown{
		Subtotal:   subtotal.InexactFloat64(),
		ServiceFee: fee.InexactFloat64(),
		CautionFee: caution.InexactFloat64(),
		Total:      subtotal.Add(fee).Add(caution).InexactFloat64(),
	}
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
