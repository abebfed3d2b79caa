package escrow

import (
	"slices"
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/dateutil"
)

const (
	DefaultReleaseDelay    = 24 * time.Hour
	DefaultDailyAnchorHour = 15
)

// Policy decides when escrowed funds become payable. A booking keeps the
// release date computed at creation, so changing the policy only affects
// new bookings.
type Policy struct {
	Delay           time.Duration
	DailyAnchorHour int
	Location        *time.Location
}

func DefaultPolicy() Policy {
	return Policy{
		Delay:           DefaultReleaseDelay,
		DailyAnchorHour: DefaultDailyAnchorHour,
		Location:        time.Local,
	}
}

// ComputeReleaseDate anchors hourly bookings at their earliest selected hour
// and daily bookings at the policy's check-in hour on the start date, then
// adds the policy delay.
func ComputeReleaseDate(date string, hours []int, p Policy) (time.Time, error) {
	start, err := dateutil.Parse(date, p.Location)
	if err != nil {
		return time.Time{}, err
	}

	anchorHour := p.DailyAnchorHour
	if len(hours) > 0 {
		anchorHour = slices.Min(hours)
	}

	anchor := time.Date(start.Year(), start.Month(), start.Day(), anchorHour, 0, 0, 0, start.Location())
	return anchor.Add(p.Delay), nil
}
