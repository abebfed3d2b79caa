package availability

import (
	"errors"
	"fmt"

	"github.com/nekogravitycat/space-booking-backend/internal/booking"
	"github.com/nekogravitycat/space-booking-backend/internal/listing"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/dateutil"
)

type Frequency string

const (
	FrequencyDaily  Frequency = "DAILY"
	FrequencyWeekly Frequency = "WEEKLY"
)

var (
	ErrSeriesTooShort   = errors.New("a recurring series needs at least 2 occurrences")
	ErrInvalidFrequency = errors.New("recurrence frequency must be DAILY or WEEKLY")
	ErrNoDates          = errors.New("at least one date is required")
	ErrNoHours          = errors.New("hourly bookings need at least one hour")
)

// EffectiveFrequency applies the listing rule: only hourly listings may
// recur daily, daily-priced listings always recur weekly.
func EffectiveFrequency(l *listing.Listing, freq Frequency) Frequency {
	if !l.IsHourly() {
		return FrequencyWeekly
	}
	return freq
}

// ExpandSeries generates count dates starting at start, one day or one week
// apart.
func ExpandSeries(start string, freq Frequency, count int) ([]string, error) {
	if count < 2 {
		return nil, ErrSeriesTooShort
	}
	step := 0
	switch freq {
	case FrequencyDaily:
		step = 1
	case FrequencyWeekly:
		step = 7
	default:
		return nil, ErrInvalidFrequency
	}

	dates := make([]string, 0, count)
	for i := 0; i < count; i++ {
		d, err := dateutil.AddDays(start, step*i)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// CheckSeries verifies that every date is bookable and, for hourly listings,
// that every requested hour is open and free on every date. It returns the
// first conflict found as a *ConflictError. Repeated dates or hours in the
// request are conflicts too.
func CheckSeries(l *listing.Listing, dates []string, hours []int, existing []*booking.Booking, today string) error {
	if len(dates) == 0 {
		return ErrNoDates
	}
	if l.IsHourly() && len(hours) == 0 {
		return ErrNoHours
	}

	seenDates := make(map[string]struct{}, len(dates))
	for _, date := range dates {
		if !dateutil.Valid(date) {
			return fmt.Errorf("invalid date %q", date)
		}
		if _, dup := seenDates[date]; dup {
			return &ConflictError{Date: date, Status: StatusAlreadyBooked, Reason: "date requested twice"}
		}
		seenDates[date] = struct{}{}

		if status := CheckDate(l, date, existing, today); status != StatusAvailable {
			return dateConflict(date, status)
		}

		if !l.IsHourly() {
			continue
		}

		open := make(map[int]struct{})
		for _, h := range OpenHours(l, date) {
			open[h] = struct{}{}
		}
		seenHours := make(map[int]struct{}, len(hours))
		for _, h := range hours {
			if _, dup := seenHours[h]; dup {
				return hourConflict(date, h, "hour requested twice")
			}
			seenHours[h] = struct{}{}

			if _, ok := open[h]; !ok {
				return hourConflict(date, h, "host has not opened this hour")
			}
			if IsSlotBooked(date, h, existing) {
				return hourConflict(date, h, "already booked")
			}
		}
	}
	return nil
}

// StayDates lists every night a daily booking of nights starting at start
// occupies.
func StayDates(start string, nights int) ([]string, error) {
	if nights < 1 {
		nights = 1
	}
	dates := make([]string, 0, nights)
	for i := 0; i < nights; i++ {
		d, err := dateutil.AddDays(start, i)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// CheckStay verifies every night of every stay. A multi-night stay starting
// on an available date can still run into a booking that starts later, so
// each covered night is checked on its own.
func CheckStay(l *listing.Listing, starts []string, nights int, existing []*booking.Booking, today string) error {
	if len(starts) == 0 {
		return ErrNoDates
	}

	var all []string
	for _, start := range starts {
		covered, err := StayDates(start, nights)
		if err != nil {
			return err
		}
		all = append(all, covered...)
	}
	// Overlapping stays inside one request show up as a repeated night.
	return CheckSeries(l, all, nil, existing, today)
}
