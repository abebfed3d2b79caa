// Package availability decides whether a listing can be booked on a date or
// hour slot. Every function is pure: "today" and existing bookings are
// passed in by the caller.
package availability

import (
	"fmt"
	"sort"

	"github.com/nekogravitycat/space-booking-backend/internal/booking"
	"github.com/nekogravitycat/space-booking-backend/internal/listing"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/dateutil"
)

type Status string

const (
	StatusPast          Status = "PAST"
	StatusBlockedByHost Status = "BLOCKED_BY_HOST"
	StatusAlreadyBooked Status = "ALREADY_BOOKED"
	StatusFullyBooked   Status = "FULLY_BOOKED"
	StatusAvailable     Status = "AVAILABLE"
)

// CheckDate classifies date for the listing. today is the current calendar
// date (YYYY-MM-DD) in the platform time zone.
func CheckDate(l *listing.Listing, date string, existing []*booking.Booking, today string) Status {
	if dateutil.Before(date, today) {
		return StatusPast
	}

	// No map at all is treated the same as a map without this date.
	openHours, open := l.Availability.Hours(date)
	if !open {
		return StatusBlockedByHost
	}

	if !l.IsHourly() {
		for _, b := range existing {
			if !b.Occupies() {
				continue
			}
			if occupiesNight(b, date) {
				return StatusAlreadyBooked
			}
		}
		return StatusAvailable
	}

	if len(openHours) > 0 {
		booked := bookedHourSet(date, existing)
		full := true
		for _, h := range openHours {
			if _, taken := booked[h]; !taken {
				full = false
				break
			}
		}
		if full {
			return StatusFullyBooked
		}
	}
	return StatusAvailable
}

// IsSlotBooked reports whether any non-cancelled booking on date holds hour.
func IsSlotBooked(date string, hour int, existing []*booking.Booking) bool {
	for _, b := range existing {
		if !b.Occupies() || b.Date != date {
			continue
		}
		for _, h := range b.Hours {
			if h == hour {
				return true
			}
		}
	}
	return false
}

// BookedHours returns the sorted union of hours held on date.
func BookedHours(date string, existing []*booking.Booking) []int {
	set := bookedHourSet(date, existing)
	hours := make([]int, 0, len(set))
	for h := range set {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}

// OpenHours returns the host's open hours for date, or nil if the date was
// never opened.
func OpenHours(l *listing.Listing, date string) []int {
	hours, _ := l.Availability.Hours(date)
	return hours
}

func bookedHourSet(date string, existing []*booking.Booking) map[int]struct{} {
	set := make(map[int]struct{})
	for _, b := range existing {
		if !b.Occupies() || b.Date != date {
			continue
		}
		for _, h := range b.Hours {
			set[h] = struct{}{}
		}
	}
	return set
}

// occupiesNight reports whether date falls in [b.Date, b.Date + b.Duration).
func occupiesNight(b *booking.Booking, date string) bool {
	if dateutil.Before(date, b.Date) {
		return false
	}
	nights := b.Duration
	if nights < 1 {
		nights = 1
	}
	end, err := dateutil.AddDays(b.Date, nights)
	if err != nil {
		// A stored booking with a broken date cannot be reasoned about; keep
		// the date it names blocked and nothing else.
		return b.Date == date
	}
	return dateutil.Before(date, end)
}

// ConflictError names the first date (and hour, for hourly listings) that
// blocks a request.
type ConflictError struct {
	Date   string
	Hour   *int
	Status Status
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Hour != nil {
		return fmt.Sprintf("%02d:00 on %s is not available: %s", *e.Hour, e.Date, e.Reason)
	}
	return fmt.Sprintf("%s is not available: %s", e.Date, e.Reason)
}

func dateConflict(date string, status Status) *ConflictError {
	return &ConflictError{Date: date, Status: status, Reason: reasonFor(status)}
}

func hourConflict(date string, hour int, reason string) *ConflictError {
	h := hour
	return &ConflictError{Date: date, Hour: &h, Status: StatusAlreadyBooked, Reason: reason}
}

func reasonFor(status Status) string {
	switch status {
	case StatusPast:
		return "date is in the past"
	case StatusBlockedByHost:
		return "host has not opened this date"
	case StatusAlreadyBooked:
		return "already booked"
	case StatusFullyBooked:
		return "every open hour is booked"
	default:
		return string(status)
	}
}
