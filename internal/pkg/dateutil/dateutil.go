// Package dateutil handles the calendar dates (YYYY-MM-DD) that bookings and
// host availability maps are keyed by.
package dateutil

import (
	"fmt"
	"time"
)

// Layout is the ISO calendar date format used for every date key.
const Layout = "2006-01-02"

// Parse parses an ISO date at midnight in loc.
func Parse(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(Layout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Format renders the calendar date of t.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// AddDays shifts an ISO date by n calendar days. Calendar arithmetic is done
// in UTC so DST transitions never skip or repeat a day.
func AddDays(s string, n int) (string, error) {
	t, err := Parse(s, time.UTC)
	if err != nil {
		return "", err
	}
	return Format(t.AddDate(0, 0, n)), nil
}

// Valid reports whether s is a well-formed ISO date.
func Valid(s string) bool {
	_, err := time.Parse(Layout, s)
	return err == nil
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return Format(now.In(loc))
}

// Before reports whether date a is strictly before date b. Both must be ISO
// dates, which sort lexically in calendar order.
func Before(a, b string) bool {
	return a < b
}
