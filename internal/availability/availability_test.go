package availability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-booking-backend/internal/booking"
	"github.com/nekogravitycat/space-booking-backend/internal/listing"
)

const today = "2025-06-01"

func dailyListing() *listing.Listing {
	return &listing.Listing{
		ID:        "daily",
		PriceUnit: listing.PriceUnitDaily,
		Availability: listing.Availability{
			"2025-06-10": {},
			"2025-06-11": {},
			"2025-06-12": {},
			"2025-06-13": {},
			"2025-06-17": {},
			"2025-06-24": {},
		},
	}
}

func hourlyListing() *listing.Listing {
	return &listing.Listing{
		ID:        "hourly",
		PriceUnit: listing.PriceUnitHourly,
		Availability: listing.Availability{
			"2025-07-01": {9, 10, 11, 12},
			"2025-07-02": {9, 10, 11, 12},
			"2025-07-08": {9, 10, 11, 12},
			"2025-07-15": {11},
			"2025-07-20": {},
		},
	}
}

func TestCheckDate(t *testing.T) {
	tests := []struct {
		name     string
		listing  *listing.Listing
		date     string
		bookings []*booking.Booking
		want     Status
	}{
		{
			name:    "Date before today is past",
			listing: dailyListing(),
			date:    "2025-05-31",
			want:    StatusPast,
		},
		{
			name:    "Today itself is not past",
			listing: &listing.Listing{PriceUnit: listing.PriceUnitDaily, Availability: listing.Availability{today: {}}},
			date:    today,
			want:    StatusAvailable,
		},
		{
			name:    "Date the host never opened",
			listing: dailyListing(),
			date:    "2025-06-14",
			want:    StatusBlockedByHost,
		},
		{
			name:    "No availability map blocks everything",
			listing: &listing.Listing{PriceUnit: listing.PriceUnitDaily},
			date:    "2025-06-10",
			want:    StatusBlockedByHost,
		},
		{
			name:    "Daily date inside an existing stay",
			listing: dailyListing(),
			date:    "2025-06-12",
			bookings: []*booking.Booking{
				{Date: "2025-06-10", Duration: 3, Status: booking.StatusConfirmed},
			},
			want: StatusAlreadyBooked,
		},
		{
			name:    "Checkout day of an existing stay is free",
			listing: dailyListing(),
			date:    "2025-06-13",
			bookings: []*booking.Booking{
				{Date: "2025-06-10", Duration: 3, Status: booking.StatusConfirmed},
			},
			want: StatusAvailable,
		},
		{
			name:    "Cancelled stay is ignored",
			listing: dailyListing(),
			date:    "2025-06-11",
			bookings: []*booking.Booking{
				{Date: "2025-06-10", Duration: 3, Status: booking.StatusCancelled},
			},
			want: StatusAvailable,
		},
		{
			name:    "Pending stay blocks",
			listing: dailyListing(),
			date:    "2025-06-10",
			bookings: []*booking.Booking{
				{Date: "2025-06-10", Duration: 1, Status: booking.StatusPending},
			},
			want: StatusAlreadyBooked,
		},
		{
			name:    "Hourly date partly booked stays available",
			listing: hourlyListing(),
			date:    "2025-07-01",
			bookings: []*booking.Booking{
				{Date: "2025-07-01", Hours: []int{9, 10}, Status: booking.StatusPending},
			},
			want: StatusAvailable,
		},
		{
			name:    "Hourly date with every open hour booked",
			listing: hourlyListing(),
			date:    "2025-07-01",
			bookings: []*booking.Booking{
				{Date: "2025-07-01", Hours: []int{9, 10}, Status: booking.StatusPending},
				{Date: "2025-07-01", Hours: []int{11, 12}, Status: booking.StatusConfirmed},
			},
			want: StatusFullyBooked,
		},
		{
			name:    "Hourly bookings on other dates do not count",
			listing: hourlyListing(),
			date:    "2025-07-01",
			bookings: []*booking.Booking{
				{Date: "2025-07-02", Hours: []int{9, 10, 11, 12}, Status: booking.StatusPending},
			},
			want: StatusAvailable,
		},
		{
			name:    "Hourly date opened with no hours is not fully booked",
			listing: hourlyListing(),
			date:    "2025-07-20",
			want:    StatusAvailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckDate(tt.listing, tt.date, tt.bookings, today)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSlotBooked(t *testing.T) {
	existing := []*booking.Booking{
		{Date: "2025-07-01", Hours: []int{9, 10}, Status: booking.StatusPending},
		{Date: "2025-07-01", Hours: []int{12}, Status: booking.StatusCancelled},
	}

	assert.True(t, IsSlotBooked("2025-07-01", 10, existing))
	assert.False(t, IsSlotBooked("2025-07-01", 11, existing))
	assert.False(t, IsSlotBooked("2025-07-01", 12, existing), "cancelled bookings free their hours")
	assert.False(t, IsSlotBooked("2025-07-02", 9, existing))

	assert.Equal(t, []int{9, 10}, BookedHours("2025-07-01", existing))
}

func TestCheckSeriesHourlyScenario(t *testing.T) {
	l := hourlyListing()
	existing := []*booking.Booking{
		{Date: "2025-07-01", Hours: []int{9, 10}, Status: booking.StatusConfirmed},
	}

	require.NoError(t, CheckSeries(l, []string{"2025-07-01"}, []int{11, 12}, existing, today))

	err := CheckSeries(l, []string{"2025-07-01"}, []int{10, 13}, existing, today)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "2025-07-01", conflict.Date)
	require.NotNil(t, conflict.Hour)
	assert.Equal(t, 10, *conflict.Hour)
	assert.Contains(t, conflict.Error(), "10:00 on 2025-07-01")

	err = CheckSeries(l, []string{"2025-07-01"}, []int{11, 13}, existing, today)
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, 13, *conflict.Hour)
	assert.Equal(t, "host has not opened this hour", conflict.Reason)
}

func TestCheckSeriesRecurring(t *testing.T) {
	l := hourlyListing()

	dates, err := ExpandSeries("2025-07-01", FrequencyWeekly, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-07-01", "2025-07-08", "2025-07-15"}, dates)

	// Hour 11 is open every week.
	require.NoError(t, CheckSeries(l, dates, []int{11}, nil, today))

	// Hour 12 is not open on the third week, so the whole series fails.
	err = CheckSeries(l, dates, []int{11, 12}, nil, today)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "2025-07-15", conflict.Date)
	assert.Equal(t, 12, *conflict.Hour)

	// A booking on a later occurrence blocks the series.
	existing := []*booking.Booking{{Date: "2025-07-08", Hours: []int{11}, Status: booking.StatusPending}}
	err = CheckSeries(l, dates, []int{11}, existing, today)
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "2025-07-08", conflict.Date)
}

func TestCheckSeriesRejectsRepeats(t *testing.T) {
	l := hourlyListing()

	err := CheckSeries(l, []string{"2025-07-01"}, []int{11, 11}, nil, today)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "hour requested twice", conflict.Reason)

	err = CheckSeries(l, []string{"2025-07-01", "2025-07-01"}, []int{11}, nil, today)
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "date requested twice", conflict.Reason)

	assert.ErrorIs(t, CheckSeries(l, []string{"2025-07-01"}, nil, nil, today), ErrNoHours)
	assert.ErrorIs(t, CheckSeries(l, nil, []int{9}, nil, today), ErrNoDates)
}

func TestExpandSeries(t *testing.T) {
	dates, err := ExpandSeries("2025-06-30", FrequencyDaily, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-30", "2025-07-01", "2025-07-02"}, dates)

	_, err = ExpandSeries("2025-06-30", FrequencyDaily, 1)
	assert.ErrorIs(t, err, ErrSeriesTooShort)

	_, err = ExpandSeries("2025-06-30", "MONTHLY", 3)
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	assert.Equal(t, FrequencyWeekly, EffectiveFrequency(dailyListing(), FrequencyDaily))
	assert.Equal(t, FrequencyDaily, EffectiveFrequency(hourlyListing(), FrequencyDaily))
}

func TestCheckStay(t *testing.T) {
	l := dailyListing()
	existing := []*booking.Booking{
		{Date: "2025-06-12", Duration: 1, Status: booking.StatusConfirmed},
	}

	// 06-10 is free but the 3-night stay runs into the booking on 06-12.
	err := CheckStay(l, []string{"2025-06-10"}, 3, existing, today)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "2025-06-12", conflict.Date)
	assert.Equal(t, StatusAlreadyBooked, conflict.Status)

	require.NoError(t, CheckStay(l, []string{"2025-06-10"}, 2, existing, today))

	// Weekly series of single nights.
	require.NoError(t, CheckStay(l, []string{"2025-06-10", "2025-06-17", "2025-06-24"}, 1, nil, today))

	// The second night was never opened by the host.
	err = CheckStay(l, []string{"2025-06-17"}, 2, nil, today)
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, StatusBlockedByHost, conflict.Status)
}
