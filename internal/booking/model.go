package booking

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "booking not found")
	ErrInvalidStatus     = apperror.New(http.StatusBadRequest, "invalid booking status")
	ErrInvalidTransition = apperror.New(http.StatusConflict, "booking status transition not allowed")
	ErrMissingStatus     = apperror.New(http.StatusBadRequest, "booking status is required")
	ErrInvalidDate       = apperror.New(http.StatusBadRequest, "booking date must be an ISO date (YYYY-MM-DD)")
	ErrInvalidDuration   = apperror.New(http.StatusBadRequest, "booking duration must be positive")
	ErrPaymentConflict   = apperror.New(http.StatusConflict, "payment status changed concurrently")
	ErrDuplicateID       = apperror.New(http.StatusConflict, "booking id already exists")
)

type Status string

const (
	StatusReserved  Status = "Reserved"
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusReserved, StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// transitions lists the status changes a booking may go through. Cancelled
// and Completed are terminal.
var transitions = map[Status][]Status{
	StatusReserved:  {StatusPending, StatusCancelled},
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a booking in status from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentNone     PaymentStatus = ""
	PaymentEscrow   PaymentStatus = "Paid - Escrow"
	PaymentReleased PaymentStatus = "Released"
	PaymentRefunded PaymentStatus = "Refunded"
)

// Booking is one unit of space-time ownership. A recurring series is stored
// as sibling rows sharing GroupID, one row per date.
type Booking struct {
	ID                string
	ListingID         string
	UserID            string
	Date              string // series start date for this row, YYYY-MM-DD
	Duration          int    // nights for daily listings, hour count for hourly ones
	Hours             []int  // hourly listings only
	TotalPrice        float64
	ServiceFee        float64
	CautionFee        float64
	Status            Status
	PaymentStatus     PaymentStatus
	EscrowReleaseDate *time.Time
	GroupID           string
	GuestCount        int
	SelectedAddOns    []string
	TransactionIDs    []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HostPayout is what the host receives once escrow is released.
func (b *Booking) HostPayout() float64 {
	payout := b.TotalPrice - b.ServiceFee - b.CautionFee
	if payout < 0 {
		return 0
	}
	return payout
}

// Occupies reports whether the booking still holds its slot.
func (b *Booking) Occupies() bool {
	return b.Status != StatusCancelled
}

func (b *Booking) clone() *Booking {
	cp := *b
	cp.Hours = append([]int(nil), b.Hours...)
	cp.SelectedAddOns = append([]string(nil), b.SelectedAddOns...)
	cp.TransactionIDs = append([]string(nil), b.TransactionIDs...)
	if b.EscrowReleaseDate != nil {
		t := *b.EscrowReleaseDate
		cp.EscrowReleaseDate = &t
	}
	return &cp
}

type Filter struct {
	ListingID        string
	ListingIDs       []string
	UserID           string
	GroupID          string
	PaymentStatus    *PaymentStatus
	ReleaseDueBefore *time.Time // escrow_release_date <= this
	ExcludeCancelled bool
}
