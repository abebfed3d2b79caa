package http

import (
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/availability"
	"github.com/nekogravitycat/space-booking-backend/internal/booking"
	"github.com/nekogravitycat/space-booking-backend/internal/payment"
	"github.com/nekogravitycat/space-booking-backend/internal/pricing"
	"github.com/nekogravitycat/space-booking-backend/internal/reservation"
)

type AvailabilityQuery struct {
	Date string `form:"date" binding:"required,datetime=2006-01-02"`
}

type AvailabilityResponse struct {
	ListingID   string `json:"listing_id"`
	Date        string `json:"date"`
	Status      string `json:"status"`
	OpenHours   []int  `json:"open_hours,omitempty"`
	BookedHours []int  `json:"booked_hours,omitempty"`
}

type PaymentBody struct {
	Method    string `json:"method" binding:"required,oneof=card wallet"`
	CardToken string `json:"card_token"`
}

func (p *PaymentBody) toDetails() reservation.PaymentDetails {
	return reservation.PaymentDetails{Method: payment.Method(p.Method), CardToken: p.CardToken}
}

// BookingRequest is shared by quotes and bookings. Without payment a booking
// is stored as a Reserved draft.
type BookingRequest struct {
	ListingID        string       `json:"listing_id" binding:"required,uuid"`
	Dates            []string     `json:"dates" binding:"required,min=1"`
	DurationUnits    int          `json:"duration_units"`
	Hours            []int        `json:"hours"`
	GuestCount       int          `json:"guest_count" binding:"required,gte=1"`
	SelectedAddOnIDs []string     `json:"selected_add_on_ids"`
	IsRecurring      bool         `json:"is_recurring"`
	RecurrenceFreq   string       `json:"recurrence_freq" binding:"omitempty,oneof=DAILY WEEKLY"`
	RecurrenceCount  int          `json:"recurrence_count"`
	Payment          *PaymentBody `json:"payment"`
}

func (r *BookingRequest) toRequest(userID string) reservation.Request {
	req := reservation.Request{
		ListingID:        r.ListingID,
		UserID:           userID,
		Dates:            r.Dates,
		DurationUnits:    r.DurationUnits,
		Hours:            r.Hours,
		GuestCount:       r.GuestCount,
		SelectedAddOnIDs: r.SelectedAddOnIDs,
		IsRecurring:      r.IsRecurring,
		RecurrenceFreq:   availability.Frequency(r.RecurrenceFreq),
		RecurrenceCount:  r.RecurrenceCount,
	}
	if r.Payment != nil {
		details := r.Payment.toDetails()
		req.Payment = &details
	}
	return req
}

type CancelRequest struct {
	RefundAmount *float64 `json:"refund_amount" binding:"omitempty,gte=0"`
}

type BreakdownResponse struct {
	Subtotal   float64 `json:"subtotal"`
	ServiceFee float64 `json:"service_fee"`
	CautionFee float64 `json:"caution_fee"`
	Total      float64 `json:"total"`
}

func NewBreakdownResponse(b pricing.Breakdown) BreakdownResponse {
	r := b.Rounded()
	return BreakdownResponse{
		Subtotal:   r.Subtotal,
		ServiceFee: r.ServiceFee,
		CautionFee: r.CautionFee,
		Total:      r.Total,
	}
}

type QuoteResponse struct {
	Dates     []string            `json:"dates"`
	Hours     []int               `json:"hours,omitempty"`
	Breakdown BreakdownResponse   `json:"breakdown"`
	Shares    []BreakdownResponse `json:"shares"`
}

func NewQuoteResponse(q *reservation.Quote) QuoteResponse {
	shares := make([]BreakdownResponse, len(q.Shares))
	for i, s := range q.Shares {
		shares[i] = BreakdownResponse{Subtotal: s.Subtotal, ServiceFee: s.ServiceFee, CautionFee: s.CautionFee, Total: s.Total}
	}
	return QuoteResponse{
		Dates:     q.Dates,
		Hours:     q.Hours,
		Breakdown: NewBreakdownResponse(q.Breakdown),
		Shares:    shares,
	}
}

type BookingResponse struct {
	ID                string     `json:"id"`
	ListingID         string     `json:"listing_id"`
	UserID            string     `json:"user_id"`
	Date              string     `json:"date"`
	Duration          int        `json:"duration"`
	Hours             []int      `json:"hours,omitempty"`
	TotalPrice        float64    `json:"total_price"`
	ServiceFee        float64    `json:"service_fee"`
	CautionFee        float64    `json:"caution_fee"`
	Status            string     `json:"status"`
	PaymentStatus     string     `json:"payment_status,omitempty"`
	EscrowReleaseDate *time.Time `json:"escrow_release_date,omitempty"`
	GroupID           string     `json:"group_id,omitempty"`
	GuestCount        int        `json:"guest_count"`
	SelectedAddOns    []string   `json:"selected_add_ons"`
	TransactionIDs    []string   `json:"transaction_ids"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	addOns := b.SelectedAddOns
	if addOns == nil {
		addOns = []string{}
	}
	txIDs := b.TransactionIDs
	if txIDs == nil {
		txIDs = []string{}
	}
	return BookingResponse{
		ID:                b.ID,
		ListingID:         b.ListingID,
		UserID:            b.UserID,
		Date:              b.Date,
		Duration:          b.Duration,
		Hours:             b.Hours,
		TotalPrice:        b.TotalPrice,
		ServiceFee:        b.ServiceFee,
		CautionFee:        b.CautionFee,
		Status:            string(b.Status),
		PaymentStatus:     string(b.PaymentStatus),
		EscrowReleaseDate: b.EscrowReleaseDate,
		GroupID:           b.GroupID,
		GuestCount:        b.GuestCount,
		SelectedAddOns:    addOns,
		TransactionIDs:    txIDs,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

func NewBookingResponses(list []*booking.Booking) []BookingResponse {
	items := make([]BookingResponse, len(list))
	for i, b := range list {
		items[i] = NewBookingResponse(b)
	}
	return items
}

type CreateBookingResponse struct {
	GroupID          string            `json:"group_id,omitempty"`
	PaymentReference string            `json:"payment_reference,omitempty"`
	Breakdown        BreakdownResponse `json:"breakdown"`
	Bookings         []BookingResponse `json:"bookings"`
}

type PayoutResponse struct {
	TransactionID string    `json:"transaction_id"`
	BookingID     string    `json:"booking_id"`
	Amount        float64   `json:"amount"`
	ToUserID      string    `json:"to_user_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// ConflictResponse names the date, and for hourly listings the hour, that
// blocked a booking.
type ConflictResponse struct {
	Error  string `json:"error"`
	Date   string `json:"date"`
	Hour   *int   `json:"hour,omitempty"`
	Status string `json:"status"`
}
