package http

import (
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/escrow"
)

type TransactionResponse struct {
	ID                string            `json:"id"`
	BookingID         string            `json:"booking_id"`
	Type              string            `json:"type"`
	Amount            float64           `json:"amount"`
	Status            string            `json:"status"`
	Timestamp         time.Time         `json:"timestamp"`
	FromUserID        string            `json:"from_user_id,omitempty"`
	ToUserID          string            `json:"to_user_id,omitempty"`
	PaystackReference string            `json:"paystack_reference,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

func NewTransactionResponse(tx *escrow.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                tx.ID,
		BookingID:         tx.BookingID,
		Type:              string(tx.Type),
		Amount:            tx.Amount,
		Status:            string(tx.Status),
		Timestamp:         tx.Timestamp,
		FromUserID:        tx.FromUserID,
		ToUserID:          tx.ToUserID,
		PaystackReference: tx.PaystackReference,
		Metadata:          tx.Metadata,
	}
}

type FinancialsResponse struct {
	TotalPayments  float64 `json:"total_payments"`
	TotalEscrow    float64 `json:"total_escrow"`
	TotalReleased  float64 `json:"total_released"`
	TotalRevenue   float64 `json:"total_revenue"`
	TotalRefunded  float64 `json:"total_refunded"`
	PendingPayouts int     `json:"pending_payouts"`
}

func NewFinancialsResponse(f escrow.PlatformFinancials) FinancialsResponse {
	return FinancialsResponse{
		TotalPayments:  f.TotalPayments,
		TotalEscrow:    f.TotalEscrow,
		TotalReleased:  f.TotalReleased,
		TotalRevenue:   f.TotalRevenue,
		TotalRefunded:  f.TotalRefunded,
		PendingPayouts: f.PendingPayouts,
	}
}

type ReleaseCheckResponse struct {
	Due      int `json:"due"`
	Released int `json:"released"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
