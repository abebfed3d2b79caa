package escrow

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
)

var (
	ErrDuplicatePayout     = apperror.New(http.StatusConflict, "booking already has a host payout")
	ErrAlreadyReleased     = apperror.New(http.StatusConflict, "escrow already released for this booking")
	ErrNotInEscrow         = apperror.New(http.StatusConflict, "booking has no funds held in escrow")
	ErrInvalidRefundAmount = apperror.New(http.StatusBadRequest, "refund amount must be between 0 and the booking total")
	ErrInvalidAmount       = apperror.New(http.StatusBadRequest, "transaction amount must not be negative")
	ErrBookingCancelled    = apperror.New(http.StatusConflict, "cancelled bookings are refunded, not paid out")
)

type Type string

const (
	TypeGuestPayment Type = "GUEST_PAYMENT"
	TypeServiceFee   Type = "SERVICE_FEE"
	TypeHostPayout   Type = "HOST_PAYOUT"
	TypeRefund       Type = "REFUND"
)

type TxStatus string

const (
	StatusPending   TxStatus = "PENDING"
	StatusCompleted TxStatus = "COMPLETED"
	StatusFailed    TxStatus = "FAILED"
)

// Transaction is an immutable ledger row. Payments and fees carry the guest
// in FromUserID; payouts and refunds carry the recipient in ToUserID.
type Transaction struct {
	ID                string            `json:"id"`
	BookingID         string            `json:"bookingId"`
	Type              Type              `json:"type"`
	Amount            float64           `json:"amount"`
	Status            TxStatus          `json:"status"`
	Timestamp         time.Time         `json:"timestamp"`
	FromUserID        string            `json:"fromUserId,omitempty"`
	ToUserID          string            `json:"toUserId,omitempty"`
	PaystackReference string            `json:"paystackReference,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// PlatformFinancials is derived from the ledger on demand and never stored.
type PlatformFinancials struct {
	TotalPayments  float64 `json:"totalPayments"`
	TotalEscrow    float64 `json:"totalEscrow"`
	TotalReleased  float64 `json:"totalReleased"`
	TotalRevenue   float64 `json:"totalRevenue"`
	TotalRefunded  float64 `json:"totalRefunded"`
	PendingPayouts int     `json:"pendingPayouts"`
}

// Aggregate sums completed rows. Pending and failed rows do not move money.
func Aggregate(txs []*Transaction, pendingPayouts int) PlatformFinancials {
	var f PlatformFinancials
	for _, tx := range txs {
		if tx.Status != StatusCompleted {
			continue
		}
		switch tx.Type {
		case TypeGuestPayment:
			f.TotalPayments += tx.Amount
		case TypeServiceFee:
			f.TotalRevenue += tx.Amount
		case TypeHostPayout:
			f.TotalReleased += tx.Amount
		case TypeRefund:
			f.TotalRefunded += tx.Amount
		}
	}
	f.TotalEscrow = f.TotalPayments - f.TotalReleased - f.TotalRefunded
	f.PendingPayouts = pendingPayouts
	return f
}

type Filter struct {
	BookingID string
	Type      Type
}
