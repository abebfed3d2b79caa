// Package escrow is the append-only money ledger: guest payments, platform
// fees, host payouts and refunds, plus the release-date rule and the
// financial aggregates derived from the log.
package escrow

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/space-booking-backend/internal/booking"
)

// BookingStore is the part of the booking store the ledger moves payment
// status through.
type BookingStore interface {
	GetByID(ctx context.Context, id string) (*booking.Booking, error)
	UpdatePaymentStatus(ctx context.Context, id string, from, to booking.PaymentStatus, txIDs ...string) error
	AppendTransactionIDs(ctx context.Context, id string, txIDs ...string) error
	CountInEscrow(ctx context.Context) (int, error)
}

type Ledger interface {
	// RecordGuestPayment writes the GUEST_PAYMENT and SERVICE_FEE pair for a
	// booking that was just paid into escrow.
	RecordGuestPayment(ctx context.Context, b *booking.Booking, guestID, reference string) ([]*Transaction, error)
	// ReleaseToHost pays the host exactly once per booking. A second call
	// returns ErrAlreadyReleased; a cancelled booking returns
	// ErrBookingCancelled.
	ReleaseToHost(ctx context.Context, b *booking.Booking, hostID string) (*Transaction, error)
	Refund(ctx context.Context, b *booking.Booking, guestID string, amount float64, reason string) (*Transaction, error)
	PlatformFinancials(ctx context.Context) (PlatformFinancials, error)
	Transactions(ctx context.Context, bookingID string) ([]*Transaction, error)
}

type ledger struct {
	repo     Repository
	bookings BookingStore
	logger   *logrus.Logger
	now      func() time.Time
}

func NewLedger(repo Repository, bookings BookingStore, logger *logrus.Logger) Ledger {
	return &ledger{
		repo:     repo,
		bookings: bookings,
		logger:   logger,
		now:      time.Now,
	}
}

func (l *ledger) newTransaction(b *booking.Booking, t Type, amount float64) *Transaction {
	return &Transaction{
		ID:        uuid.NewString(),
		BookingID: b.ID,
		Type:      t,
		Amount:    amount,
		Status:    StatusCompleted,
		Timestamp: l.now().UTC(),
	}
}

func (l *ledger) RecordGuestPayment(ctx context.Context, b *booking.Booking, guestID, reference string) ([]*Transaction, error) {
	if b.PaymentStatus != booking.PaymentEscrow {
		return nil, ErrNotInEscrow
	}
	if b.TotalPrice < 0 || b.ServiceFee < 0 {
		return nil, ErrInvalidAmount
	}

	payment := l.newTransaction(b, TypeGuestPayment, b.TotalPrice)
	payment.FromUserID = guestID
	payment.PaystackReference = reference

	fee := l.newTransaction(b, TypeServiceFee, b.ServiceFee)
	fee.FromUserID = guestID
	fee.PaystackReference = reference

	txs := []*Transaction{payment, fee}
	if err := l.repo.Append(ctx, txs); err != nil {
		return nil, err
	}

	ids := []string{payment.ID, fee.ID}
	if err := l.bookings.AppendTransactionIDs(ctx, b.ID, ids...); err != nil {
		// The rows are the source of truth; the booking only indexes them.
		l.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id":      b.ID,
			"transaction_ids": ids,
		}).Error("guest payment recorded but booking index not updated")
	}
	b.TransactionIDs = append(b.TransactionIDs, ids...)
	return txs, nil
}

func (l *ledger) ReleaseToHost(ctx context.Context, b *booking.Booking, hostID string) (*Transaction, error) {
	if b.Status == booking.StatusCancelled {
		return nil, ErrBookingCancelled
	}
	switch b.PaymentStatus {
	case booking.PaymentEscrow:
	case booking.PaymentReleased:
		return nil, ErrAlreadyReleased
	default:
		return nil, ErrNotInEscrow
	}

	// Claim the release first. Only one caller can win this swap.
	if err := l.bookings.UpdatePaymentStatus(ctx, b.ID, booking.PaymentEscrow, booking.PaymentReleased); err != nil {
		if errors.Is(err, booking.ErrPaymentConflict) {
			return nil, l.conflict(ctx, b.ID)
		}
		return nil, err
	}

	payout := l.newTransaction(b, TypeHostPayout, b.HostPayout())
	payout.ToUserID = hostID

	if err := l.repo.Append(ctx, []*Transaction{payout}); err != nil {
		if errors.Is(err, ErrDuplicatePayout) {
			// Paid out already; the booking status is now correct.
			return nil, ErrAlreadyReleased
		}
		l.revert(ctx, b.ID, booking.PaymentReleased, err)
		return nil, err
	}

	if err := l.bookings.AppendTransactionIDs(ctx, b.ID, payout.ID); err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id":     b.ID,
			"transaction_id": payout.ID,
		}).Error("host payout recorded but booking index not updated")
	}

	b.PaymentStatus = booking.PaymentReleased
	b.TransactionIDs = append(b.TransactionIDs, payout.ID)
	return payout, nil
}

func (l *ledger) Refund(ctx context.Context, b *booking.Booking, guestID string, amount float64, reason string) (*Transaction, error) {
	if math.IsNaN(amount) || amount < 0 || amount > b.TotalPrice {
		return nil, ErrInvalidRefundAmount
	}
	switch b.PaymentStatus {
	case booking.PaymentEscrow:
	case booking.PaymentReleased:
		return nil, ErrAlreadyReleased
	default:
		return nil, ErrNotInEscrow
	}

	if err := l.bookings.UpdatePaymentStatus(ctx, b.ID, booking.PaymentEscrow, booking.PaymentRefunded); err != nil {
		if errors.Is(err, booking.ErrPaymentConflict) {
			return nil, l.conflict(ctx, b.ID)
		}
		return nil, err
	}

	refund := l.newTransaction(b, TypeRefund, amount)
	refund.ToUserID = guestID
	if reason != "" {
		refund.Metadata = map[string]string{"reason": reason}
	}

	if err := l.repo.Append(ctx, []*Transaction{refund}); err != nil {
		l.revert(ctx, b.ID, booking.PaymentRefunded, err)
		return nil, err
	}

	if err := l.bookings.AppendTransactionIDs(ctx, b.ID, refund.ID); err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id":     b.ID,
			"transaction_id": refund.ID,
		}).Error("refund recorded but booking index not updated")
	}

	b.PaymentStatus = booking.PaymentRefunded
	b.TransactionIDs = append(b.TransactionIDs, refund.ID)
	return refund, nil
}

// conflict explains a lost payment status swap from the stored booking.
func (l *ledger) conflict(ctx context.Context, bookingID string) error {
	current, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if current.PaymentStatus == booking.PaymentReleased {
		return ErrAlreadyReleased
	}
	return ErrNotInEscrow
}

// revert hands a claimed booking back to escrow after the ledger write failed.
func (l *ledger) revert(ctx context.Context, bookingID string, claimed booking.PaymentStatus, cause error) {
	entry := l.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"claimed":    claimed,
		"cause":      cause.Error(),
	})
	if err := l.bookings.UpdatePaymentStatus(context.WithoutCancel(ctx), bookingID, claimed, booking.PaymentEscrow); err != nil {
		entry.WithError(err).Error("ledger write failed and payment status could not be reverted; reconcile manually")
		return
	}
	entry.Warn("ledger write failed, payment status reverted to escrow")
}

func (l *ledger) PlatformFinancials(ctx context.Context) (PlatformFinancials, error) {
	txs, err := l.repo.List(ctx, Filter{})
	if err != nil {
		return PlatformFinancials{}, err
	}
	pending, err := l.bookings.CountInEscrow(ctx)
	if err != nil {
		return PlatformFinancials{}, err
	}
	return Aggregate(txs, pending), nil
}

func (l *ledger) Transactions(ctx context.Context, bookingID string) ([]*Transaction, error) {
	return l.repo.List(ctx, Filter{BookingID: bookingID})
}
