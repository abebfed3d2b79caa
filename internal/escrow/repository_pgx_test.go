package escrow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-booking-backend/internal/db"
	"github.com/nekogravitycat/space-booking-backend/internal/db/dbtest"
	"github.com/nekogravitycat/space-booking-backend/internal/logging"
)

func TestSQLRepositoryAgainstPostgres(t *testing.T) {
	pool := dbtest.Open(t)
	sqlDB := db.OpenSQL(pool)
	t.Cleanup(func() { sqlDB.Close() })

	repo := NewSQLRepository(sqlDB, logging.Discard())
	ctx := context.Background()

	hostID := dbtest.CreateUser(t, pool, false)
	guestID := dbtest.CreateUser(t, pool, false)
	bookingID := dbtest.CreateBooking(t, pool, dbtest.CreateListing(t, pool, hostID, "", ""), guestID)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	payout := func() *Transaction {
		return &Transaction{
			ID: uuid.NewString(), BookingID: bookingID, Type: TypeHostPayout, Amount: 88,
			Status: StatusCompleted, Timestamp: now.Add(time.Hour), ToUserID: hostID,
		}
	}

	require.NoError(t, repo.Append(ctx, []*Transaction{
		{ID: uuid.NewString(), BookingID: bookingID, Type: TypeGuestPayment, Amount: 120, Status: StatusCompleted, Timestamp: now, FromUserID: guestID, PaystackReference: "ref-1", Metadata: map[string]string{"channel": "card"}},
		{ID: uuid.NewString(), BookingID: bookingID, Type: TypeServiceFee, Amount: 12, Status: StatusCompleted, Timestamp: now, FromUserID: guestID, PaystackReference: "ref-1"},
	}))

	t.Run("second payout hits the unique index", func(t *testing.T) {
		require.NoError(t, repo.Append(ctx, []*Transaction{payout()}))
		assert.ErrorIs(t, repo.Append(ctx, []*Transaction{payout()}), ErrDuplicatePayout)
	})

	t.Run("rows are listed in timestamp order", func(t *testing.T) {
		txs, err := repo.List(ctx, Filter{BookingID: bookingID})
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.Equal(t, TypeHostPayout, txs[2].Type)
		assert.Equal(t, 88.0, txs[2].Amount)

		payments, err := repo.List(ctx, Filter{BookingID: bookingID, Type: TypeGuestPayment})
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, "card", payments[0].Metadata["channel"])
	})

	t.Run("ledger rows cannot be updated", func(t *testing.T) {
		_, err := pool.Exec(ctx, `UPDATE public.escrow_transactions SET amount = 0 WHERE booking_id = $1`, bookingID)
		require.NoError(t, err)

		payouts, err := repo.List(ctx, Filter{BookingID: bookingID, Type: TypeHostPayout})
		require.NoError(t, err)
		require.Len(t, payouts, 1)
		assert.Equal(t, 88.0, payouts[0].Amount)
	})
}
