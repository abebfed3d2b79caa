package escrow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-booking-backend/internal/logging"
)

func TestSQLRepositoryAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLRepository(db, logging.Discard())
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	t.Run("inserts every row in one statement", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO public\\.escrow_transactions").
			WithArgs(
				"tx-1", "b-1", "GUEST_PAYMENT", 399.5, "COMPLETED", now, "guest-1", "", "ref", "{}",
				"tx-2", "b-1", "SERVICE_FEE", 34.5, "COMPLETED", now, "guest-1", "", "ref", "{}",
			).
			WillReturnResult(sqlmock.NewResult(0, 2))

		err := repo.Append(ctx, []*Transaction{
			{ID: "tx-1", BookingID: "b-1", Type: TypeGuestPayment, Amount: 399.5, Status: StatusCompleted, Timestamp: now, FromUserID: "guest-1", PaystackReference: "ref"},
			{ID: "tx-2", BookingID: "b-1", Type: TypeServiceFee, Amount: 34.5, Status: StatusCompleted, Timestamp: now, FromUserID: "guest-1", PaystackReference: "ref"},
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps the payout index violation", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO public\\.escrow_transactions").
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "ux_escrow_payout_per_booking"})

		err := repo.Append(ctx, []*Transaction{
			{ID: "tx-3", BookingID: "b-1", Type: TypeHostPayout, Amount: 345, Status: StatusCompleted, Timestamp: now, ToUserID: "host-1"},
		})
		assert.ErrorIs(t, err, ErrDuplicatePayout)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps other failures", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO public\\.escrow_transactions").
			WillReturnError(errors.New("connection reset"))

		err := repo.Append(ctx, []*Transaction{{ID: "tx-4", BookingID: "b-2", Type: TypeRefund, Status: StatusCompleted, Timestamp: now}})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrDuplicatePayout)
		assert.Contains(t, err.Error(), "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.Append(ctx, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLRepositoryList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLRepository(db, logging.Discard())
	now := time.Date(2025, 6, 11, 14, 0, 0, 0, time.UTC)
	columns := []string{"id", "booking_id", "type", "amount", "status", "timestamp", "from_user_id", "to_user_id", "paystack_reference", "metadata"}

	mock.ExpectQuery("SELECT (.+) FROM public\\.escrow_transactions WHERE booking_id = \\$1 ORDER BY timestamp ASC, id ASC").
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("tx-1", "b-1", "GUEST_PAYMENT", 399.5, "COMPLETED", now, "guest-1", "", "ref", []byte(`{}`)).
			AddRow("tx-2", "b-1", "REFUND", 100.0, "COMPLETED", now, "", "guest-1", "", []byte(`{"reason":"host cancelled"}`)).
			AddRow("tx-3", "b-1", "HOST_PAYOUT", 0.0, "FAILED", now, "", "host-1", "", []byte(`not json`)))

	txs, err := repo.List(context.Background(), Filter{BookingID: "b-1"})
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.Equal(t, TypeGuestPayment, txs[0].Type)
	assert.Equal(t, 399.5, txs[0].Amount)
	assert.Equal(t, "host cancelled", txs[1].Metadata["reason"])
	assert.Nil(t, txs[2].Metadata)
	assert.Equal(t, StatusFailed, txs[2].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
