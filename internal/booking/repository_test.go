package booking

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-booking-backend/internal/db/dbtest"
)

type pgxFixture struct {
	pool      *pgxpool.Pool
	repo      Repository
	guestID   string
	listingID string
}

func newPgxFixture(t *testing.T) *pgxFixture {
	pool := dbtest.Open(t)
	hostID := dbtest.CreateUser(t, pool, false)
	return &pgxFixture{
		pool:      pool,
		repo:      NewPgxRepository(pool),
		guestID:   dbtest.CreateUser(t, pool, false),
		listingID: dbtest.CreateListing(t, pool, hostID, "", ""),
	}
}

func (f *pgxFixture) booking(date string) *Booking {
	return &Booking{
		ID:         uuid.NewString(),
		ListingID:  f.listingID,
		UserID:     f.guestID,
		Date:       date,
		Duration:   1,
		TotalPrice: 120,
		ServiceFee: 12,
		CautionFee: 20,
		Status:     StatusPending,
		GuestCount: 1,
	}
}

func TestPgxRepositoryCreateAndGet(t *testing.T) {
	f := newPgxFixture(t)
	ctx := context.Background()

	release := time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)
	b := f.booking("2025-06-10")
	b.Hours = []int{9, 10}
	b.SelectedAddOns = []string{"cleaning"}
	b.PaymentStatus = PaymentEscrow
	b.EscrowReleaseDate = &release
	b.GroupID = "grp-1"

	require.NoError(t, f.repo.CreateMany(ctx, []*Booking{b}))
	assert.False(t, b.CreatedAt.IsZero())

	got, err := f.repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", got.Date)
	assert.Equal(t, []int{9, 10}, got.Hours)
	assert.Equal(t, []string{"cleaning"}, got.SelectedAddOns)
	assert.Empty(t, got.TransactionIDs)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, PaymentEscrow, got.PaymentStatus)
	require.NotNil(t, got.EscrowReleaseDate)
	assert.True(t, release.Equal(*got.EscrowReleaseDate))
	assert.Equal(t, "grp-1", got.GroupID)

	_, err = f.repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPgxRepositoryCreateManyRollsBackOnDuplicateID(t *testing.T) {
	f := newPgxFixture(t)
	ctx := context.Background()

	existing := f.booking("2025-06-10")
	require.NoError(t, f.repo.CreateMany(ctx, []*Booking{existing}))

	fresh := f.booking("2025-06-17")
	clash := f.booking("2025-06-24")
	clash.ID = existing.ID

	err := f.repo.CreateMany(ctx, []*Booking{fresh, clash})
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = f.repo.GetByID(ctx, fresh.ID)
	assert.ErrorIs(t, err, ErrNotFound, "rows inserted before the clash must be rolled back")

	got, err := f.repo.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", got.Date)
}

func TestPgxRepositoryCompareAndSwapPaymentStatus(t *testing.T) {
	f := newPgxFixture(t)
	ctx := context.Background()

	b := f.booking("2025-06-10")
	b.PaymentStatus = PaymentEscrow
	require.NoError(t, f.repo.CreateMany(ctx, []*Booking{b}))

	t.Run("only one concurrent swap wins", func(t *testing.T) {
		const racers = 8
		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		start := make(chan struct{})
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				ok, err := f.repo.CompareAndSwapPaymentStatus(ctx, b.ID, PaymentEscrow, PaymentReleased)
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		got, err := f.repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, PaymentReleased, got.PaymentStatus)
	})

	t.Run("stale from value loses", func(t *testing.T) {
		ok, err := f.repo.CompareAndSwapPaymentStatus(ctx, b.ID, PaymentEscrow, PaymentRefunded)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := f.repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, PaymentReleased, got.PaymentStatus)
	})

	t.Run("unknown booking does not swap", func(t *testing.T) {
		ok, err := f.repo.CompareAndSwapPaymentStatus(ctx, uuid.NewString(), PaymentEscrow, PaymentReleased)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPgxRepositoryUpdateStatus(t *testing.T) {
	f := newPgxFixture(t)
	ctx := context.Background()

	b := f.booking("2025-06-10")
	require.NoError(t, f.repo.CreateMany(ctx, []*Booking{b}))

	ok, err := f.repo.UpdateStatus(ctx, b.ID, StatusPending, StatusConfirmed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.repo.UpdateStatus(ctx, b.ID, StatusPending, StatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestPgxRepositoryListReleaseDue(t *testing.T) {
	f := newPgxFixture(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	exact := now
	future := now.Add(time.Hour)

	due := f.booking("2025-06-10")
	due.PaymentStatus = PaymentEscrow
	due.EscrowReleaseDate = &past

	dueNow := f.booking("2025-06-11")
	dueNow.PaymentStatus = PaymentEscrow
	dueNow.EscrowReleaseDate = &exact

	notYet := f.booking("2025-06-12")
	notYet.PaymentStatus = PaymentEscrow
	notYet.EscrowReleaseDate = &future

	cancelled := f.booking("2025-06-13")
	cancelled.Status = StatusCancelled
	cancelled.PaymentStatus = PaymentEscrow
	cancelled.EscrowReleaseDate = &past

	released := f.booking("2025-06-14")
	released.PaymentStatus = PaymentReleased
	released.EscrowReleaseDate = &past

	unpaid := f.booking("2025-06-15")

	require.NoError(t, f.repo.CreateMany(ctx, []*Booking{due, dueNow, notYet, cancelled, released, unpaid}))

	escrow := PaymentEscrow
	got, err := f.repo.List(ctx, Filter{
		ListingID:        f.listingID,
		PaymentStatus:    &escrow,
		ReleaseDueBefore: &now,
		ExcludeCancelled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{due.ID, dueNow.ID}, bookingIDs(got))

	got, err = f.repo.List(ctx, Filter{
		ListingID:        f.listingID,
		PaymentStatus:    &escrow,
		ReleaseDueBefore: &now,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{due.ID, dueNow.ID, cancelled.ID}, bookingIDs(got))

	got, err = f.repo.List(ctx, Filter{ListingIDs: []string{f.listingID}, UserID: f.guestID})
	require.NoError(t, err)
	assert.Len(t, got, 6)
}

func TestPgxRepositoryAppendTransactionIDs(t *testing.T) {
	f := newPgxFixture(t)
	ctx := context.Background()

	b := f.booking("2025-06-10")
	b.TransactionIDs = []string{"tx-1"}
	require.NoError(t, f.repo.CreateMany(ctx, []*Booking{b}))

	require.NoError(t, f.repo.AppendTransactionIDs(ctx, b.ID, []string{"tx-2", "tx-3"}))
	require.NoError(t, f.repo.AppendTransactionIDs(ctx, b.ID, nil))

	got, err := f.repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx-1", "tx-2", "tx-3"}, got.TransactionIDs)

	err = f.repo.AppendTransactionIDs(ctx, uuid.NewString(), []string{"tx-4"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func bookingIDs(bookings []*Booking) []string {
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	return ids
}
