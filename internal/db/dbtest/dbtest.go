// Package dbtest opens the Postgres database used by repository tests.
// Tests are skipped when TEST_DB_DSN is not set.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-booking-backend/internal/db"
)

// Open connects to TEST_DB_DSN and applies the schema. Tests share the
// database with other packages, so they must only assert on rows they
// created themselves.
func Open(t testing.TB) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	return pool
}

// CreateUser inserts an active, verified user and returns its id.
func CreateUser(t testing.TB, pool *pgxpool.Pool, isAdmin bool) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO public.users (id, email, is_active, is_verified, is_system_admin) VALUES ($1, $2, true, true, $3)`,
		id, id+"@test.local", isAdmin)
	require.NoError(t, err)
	return id
}

// CreateListing inserts a daily listing owned by hostID. availability and
// addOns are raw JSON documents; an empty availability stores NULL.
func CreateListing(t testing.TB, pool *pgxpool.Pool, hostID, availability, addOns string) string {
	t.Helper()
	id := uuid.NewString()
	var avail any
	if availability != "" {
		avail = availability
	}
	if addOns == "" {
		addOns = "[]"
	}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO public.listings (id, host_id, title, price, price_unit, availability, capacity, included_guests,
			price_per_extra_guest, caution_fee, add_ons, settings)
		 VALUES ($1, $2, 'Test Loft', 100, 'Daily', $3::jsonb, 4, 2, 15, 20, $4::jsonb, '{"allowRecurring": true}')`,
		id, hostID, avail, addOns)
	require.NoError(t, err)
	return id
}

// CreateBooking inserts a pending booking held in escrow and returns its id.
func CreateBooking(t testing.TB, pool *pgxpool.Pool, listingID, userID string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO public.bookings (id, listing_id, user_id, date, duration, total_price, service_fee, caution_fee, status, payment_status)
		 VALUES ($1, $2, $3, '2025-06-10', 1, 120, 12, 20, 'Pending', 'Paid - Escrow')`,
		id, listingID, userID)
	require.NoError(t, err)
	return id
}
