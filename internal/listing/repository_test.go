package listing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-booking-backend/internal/db/dbtest"
	"github.com/nekogravitycat/space-booking-backend/internal/logging"
)

func TestPgxRepositoryGetByID(t *testing.T) {
	pool := dbtest.Open(t)
	repo := NewPgxRepository(pool, logging.Discard())
	ctx := context.Background()

	hostID := dbtest.CreateUser(t, pool, false)
	id := dbtest.CreateListing(t, pool, hostID,
		`{"2025-07-01": [9, 10, 11]}`,
		`[{"id": "cleaning", "name": "Cleaning", "price": 25.5}]`)

	l, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, hostID, l.HostID)
	assert.Equal(t, PriceUnitDaily, l.PriceUnit)
	assert.Equal(t, 100.0, l.Price)
	assert.Equal(t, 15.0, l.PricePerExtraGuest)
	assert.Equal(t, 20.0, l.CautionFee)
	assert.Equal(t, Availability{"2025-07-01": {9, 10, 11}}, l.Availability)
	assert.Equal(t, []AddOn{{ID: "cleaning", Name: "Cleaning", Price: 25.5}}, l.AddOns)
	assert.True(t, l.Settings.AllowRecurring)
	assert.True(t, l.IsActive)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPgxRepositoryAvailabilityFailsClosed(t *testing.T) {
	pool := dbtest.Open(t)
	repo := NewPgxRepository(pool, logging.Discard())
	ctx := context.Background()

	hostID := dbtest.CreateUser(t, pool, false)

	t.Run("null column", func(t *testing.T) {
		l, err := repo.GetByID(ctx, dbtest.CreateListing(t, pool, hostID, "", ""))
		require.NoError(t, err)
		assert.Nil(t, l.Availability)
	})

	t.Run("wrong shape", func(t *testing.T) {
		l, err := repo.GetByID(ctx, dbtest.CreateListing(t, pool, hostID, `["2025-07-01"]`, ""))
		require.NoError(t, err)
		assert.Nil(t, l.Availability)
	})
}

func TestPgxRepositoryList(t *testing.T) {
	pool := dbtest.Open(t)
	repo := NewPgxRepository(pool, logging.Discard())
	ctx := context.Background()

	hostID := dbtest.CreateUser(t, pool, false)
	otherHost := dbtest.CreateUser(t, pool, false)
	first := dbtest.CreateListing(t, pool, hostID, "", "")
	second := dbtest.CreateListing(t, pool, hostID, "", "")
	foreign := dbtest.CreateListing(t, pool, otherHost, "", "")

	_, err := pool.Exec(ctx, `UPDATE public.listings SET is_active = false WHERE id = $1`, second)
	require.NoError(t, err)

	got, err := repo.List(ctx, Filter{HostID: hostID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first, second}, listingIDs(got))

	got, err = repo.List(ctx, Filter{HostID: hostID, ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{first}, listingIDs(got))

	got, err = repo.List(ctx, Filter{IDs: []string{first, foreign}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first, foreign}, listingIDs(got))
}

func listingIDs(listings []*Listing) []string {
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	return ids
}
