package app

import (
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/listing"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/dateutil"
	"github.com/nekogravitycat/space-booking-backend/internal/user"
)

// Fixed ids for the demo data so local clients can hard-code them.
const (
	DemoHostID     = "6f1c2a8e-0000-4000-8000-000000000001"
	DemoGuestID    = "6f1c2a8e-0000-4000-8000-000000000002"
	DemoAdminID    = "6f1c2a8e-0000-4000-8000-000000000003"
	DemoLoftID     = "6f1c2a8e-0000-4000-8000-000000000101"
	DemoStudioID   = "6f1c2a8e-0000-4000-8000-000000000102"
	demoOpenDays   = 90
	demoWalletFund = 5000
)

// SeedDemo fills the in-memory stores with a host, a guest, an admin and two
// listings opened for the next few months. It does nothing when the
// container is backed by a database.
func (c *Container) SeedDemo(now time.Time) []*user.User {
	if c.Listings == nil || c.Users == nil {
		return nil
	}

	users := []*user.User{
		{ID: DemoHostID, Email: "host@example.com", IsActive: true, IsVerified: true, CreatedAt: now},
		{ID: DemoGuestID, Email: "guest@example.com", IsActive: true, IsVerified: true, CreatedAt: now},
		{ID: DemoAdminID, Email: "admin@example.com", IsActive: true, IsVerified: true, IsSystemAdmin: true, CreatedAt: now},
	}
	for _, u := range users {
		c.Users.Put(u)
	}
	c.Gateway.TopUp(DemoGuestID, demoWalletFund)

	start := dateutil.Format(now)
	daily := listing.Availability{}
	hourly := listing.Availability{}
	for i := 0; i < demoOpenDays; i++ {
		d, err := dateutil.AddDays(start, i)
		if err != nil {
			break
		}
		daily[d] = nil
		hourly[d] = []int{9, 10, 11, 12, 13, 14, 15, 16, 17}
	}

	c.Listings.Put(&listing.Listing{
		ID:                 DemoLoftID,
		HostID:             DemoHostID,
		Title:              "Harbour Loft",
		Price:              100,
		PriceUnit:          listing.PriceUnitDaily,
		Availability:       daily,
		Capacity:           4,
		IncludedGuests:     2,
		PricePerExtraGuest: 15,
		CautionFee:         20,
		AddOns:             []listing.AddOn{{ID: "cleaning", Name: "Cleaning", Price: 30}},
		Settings:           listing.Settings{AllowRecurring: true},
		IsActive:           true,
		CreatedAt:          now,
	})
	c.Listings.Put(&listing.Listing{
		ID:           DemoStudioID,
		HostID:       DemoHostID,
		Title:        "Recording Studio",
		Price:        40,
		PriceUnit:    listing.PriceUnitHourly,
		Availability: hourly,
		Capacity:     6,
		Settings:     listing.Settings{AllowRecurring: true},
		IsActive:     true,
		CreatedAt:    now,
	})

	return users
}
