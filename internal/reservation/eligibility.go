package reservation

import (
	"github.com/nekogravitycat/space-booking-backend/internal/listing"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-booking-backend/internal/user"
)

// IsEligibleToBook reports whether u may book l, using committed state only.
func IsEligibleToBook(u *user.User, l *listing.Listing) bool {
	return eligibilityError(u, l) == nil
}

func eligibilityError(u *user.User, l *listing.Listing) error {
	switch {
	case u == nil || l == nil:
		return ErrNotEligible
	case !u.IsActive:
		return apperror.Wrap(ErrNotEligible, ErrNotEligible.Code, "account is inactive")
	case !u.IsVerified:
		return apperror.Wrap(ErrNotEligible, ErrNotEligible.Code, "identity verification is required before booking")
	case u.ID == l.HostID:
		return apperror.Wrap(ErrNotEligible, ErrNotEligible.Code, "hosts cannot book their own listing")
	case !l.IsActive:
		return apperror.Wrap(ErrNotEligible, ErrNotEligible.Code, "listing is not accepting bookings")
	}
	return nil
}
