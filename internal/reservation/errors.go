package reservation

import (
	"net/http"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
)

var (
	ErrInvalidRequest      = apperror.New(http.StatusBadRequest, "invalid booking request")
	ErrNotEligible         = apperror.New(http.StatusForbidden, "user is not eligible to book this listing")
	ErrForbidden           = apperror.New(http.StatusForbidden, "permission denied")
	ErrOverCapacity        = apperror.New(http.StatusBadRequest, "guest count exceeds listing capacity")
	ErrRecurringNotAllowed = apperror.New(http.StatusBadRequest, "host does not accept recurring bookings")
	ErrHoursRequired       = apperror.New(http.StatusBadRequest, "hourly listings need at least one selected hour")
	ErrHoursNotAllowed     = apperror.New(http.StatusBadRequest, "daily listings do not take hours")
	ErrNotDraft            = apperror.New(http.StatusConflict, "only reserved drafts can be paid")
	ErrReconciliation      = apperror.New(http.StatusInternalServerError, "payment received but booking records are incomplete; support has been notified")
)
