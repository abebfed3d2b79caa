package user

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
)

var ErrNotFound = apperror.New(http.StatusNotFound, "user not found")

// User is the account data booking decisions depend on. Accounts are managed
// elsewhere; this service only reads them.
type User struct {
	ID            string // UUID
	Email         string
	DisplayName   *string
	CreatedAt     time.Time
	IsActive      bool
	IsVerified    bool
	IsSystemAdmin bool
}
