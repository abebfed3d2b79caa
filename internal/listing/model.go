package listing

import (
	"net/http"
	"sort"
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound = apperror.New(http.StatusNotFound, "listing not found")
)

type PriceUnit string

const (
	PriceUnitHourly PriceUnit = "Hourly"
	PriceUnitDaily  PriceUnit = "Daily"
)

// AddOn is an optional flat-priced extra a guest can select per occurrence.
type AddOn struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type Settings struct {
	AllowRecurring bool `json:"allowRecurring"`
}

// Availability maps an ISO date to the hours (0-23) the host opened on it.
// A date missing from the map was never opened. For daily listings only the
// presence of the key matters.
type Availability map[string][]int

// Hours returns the sorted, de-duplicated open hours for date, dropping
// anything outside [0, 23].
func (a Availability) Hours(date string) ([]int, bool) {
	raw, ok := a[date]
	if !ok {
		return nil, false
	}
	seen := make(map[int]struct{}, len(raw))
	hours := make([]int, 0, len(raw))
	for _, h := range raw {
		if h < 0 || h > 23 {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours, true
}

// Listing represents a bookable space owned by a host. This service treats
// listings as read-only reference data.
type Listing struct {
	ID                 string
	HostID             string
	Title              string
	Price              float64
	PriceUnit          PriceUnit
	Availability       Availability // nil means the host defined no map at all
	Capacity           int
	IncludedGuests     int
	PricePerExtraGuest float64
	CautionFee         float64
	AddOns             []AddOn
	Settings           Settings
	IsActive           bool
	CreatedAt          time.Time
}

func (l *Listing) IsHourly() bool {
	return l.PriceUnit == PriceUnitHourly
}

// AddOn looks up an add-on by id.
func (l *Listing) AddOn(id string) (AddOn, bool) {
	for _, a := range l.AddOns {
		if a.ID == id {
			return a, true
		}
	}
	return AddOn{}, false
}

// Filter defines parameters for listing listings.
type Filter struct {
	HostID     string
	IDs        []string
	ActiveOnly bool
}
