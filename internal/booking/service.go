package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/space-booking-backend/internal/listing"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/dateutil"
)

// Service is the booking store. It owns the lifecycle fields of a booking but
// does not check availability; callers must do that before creating rows.
type Service interface {
	Create(ctx context.Context, b *Booking) error
	// CreateSeries persists sibling bookings atomically under one group id.
	CreateSeries(ctx context.Context, bookings []*Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Booking, error)

	// UpdatePaymentStatus swaps the payment status from -> to and appends
	// txIDs. It returns ErrPaymentConflict when the stored status is not from.
	UpdatePaymentStatus(ctx context.Context, id string, from, to PaymentStatus, txIDs ...string) error
	AppendTransactionIDs(ctx context.Context, id string, txIDs ...string) error

	ListByListing(ctx context.Context, listingID string, excludeCancelled bool) ([]*Booking, error)
	ListByUser(ctx context.Context, userID string) ([]*Booking, error)
	ListByHost(ctx context.Context, hostID string, listings []*listing.Listing) ([]*Booking, error)
	ListDueForRelease(ctx context.Context, now time.Time) ([]*Booking, error)
	CountInEscrow(ctx context.Context) (int, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, b *Booking) error {
	return s.CreateSeries(ctx, []*Booking{b})
}

func (s *service) CreateSeries(ctx context.Context, bookings []*Booking) error {
	for _, b := range bookings {
		if err := prepare(b); err != nil {
			return err
		}
	}
	return s.repo.CreateMany(ctx, bookings)
}

func prepare(b *Booking) error {
	if b.Status == "" {
		return ErrMissingStatus
	}
	if !b.Status.Valid() {
		return ErrInvalidStatus
	}
	if !dateutil.Valid(b.Date) {
		return ErrInvalidDate
	}
	if b.Duration < 1 {
		return ErrInvalidDuration
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateStatus(ctx context.Context, id string, status Status) (*Booking, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(b.Status, status) {
		return nil, ErrInvalidTransition
	}

	// Guard on the status we validated against so a concurrent change wins cleanly.
	ok, err := s.repo.UpdateStatus(ctx, id, b.Status, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	b.Status = status
	return b, nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, id string, from, to PaymentStatus, txIDs ...string) error {
	ok, err := s.repo.CompareAndSwapPaymentStatus(ctx, id, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPaymentConflict
	}
	if len(txIDs) == 0 {
		return nil
	}
	return s.repo.AppendTransactionIDs(ctx, id, txIDs)
}

func (s *service) AppendTransactionIDs(ctx context.Context, id string, txIDs ...string) error {
	return s.repo.AppendTransactionIDs(ctx, id, txIDs)
}

func (s *service) ListByListing(ctx context.Context, listingID string, excludeCancelled bool) ([]*Booking, error) {
	return s.repo.List(ctx, Filter{ListingID: listingID, ExcludeCancelled: excludeCancelled})
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]*Booking, error) {
	return s.repo.List(ctx, Filter{UserID: userID})
}

func (s *service) ListByHost(ctx context.Context, hostID string, listings []*listing.Listing) ([]*Booking, error) {
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		if l.HostID == hostID {
			ids = append(ids, l.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.List(ctx, Filter{ListingIDs: ids})
}

func (s *service) ListDueForRelease(ctx context.Context, now time.Time) ([]*Booking, error) {
	status := PaymentEscrow
	return s.repo.List(ctx, Filter{PaymentStatus: &status, ReleaseDueBefore: &now, ExcludeCancelled: true})
}

func (s *service) CountInEscrow(ctx context.Context) (int, error) {
	status := PaymentEscrow
	bookings, err := s.repo.List(ctx, Filter{PaymentStatus: &status})
	if err != nil {
		return 0, err
	}
	return len(bookings), nil
}
