package booking

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps bookings in process. All methods are safe for
// concurrent use; the compare-and-swap operations are atomic under the lock.
type MemoryRepository struct {
	mu       sync.RWMutex
	bookings map[string]*Booking
	order    []string
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bookings: make(map[string]*Booking),
		now:      time.Now,
	}
}

func (r *MemoryRepository) CreateMany(ctx context.Context, bookings []*Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(bookings))
	for _, b := range bookings {
		if _, exists := r.bookings[b.ID]; exists {
			return ErrDuplicateID
		}
		if _, dup := seen[b.ID]; dup {
			return ErrDuplicateID
		}
		seen[b.ID] = struct{}{}
	}

	now := r.now().UTC()
	for _, b := range bookings {
		b.CreatedAt = now
		b.UpdatedAt = now
		r.bookings[b.ID] = b.clone()
		r.order = append(r.order, b.ID)
	}
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b.clone(), nil
}

func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var listingIDs map[string]struct{}
	if filter.ListingIDs != nil {
		listingIDs = make(map[string]struct{}, len(filter.ListingIDs))
		for _, id := range filter.ListingIDs {
			listingIDs[id] = struct{}{}
		}
	}

	var out []*Booking
	for _, id := range r.order {
		b := r.bookings[id]
		if filter.ListingID != "" && b.ListingID != filter.ListingID {
			continue
		}
		if listingIDs != nil {
			if _, ok := listingIDs[b.ListingID]; !ok {
				continue
			}
		}
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.GroupID != "" && b.GroupID != filter.GroupID {
			continue
		}
		if filter.PaymentStatus != nil && b.PaymentStatus != *filter.PaymentStatus {
			continue
		}
		if filter.ReleaseDueBefore != nil {
			if b.EscrowReleaseDate == nil || b.EscrowReleaseDate.After(*filter.ReleaseDueBefore) {
				continue
			}
		}
		if filter.ExcludeCancelled && b.Status == StatusCancelled {
			continue
		}
		out = append(out, b.clone())
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return false, ErrNotFound
	}
	if b.Status != from {
		return false, nil
	}
	b.Status = to
	b.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *MemoryRepository) CompareAndSwapPaymentStatus(ctx context.Context, id string, from, to PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return false, ErrNotFound
	}
	if b.PaymentStatus != from {
		return false, nil
	}
	b.PaymentStatus = to
	b.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *MemoryRepository) AppendTransactionIDs(ctx context.Context, id string, txIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.TransactionIDs = append(b.TransactionIDs, txIDs...)
	b.UpdatedAt = r.now().UTC()
	return nil
}
