package listing

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps listings in process. It backs tests and the
// database-less dev mode.
type MemoryRepository struct {
	mu       sync.RWMutex
	listings map[string]*Listing
}

func NewMemoryRepository(seed ...*Listing) *MemoryRepository {
	r := &MemoryRepository{listings: make(map[string]*Listing)}
	for _, l := range seed {
		r.Put(l)
	}
	return r
}

// Put inserts or replaces a listing.
func (r *MemoryRepository) Put(l *Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.listings[l.ID] = &cp
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]*Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids map[string]struct{}
	if filter.IDs != nil {
		ids = make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}

	var out []*Listing
	for _, l := range r.listings {
		if filter.HostID != "" && l.HostID != filter.HostID {
			continue
		}
		if ids != nil {
			if _, ok := ids[l.ID]; !ok {
				continue
			}
		}
		if filter.ActiveOnly && !l.IsActive {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
