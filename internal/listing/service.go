package listing

import (
	"context"
)

type Service interface {
	GetByID(ctx context.Context, id string) (*Listing, error)
	// GetByIDs returns the listings found, keyed by id. Missing ids are simply absent.
	GetByIDs(ctx context.Context, ids []string) (map[string]*Listing, error)
	ListByHost(ctx context.Context, hostID string) ([]*Listing, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id string) (*Listing, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByIDs(ctx context.Context, ids []string) (map[string]*Listing, error) {
	out := make(map[string]*Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	listings, err := s.repo.List(ctx, Filter{IDs: ids})
	if err != nil {
		return nil, err
	}
	for _, l := range listings {
		out[l.ID] = l
	}
	return out, nil
}

func (s *service) ListByHost(ctx context.Context, hostID string) ([]*Listing, error) {
	return s.repo.List(ctx, Filter{HostID: hostID})
}
