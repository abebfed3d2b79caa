package escrow

import (
	"context"
	"maps"
	"sync"
)

// MemoryRepository keeps the ledger in process and enforces the same
// one-payout-per-booking rule as the SQL unique index.
type MemoryRepository struct {
	mu      sync.RWMutex
	txs     []*Transaction
	payouts map[string]struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		payouts: make(map[string]struct{}),
	}
}

func (r *MemoryRepository) Append(ctx context.Context, txs []*Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batchPayouts := make(map[string]struct{})
	for _, tx := range txs {
		if tx.Type != TypeHostPayout {
			continue
		}
		if _, exists := r.payouts[tx.BookingID]; exists {
			return ErrDuplicatePayout
		}
		if _, exists := batchPayouts[tx.BookingID]; exists {
			return ErrDuplicatePayout
		}
		batchPayouts[tx.BookingID] = struct{}{}
	}

	for _, tx := range txs {
		cp := *tx
		cp.Metadata = maps.Clone(tx.Metadata)
		r.txs = append(r.txs, &cp)
		if tx.Type == TypeHostPayout {
			r.payouts[tx.BookingID] = struct{}{}
		}
	}
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Transaction
	for _, tx := range r.txs {
		if filter.BookingID != "" && tx.BookingID != filter.BookingID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		cp := *tx
		cp.Metadata = maps.Clone(tx.Metadata)
		out = append(out, &cp)
	}
	return out, nil
}
