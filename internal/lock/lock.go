// Package lock provides short keyed leases. Booking creation holds one per
// listing across check-then-create, and the release scheduler holds one so
// only a single instance scans per tick.
package lock

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
)

var ErrBusy = apperror.New(http.StatusConflict, "resource is busy, please retry")

// Release gives a lease back. It is safe to call after the lease expired.
type Release func(ctx context.Context) error

type Locker interface {
	// TryAcquire takes key for ttl without waiting. ok is false when another
	// holder has it.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release Release, ok bool, err error)
}

const retryInterval = 25 * time.Millisecond

// Acquire retries TryAcquire until it succeeds, wait elapses or ctx ends.
func Acquire(ctx context.Context, l Locker, key string, ttl, wait time.Duration) (Release, error) {
	deadline := time.Now().Add(wait)
	for {
		release, ok, err := l.TryAcquire(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return release, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrBusy
		}

		timer := time.NewTimer(retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Join(ErrBusy, ctx.Err())
		case <-timer.C:
		}
	}
}
