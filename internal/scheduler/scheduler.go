// Package scheduler releases escrowed funds to hosts once a booking's
// release date has passed. It polls on a fixed interval; each due booking is
// handled on its own so one failure never blocks the rest of a check.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/space-booking-backend/internal/booking"
	"github.com/nekogravitycat/space-booking-backend/internal/escrow"
	"github.com/nekogravitycat/space-booking-backend/internal/listing"
	"github.com/nekogravitycat/space-booking-backend/internal/lock"
)

const (
	DefaultInterval = time.Minute
	leaseKey        = "scheduler:release-check"
)

type BookingSource interface {
	ListDueForRelease(ctx context.Context, now time.Time) ([]*booking.Booking, error)
}

type ListingSource interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]*listing.Listing, error)
}

// OnRelease is told about every successful payout.
type OnRelease func(bookingID string, amount float64)

type Result struct {
	Due      int `json:"due"`
	Released int `json:"released"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

type Options struct {
	Interval time.Duration
	// Locker, when set, makes checks exclusive across instances.
	Locker   lock.Locker
	LeaseTTL time.Duration
	Now      func() time.Time
}

type Scheduler struct {
	bookings BookingSource
	listings ListingSource
	ledger   escrow.Ledger
	logger   *logrus.Logger

	interval time.Duration
	locker   lock.Locker
	leaseTTL time.Duration
	now      func() time.Time

	checkMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(bookings BookingSource, listings ListingSource, ledger escrow.Ledger, logger *logrus.Logger, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = opts.Interval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		bookings: bookings,
		listings: listings,
		ledger:   ledger,
		logger:   logger,
		interval: opts.Interval,
		locker:   opts.Locker,
		leaseTTL: opts.LeaseTTL,
		now:      opts.Now,
	}
}

// Start runs a check right away and then one per interval until Stop or ctx
// ends. Calling Start on a running scheduler replaces the previous loop.
func (s *Scheduler) Start(ctx context.Context, onRelease OnRelease) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.loop(loopCtx, done, onRelease)
	s.logger.WithField("interval", s.interval.String()).Info("release scheduler started")
}

// Stop cancels the loop and waits for an in-flight check to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopLocked() {
		s.logger.Info("release scheduler stopped")
	}
}

func (s *Scheduler) stopLocked() bool {
	if s.cancel == nil {
		return false
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	return true
}

// Running reports whether a loop is still ticking. A loop whose parent
// context ended counts as stopped even before Stop is called.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}, onRelease OnRelease) {
	defer close(done)

	s.tick(ctx, onRelease)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, onRelease)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, onRelease OnRelease) {
	if _, err := s.TriggerCheck(ctx, onRelease); err != nil {
		switch {
		case errors.Is(err, lock.ErrBusy):
			s.logger.Debug("release check skipped, another instance holds the lease")
		case ctx.Err() != nil:
		default:
			s.logger.WithError(err).Error("release check failed")
		}
	}
}

// TriggerCheck runs one check now. Checks never overlap; a concurrent caller
// waits for the running one to finish.
func (s *Scheduler) TriggerCheck(ctx context.Context, onRelease OnRelease) (Result, error) {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()

	if s.locker != nil {
		release, ok, err := s.locker.TryAcquire(ctx, leaseKey, s.leaseTTL)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, lock.ErrBusy
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.WithError(err).Warn("failed to release scheduler lease")
			}
		}()
	}

	return s.check(ctx, onRelease)
}

func (s *Scheduler) check(ctx context.Context, onRelease OnRelease) (Result, error) {
	var result Result

	due, err := s.bookings.ListDueForRelease(ctx, s.now())
	if err != nil {
		return result, err
	}
	result.Due = len(due)
	if len(due) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(due))
	for _, b := range due {
		ids = append(ids, b.ListingID)
	}
	listings, err := s.listings.GetByIDs(ctx, ids)
	if err != nil {
		return result, err
	}

	for _, b := range due {
		if ctx.Err() != nil {
			// Unprocessed bookings stay due and are picked up next time.
			return result, ctx.Err()
		}

		entry := s.logger.WithFields(logrus.Fields{"booking_id": b.ID, "listing_id": b.ListingID})

		l, ok := listings[b.ListingID]
		if !ok {
			entry.Warn("listing not found, skipping escrow release")
			result.Skipped++
			continue
		}

		payout, err := s.ledger.ReleaseToHost(ctx, b, l.HostID)
		switch {
		case errors.Is(err, escrow.ErrAlreadyReleased), errors.Is(err, escrow.ErrNotInEscrow):
			entry.Info("booking settled elsewhere, skipping")
			result.Skipped++
		case errors.Is(err, escrow.ErrBookingCancelled):
			entry.Warn("cancelled booking still holds escrow, refund pending")
			result.Skipped++
		case err != nil:
			entry.WithError(err).Error("escrow release failed")
			result.Failed++
		default:
			result.Released++
			entry.WithField("amount", payout.Amount).Info("escrow released to host")
			if onRelease != nil {
				onRelease(b.ID, payout.Amount)
			}
		}
	}

	if result.Released > 0 || result.Failed > 0 {
		s.logger.WithFields(logrus.Fields{
			"due":      result.Due,
			"released": result.Released,
			"skipped":  result.Skipped,
			"failed":   result.Failed,
		}).Info("release check finished")
	}
	return result, nil
}
