// Package reservation runs the booking flow end to end: eligibility,
// availability, pricing, payment, persistence and the escrow ledger.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/space-booking-backend/internal/availability"
	"github.com/nekogravitycat/space-booking-backend/internal/booking"
	"github.com/nekogravitycat/space-booking-backend/internal/escrow"
	"github.com/nekogravitycat/space-booking-backend/internal/listing"
	"github.com/nekogravitycat/space-booking-backend/internal/lock"
	"github.com/nekogravitycat/space-booking-backend/internal/payment"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/dateutil"
	"github.com/nekogravitycat/space-booking-backend/internal/pricing"
	"github.com/nekogravitycat/space-booking-backend/internal/user"
)

const (
	DefaultLockTTL  = 15 * time.Second
	DefaultLockWait = 3 * time.Second
)

// Request is a normalized booking request. Payment nil makes a Reserved
// draft with nothing charged.
type Request struct {
	ListingID        string                 `validate:"required"`
	UserID           string                 `validate:"required"`
	Dates            []string               `validate:"required,min=1,dive,datetime=2006-01-02"`
	DurationUnits    int                    `validate:"gte=0"`
	Hours            []int                  `validate:"omitempty,dive,min=0,max=23"`
	GuestCount       int                    `validate:"gte=1"`
	SelectedAddOnIDs []string               `validate:"omitempty,dive,required"`
	IsRecurring      bool
	RecurrenceFreq   availability.Frequency `validate:"omitempty,oneof=DAILY WEEKLY"`
	RecurrenceCount  int                    `validate:"omitempty,gte=2,lte=52"`
	Payment          *PaymentDetails
}

type PaymentDetails struct {
	Method    payment.Method `validate:"required,oneof=card wallet"`
	CardToken string         `validate:"required_if=Method card"`
}

type Quote struct {
	Dates     []string
	Hours     []int
	Breakdown pricing.Breakdown
	Shares    []pricing.Share
}

type Result struct {
	GroupID          string
	Bookings         []*booking.Booking
	Breakdown        pricing.Breakdown
	PaymentReference string
}

type DayAvailability struct {
	Date        string
	Status      availability.Status
	OpenHours   []int
	BookedHours []int
}

type Service interface {
	Availability(ctx context.Context, listingID, date string) (*DayAvailability, error)
	Quote(ctx context.Context, req Request) (*Quote, error)
	Create(ctx context.Context, req Request) (*Result, error)
	// Pay charges a Reserved draft and moves it to Pending with funds in escrow.
	Pay(ctx context.Context, bookingID, userID string, details PaymentDetails) (*booking.Booking, error)
	Confirm(ctx context.Context, bookingID, actorID string) (*booking.Booking, error)
	// Cancel cancels a booking and refunds escrowed funds. A nil refund
	// amount refunds the full booking total.
	Cancel(ctx context.Context, bookingID, actorID string, refundAmount *float64) (*booking.Booking, error)
	Release(ctx context.Context, bookingID, actorID string) (*escrow.Transaction, error)
	Get(ctx context.Context, bookingID, actorID string) (*booking.Booking, error)
	ListMine(ctx context.Context, userID string) ([]*booking.Booking, error)
	ListHosted(ctx context.Context, hostID string) ([]*booking.Booking, error)
}

type Deps struct {
	Listings   listing.Service
	Users      user.Service
	Bookings   booking.Service
	Ledger     escrow.Ledger
	Gateway    payment.Gateway
	Calculator *pricing.Calculator
	Locker     lock.Locker
	Logger     *logrus.Logger
	Policy     escrow.Policy
	LockTTL    time.Duration
	LockWait   time.Duration
	Now        func() time.Time
}

type service struct {
	Deps
	validate *validator.Validate
}

func NewService(deps Deps) Service {
	if deps.Calculator == nil {
		deps.Calculator = pricing.NewCalculator(pricing.DefaultServiceFeeRate)
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	if deps.Policy == (escrow.Policy{}) {
		deps.Policy = escrow.DefaultPolicy()
	}
	if deps.Policy.Location == nil {
		deps.Policy.Location = time.Local
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = DefaultLockTTL
	}
	if deps.LockWait <= 0 {
		deps.LockWait = DefaultLockWait
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{Deps: deps, validate: validator.New()}
}

func (s *service) today() string {
	return dateutil.Today(s.Now(), s.Policy.Location)
}

func (s *service) Availability(ctx context.Context, listingID, date string) (*DayAvailability, error) {
	if !dateutil.Valid(date) {
		return nil, booking.ErrInvalidDate
	}
	l, err := s.Listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	existing, err := s.Bookings.ListByListing(ctx, listingID, true)
	if err != nil {
		return nil, err
	}

	day := &DayAvailability{
		Date:   date,
		Status: availability.CheckDate(l, date, existing, s.today()),
	}
	if l.IsHourly() {
		day.OpenHours = availability.OpenHours(l, date)
		day.BookedHours = availability.BookedHours(date, existing)
	}
	return day, nil
}

// plan is a validated request resolved against its listing.
type plan struct {
	listing *listing.Listing
	dates   []string
	hours   []int
	units   int
}

func (s *service) prepare(ctx context.Context, req Request) (*plan, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	l, err := s.Listings.GetByID(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := eligibilityError(u, l); err != nil {
		return nil, err
	}
	if l.Capacity > 0 && req.GuestCount > l.Capacity {
		return nil, ErrOverCapacity
	}

	p := &plan{listing: l, dates: req.Dates}

	if req.IsRecurring {
		if !l.Settings.AllowRecurring {
			return nil, ErrRecurringNotAllowed
		}
		if len(req.Dates) != 1 {
			return nil, invalid(nil, "a recurring booking takes exactly one start date")
		}
		freq := availability.EffectiveFrequency(l, req.RecurrenceFreq)
		dates, err := availability.ExpandSeries(req.Dates[0], freq, req.RecurrenceCount)
		if err != nil {
			return nil, invalid(err, err.Error())
		}
		p.dates = dates
	}

	if l.IsHourly() {
		if len(req.Hours) == 0 {
			return nil, ErrHoursRequired
		}
		if req.DurationUnits != 0 && req.DurationUnits != len(req.Hours) {
			return nil, invalid(nil, "duration must match the number of selected hours")
		}
		p.hours = req.Hours
		p.units = len(req.Hours)
	} else {
		if len(req.Hours) > 0 {
			return nil, ErrHoursNotAllowed
		}
		if req.DurationUnits < 1 {
			return nil, invalid(nil, "daily bookings need at least one night")
		}
		p.units = req.DurationUnits
	}
	return p, nil
}

func (s *service) checkAvailability(ctx context.Context, p *plan) error {
	existing, err := s.Bookings.ListByListing(ctx, p.listing.ID, true)
	if err != nil {
		return err
	}
	if p.listing.IsHourly() {
		err = availability.CheckSeries(p.listing, p.dates, p.hours, existing, s.today())
	} else {
		err = availability.CheckStay(p.listing, p.dates, p.units, existing, s.today())
	}

	var conflict *availability.ConflictError
	if err != nil && !errors.As(err, &conflict) {
		return invalid(err, err.Error())
	}
	return err
}

func (s *service) price(p *plan, req Request) (pricing.Breakdown, []pricing.Share, error) {
	n := len(p.dates)
	breakdown := s.Calculator.CalculateFees(p.listing, pricing.Request{
		DurationUnits:    p.units,
		GuestCount:       req.GuestCount,
		SelectedAddOnIDs: req.SelectedAddOnIDs,
		IsRecurring:      n > 1,
		OccurrenceCount:  n,
	})
	shares, err := pricing.SplitSeries(breakdown, n)
	return breakdown, shares, err
}

func (s *service) Quote(ctx context.Context, req Request) (*Quote, error) {
	p, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.checkAvailability(ctx, p); err != nil {
		return nil, err
	}
	breakdown, shares, err := s.price(p, req)
	if err != nil {
		return nil, err
	}
	return &Quote{Dates: p.dates, Hours: p.hours, Breakdown: breakdown, Shares: shares}, nil
}

func (s *service) Create(ctx context.Context, req Request) (*Result, error) {
	p, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	// Hold the listing from the availability check until the rows exist.
	release, err := lock.Acquire(ctx, s.Locker, "listing:"+p.listing.ID, s.LockTTL, s.LockWait)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.Logger.WithError(err).WithField("listing_id", p.listing.ID).Warn("failed to release listing lock")
		}
	}()

	if err := s.checkAvailability(ctx, p); err != nil {
		return nil, err
	}

	breakdown, shares, err := s.price(p, req)
	if err != nil {
		return nil, err
	}

	status, paymentStatus := booking.StatusReserved, booking.PaymentNone
	var auth *payment.Authorization
	if req.Payment != nil {
		auth, err = s.Gateway.Authorize(ctx, payment.Charge{
			UserID:    req.UserID,
			Method:    req.Payment.Method,
			Amount:    pricing.ChargeTotal(shares),
			CardToken: req.Payment.CardToken,
		})
		if err != nil {
			return nil, err
		}
		status, paymentStatus = booking.StatusPending, booking.PaymentEscrow
	}

	groupID := ""
	if len(p.dates) > 1 {
		groupID = uuid.NewString()
	}

	bookings := make([]*booking.Booking, len(p.dates))
	for i, date := range p.dates {
		releaseAt, err := escrow.ComputeReleaseDate(date, p.hours, s.Policy)
		if err != nil {
			s.voidAuthorization(ctx, auth, err)
			return nil, err
		}
		bookings[i] = &booking.Booking{
			ListingID:         p.listing.ID,
			UserID:            req.UserID,
			Date:              date,
			Duration:          p.units,
			Hours:             append([]int(nil), p.hours...),
			TotalPrice:        shares[i].Total,
			ServiceFee:        shares[i].ServiceFee,
			CautionFee:        shares[i].CautionFee,
			Status:            status,
			PaymentStatus:     paymentStatus,
			EscrowReleaseDate: &releaseAt,
			GroupID:           groupID,
			GuestCount:        req.GuestCount,
			SelectedAddOns:    append([]string(nil), req.SelectedAddOnIDs...),
		}
	}

	if err := s.Bookings.CreateSeries(ctx, bookings); err != nil {
		s.voidAuthorization(ctx, auth, err)
		return nil, err
	}

	result := &Result{GroupID: groupID, Bookings: bookings, Breakdown: breakdown}
	if auth == nil {
		return result, nil
	}
	result.PaymentReference = auth.Reference

	if err := s.recordPayments(ctx, bookings, req.UserID, auth.Reference); err != nil {
		return nil, err
	}

	s.Logger.WithFields(logrus.Fields{
		"listing_id":  p.listing.ID,
		"user_id":     req.UserID,
		"occurrences": len(bookings),
		"total":       pricing.ChargeTotal(shares),
		"reference":   auth.Reference,
	}).Info("booking created")
	return result, nil
}

// recordPayments writes the ledger pair for each paid booking. The charge
// already went through, so a failure here is an inconsistency to reconcile.
func (s *service) recordPayments(ctx context.Context, bookings []*booking.Booking, guestID, reference string) error {
	var failed []string
	for _, b := range bookings {
		if _, err := s.Ledger.RecordGuestPayment(ctx, b, guestID, reference); err != nil {
			failed = append(failed, b.ID)
			s.Logger.WithError(err).WithFields(logrus.Fields{
				"booking_id": b.ID,
				"reference":  reference,
				"amount":     b.TotalPrice,
			}).Error("reconciliation required: payment authorized but ledger entry missing")
		}
	}
	if len(failed) > 0 {
		cause := fmt.Errorf("ledger recording failed for bookings %s", strings.Join(failed, ","))
		return apperror.Wrap(errors.Join(ErrReconciliation, cause), ErrReconciliation.Code, ErrReconciliation.Message)
	}
	return nil
}

func (s *service) voidAuthorization(ctx context.Context, auth *payment.Authorization, cause error) {
	if auth == nil {
		return
	}
	entry := s.Logger.WithFields(logrus.Fields{"reference": auth.Reference, "cause": cause.Error()})
	if err := s.Gateway.Void(context.WithoutCancel(ctx), auth.Reference); err != nil {
		entry.WithError(err).Error("reconciliation required: booking not stored and charge could not be voided")
		return
	}
	entry.Warn("booking not stored, charge voided")
}

func (s *service) Pay(ctx context.Context, bookingID, userID string, details PaymentDetails) (*booking.Booking, error) {
	if err := s.validate.Struct(details); err != nil {
		return nil, validationError(err)
	}

	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	if b.Status != booking.StatusReserved || b.PaymentStatus != booking.PaymentNone {
		return nil, ErrNotDraft
	}

	auth, err := s.Gateway.Authorize(ctx, payment.Charge{
		UserID:    userID,
		Method:    details.Method,
		Amount:    pricing.Round2(b.TotalPrice),
		CardToken: details.CardToken,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Bookings.UpdatePaymentStatus(ctx, b.ID, booking.PaymentNone, booking.PaymentEscrow); err != nil {
		s.voidAuthorization(ctx, auth, err)
		if errors.Is(err, booking.ErrPaymentConflict) {
			return nil, ErrNotDraft
		}
		return nil, err
	}
	b.PaymentStatus = booking.PaymentEscrow

	if _, err := s.Bookings.UpdateStatus(ctx, b.ID, booking.StatusPending); err != nil {
		s.Logger.WithError(err).WithField("booking_id", b.ID).Error("draft paid but status not advanced")
	} else {
		b.Status = booking.StatusPending
	}

	if err := s.recordPayments(ctx, []*booking.Booking{b}, userID, auth.Reference); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) Confirm(ctx context.Context, bookingID, actorID string) (*booking.Booking, error) {
	b, l, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if l.HostID != actorID && !s.isAdmin(ctx, actorID) {
		return nil, ErrForbidden
	}
	return s.Bookings.UpdateStatus(ctx, b.ID, booking.StatusConfirmed)
}

// Cancel refunds escrowed funds before the status changes, so a failed
// refund leaves the booking cancellable. A booking that is already cancelled
// but still holds escrow can be cancelled again to retry the refund.
func (s *service) Cancel(ctx context.Context, bookingID, actorID string, refundAmount *float64) (*booking.Booking, error) {
	b, l, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actorID && l.HostID != actorID && !s.isAdmin(ctx, actorID) {
		return nil, ErrForbidden
	}

	amount := b.TotalPrice
	if refundAmount != nil {
		amount = *refundAmount
		if amount < 0 || amount > b.TotalPrice {
			return nil, escrow.ErrInvalidRefundAmount
		}
	}

	alreadyCancelled := b.Status == booking.StatusCancelled
	if alreadyCancelled && b.PaymentStatus != booking.PaymentEscrow {
		return nil, booking.ErrInvalidTransition
	}
	if !alreadyCancelled && !booking.CanTransition(b.Status, booking.StatusCancelled) {
		return nil, booking.ErrInvalidTransition
	}

	if b.PaymentStatus == booking.PaymentEscrow {
		reason := "cancelled by guest"
		if actorID != b.UserID {
			reason = "cancelled by " + actorID
		}
		if _, err := s.Ledger.Refund(ctx, b, b.UserID, amount, reason); err != nil {
			if !errors.Is(err, escrow.ErrAlreadyReleased) {
				s.Logger.WithError(err).WithFields(logrus.Fields{
					"booking_id": b.ID,
					"amount":     amount,
				}).Error("refund not recorded, booking left as is")
				return nil, err
			}
			s.Logger.WithField("booking_id", b.ID).Info("cancelled after payout, nothing to refund")
		}
	}

	if alreadyCancelled {
		return s.Bookings.GetByID(ctx, b.ID)
	}
	updated, err := s.Bookings.UpdateStatus(ctx, b.ID, booking.StatusCancelled)
	if err != nil {
		s.Logger.WithError(err).WithField("booking_id", b.ID).Error("refund recorded but booking not cancelled")
		return nil, err
	}
	return updated, nil
}

func (s *service) Release(ctx context.Context, bookingID, actorID string) (*escrow.Transaction, error) {
	if !s.isAdmin(ctx, actorID) {
		return nil, ErrForbidden
	}
	b, l, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	payout, err := s.Ledger.ReleaseToHost(ctx, b, l.HostID)
	if err != nil {
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"actor_id":   actorID,
		"amount":     payout.Amount,
	}).Info("escrow released manually")
	return payout, nil
}

func (s *service) Get(ctx context.Context, bookingID, actorID string) (*booking.Booking, error) {
	b, l, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actorID && l.HostID != actorID && !s.isAdmin(ctx, actorID) {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *service) ListMine(ctx context.Context, userID string) ([]*booking.Booking, error) {
	return s.Bookings.ListByUser(ctx, userID)
}

func (s *service) ListHosted(ctx context.Context, hostID string) ([]*booking.Booking, error) {
	listings, err := s.Listings.ListByHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	return s.Bookings.ListByHost(ctx, hostID, listings)
}

func (s *service) load(ctx context.Context, bookingID string) (*booking.Booking, *listing.Listing, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	l, err := s.Listings.GetByID(ctx, b.ListingID)
	if err != nil {
		return nil, nil, err
	}
	return b, l, nil
}

func (s *service) isAdmin(ctx context.Context, userID string) bool {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return false
	}
	return u.IsSystemAdmin
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalid(err, ErrInvalidRequest.Message)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return invalid(err, ErrInvalidRequest.Message+": "+strings.Join(fields, "; "))
}

// invalid reports a bad request that still matches ErrInvalidRequest.
func invalid(cause error, message string) error {
	return apperror.Wrap(errors.Join(ErrInvalidRequest, cause), ErrInvalidRequest.Code, message)
}
