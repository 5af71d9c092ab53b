// Package booking is the conflict and availability engine: it creates
// bookings without double-booking a car, drives the booking state machine,
// keeps car availability and stats consistent, and applies payment outcomes
// and the refund policy.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arunvm123/carrental/model"
	"github.com/arunvm123/carrental/repository"
	"github.com/arunvm123/carrental/service"
)

const (
	DefaultHoldTTL  = 30 * time.Minute
	DefaultTaxRate  = 0.16
	DefaultCurrency = "KES"
)

// CreateInput is a booking request as received from a client.
// TotalAmount is quoted from the car's daily price when zero.
type CreateInput struct {
	CarID       string
	PickupDate  time.Time
	DropoffDate time.Time
	TotalAmount float64
}

// Manager owns every booking write.
type Manager struct {
	cars     repository.CarRepository
	bookings repository.BookingRepository
	notifier service.Notifier
	log      logrus.FieldLogger
	now      func() time.Time
	holdTTL  time.Duration
	taxRate  float64
}

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithNotifier(n service.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

// WithHoldTTL sets how long a pending booking reserves its dates.
func WithHoldTTL(d time.Duration) Option {
	return func(m *Manager) { m.holdTTL = d }
}

func WithTaxRate(rate float64) Option {
	return func(m *Manager) { m.taxRate = rate }
}

func NewManager(cars repository.CarRepository, bookings repository.BookingRepository, opts ...Option) *Manager {
	m := &Manager{
		cars:     cars,
		bookings: bookings,
		notifier: service.NopNotifier{},
		log:      logrus.StandardLogger(),
		now:      time.Now,
		holdTTL:  DefaultHoldTTL,
		taxRate:  DefaultTaxRate,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now is the manager's clock.
func (m *Manager) Now() time.Time {
	return m.now()
}

// CheckConflict reports the bookings of carID overlapping
// [pickup, dropoff), ignoring excludeBookingID.
func (m *Manager) CheckConflict(ctx context.Context, carID string, pickup, dropoff time.Time, excludeBookingID string) (ConflictResult, error) {
	if !model.DateOf(dropoff).After(model.DateOf(pickup)) {
		return ConflictResult{}, newError(CodeInvalidDateRange, "dropoff date must be after pickup date")
	}
	if _, err := m.cars.GetCarByID(ctx, carID); err != nil {
		return ConflictResult{}, fromStore(err, "car")
	}

	existing, err := m.bookings.ListCarBookings(ctx, carID)
	if err != nil {
		return ConflictResult{}, fromStore(err, "car")
	}

	return FindConflicts(existing, ConflictQuery{
		CarID:            carID,
		PickupDate:       pickup,
		DropoffDate:      dropoff,
		ExcludeBookingID: excludeBookingID,
	}, m.now()), nil
}

// CreateBooking reserves the requested dates for actor. The conflict check
// and the insert run in one transaction serialized on the car, so two
// overlapping requests cannot both succeed. The new booking is pending with
// a reservation hold; car availability is left alone until payment.
func (m *Manager) CreateBooking(ctx context.Context, in CreateInput, actor *model.Actor) (*model.Booking, error) {
	if actor == nil || actor.ID == "" {
		return nil, ErrAuthRequired
	}

	now := m.now()
	pickup := model.DateOf(in.PickupDate)
	dropoff := model.DateOf(in.DropoffDate)
	if pickup.Before(model.DateOf(now)) {
		return nil, newError(CodeInvalidDateRange, "pickup date %s is in the past", pickup.Format(model.DateLayout))
	}
	if !dropoff.After(pickup) {
		return nil, newError(CodeInvalidDateRange, "dropoff date must be after pickup date")
	}

	created, err := m.bookings.CreateBooking(ctx, in.CarID, func(snap *repository.CarSnapshot) (*model.Booking, error) {
		res := FindConflicts(snap.Bookings, ConflictQuery{
			CarID:       in.CarID,
			PickupDate:  pickup,
			DropoffDate: dropoff,
		}, now)
		if res.HasConflict {
			return nil, conflictError(res)
		}

		amount := in.TotalAmount
		if amount <= 0 {
			amount = QuoteTotal(snap.Car.PricePerDay, pickup, dropoff, m.taxRate)
		}

		return model.NewBooking(model.CreateBookingRequest{
			CarID:       in.CarID,
			UserID:      actor.ID,
			UserEmail:   actor.Email,
			PickupDate:  pickup,
			DropoffDate: dropoff,
			TotalAmount: amount,
			Currency:    snap.Car.Currency,
		}, now, m.holdTTL)
	})
	if err != nil {
		return nil, fromStore(err, "car")
	}

	m.log.WithFields(logrus.Fields{
		"booking_id": created.ID,
		"car_id":     created.CarID,
		"user_id":    created.UserID,
		"pickup":     created.PickupDate.Format(model.DateLayout),
		"dropoff":    created.DropoffDate.Format(model.DateLayout),
	}).Info("booking created")
	m.notify(ctx, created)
	return created, nil
}

// UpdateStatus moves a booking to newStatus, applying extra. Cancelled and
// completed bookings release the car unless another confirmed or active
// booking still holds it.
func (m *Manager) UpdateStatus(ctx context.Context, bookingID string, newStatus model.BookingStatus, extra model.StatusUpdate) (*model.Booking, error) {
	if !newStatus.IsValid() {
		return nil, newError(CodeIllegalTransition, "unknown booking status %q", newStatus)
	}
	return m.mutate(ctx, bookingID, func(b *model.Booking, snap *repository.CarSnapshot) error {
		return m.transition(b, snap, newStatus, extra, m.now())
	})
}

// CancelBooking cancels with an explicit refund. The payment status becomes
// refunded when refundAmount is positive and cancelled otherwise.
func (m *Manager) CancelBooking(ctx context.Context, bookingID, reason string, refundAmount float64) (*model.Booking, error) {
	if refundAmount < 0 {
		return nil, newError(CodeInvalidRefund, "refund must not be negative")
	}
	return m.mutate(ctx, bookingID, func(b *model.Booking, snap *repository.CarSnapshot) error {
		return m.cancel(b, snap, reason, refundAmount, "", m.now())
	})
}

// CancelForActor lets the booking's owner or an admin cancel, refunding
// according to CalculateRefund when the booking was paid.
func (m *Manager) CancelForActor(ctx context.Context, actor *model.Actor, bookingID, reason string) (*model.Booking, error) {
	if actor == nil || actor.ID == "" {
		return nil, ErrAuthRequired
	}
	return m.mutate(ctx, bookingID, func(b *model.Booking, snap *repository.CarSnapshot) error {
		if b.UserID != actor.ID && !actor.IsAdmin() {
			return ErrAdminRequired
		}
		return m.cancelWithPolicy(b, snap, reason, actor.ID)
	})
}

// AdminUpdateStatus is UpdateStatus gated on the admin role. Cancelling
// applies the refund policy like CancelForActor, with note as the reason.
func (m *Manager) AdminUpdateStatus(ctx context.Context, actor *model.Actor, bookingID string, newStatus model.BookingStatus, note string) (*model.Booking, error) {
	if actor == nil || actor.ID == "" {
		return nil, ErrAuthRequired
	}
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	if newStatus == model.StatusCancelled {
		reason := note
		if reason == "" {
			reason = "cancelled by admin"
		}
		return m.mutate(ctx, bookingID, func(b *model.Booking, snap *repository.CarSnapshot) error {
			return m.cancelWithPolicy(b, snap, reason, actor.ID)
		})
	}
	return m.UpdateStatus(ctx, bookingID, newStatus, model.StatusUpdate{Actor: actor.ID, Note: note})
}

// ExpireHolds cancels pending bookings whose reservation hold has lapsed and
// returns how many were cancelled. There is no scheduler; callers decide
// when to sweep.
func (m *Manager) ExpireHolds(ctx context.Context) (int, error) {
	pending, _, err := m.bookings.ListBookings(ctx, model.BookingFilter{Status: model.StatusPending})
	if err != nil {
		return 0, fromStore(err, "booking")
	}

	expired := 0
	for i := range pending {
		if !pending[i].HoldExpired(m.now()) {
			continue
		}
		changed := false
		_, err := m.mutate(ctx, pending[i].ID, func(b *model.Booking, snap *repository.CarSnapshot) error {
			now := m.now()
			if !b.HoldExpired(now) {
				changed = false
				return repository.ErrNoChange
			}
			changed = true
			return m.cancel(b, snap, "reservation hold expired", 0, model.SystemActor.ID, now)
		})
		if err != nil {
			return expired, err
		}
		if changed {
			expired++
		}
	}
	return expired, nil
}

// GetBooking returns a booking visible to actor: its owner or an admin.
func (m *Manager) GetBooking(ctx context.Context, actor *model.Actor, bookingID string) (*model.Booking, error) {
	if actor == nil || actor.ID == "" {
		return nil, ErrAuthRequired
	}
	b, err := m.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, fromStore(err, "booking")
	}
	if b.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	return b, nil
}

// ListBookings lists actor's own bookings; admins may list anyone's.
func (m *Manager) ListBookings(ctx context.Context, actor *model.Actor, filter model.BookingFilter) ([]model.Booking, int, error) {
	if actor == nil || actor.ID == "" {
		return nil, 0, ErrAuthRequired
	}
	if !actor.IsAdmin() {
		filter.UserID = actor.ID
	}
	bookings, total, err := m.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, 0, fromStore(err, "booking")
	}
	return bookings, total, nil
}

// mutate runs fn in the repository's per-car transaction and notifies on
// commit. fn returning repository.ErrNoChange commits nothing and skips the
// notification.
func (m *Manager) mutate(ctx context.Context, bookingID string, fn func(b *model.Booking, snap *repository.CarSnapshot) error) (*model.Booking, error) {
	changed := false
	updated, err := m.bookings.UpdateBooking(ctx, bookingID, func(b *model.Booking, snap *repository.CarSnapshot) error {
		changed = false
		if err := fn(b, snap); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, fromStore(err, "booking")
	}
	if changed {
		m.notify(ctx, updated)
	}
	return updated, nil
}

// cancelWithPolicy cancels b, refunding a paid booking per CalculateRefund.
func (m *Manager) cancelWithPolicy(b *model.Booking, snap *repository.CarSnapshot, reason, actor string) error {
	now := m.now()
	var refund float64
	if b.PaymentStatus == model.PaymentPaid {
		refund = CalculateRefund(b, now)
	}
	return m.cancel(b, snap, reason, refund, actor, now)
}

func (m *Manager) cancel(b *model.Booking, snap *repository.CarSnapshot, reason string, refund float64, actor string, now time.Time) error {
	if refund > b.TotalAmount {
		return newError(CodeInvalidRefund, "refund %.2f exceeds total %.2f", refund, b.TotalAmount)
	}
	if refund > 0 && b.PaymentStatus != model.PaymentPaid {
		return newError(CodeInvalidRefund, "booking %s was never paid", b.ID)
	}

	paymentStatus := model.PaymentCancelled
	if refund > 0 {
		paymentStatus = model.PaymentRefunded
	} else if b.PaymentStatus == model.PaymentFailed {
		paymentStatus = model.PaymentFailed
	}

	return m.transition(b, snap, model.StatusCancelled, model.StatusUpdate{
		PaymentStatus:      &paymentStatus,
		CancellationReason: &reason,
		RefundAmount:       &refund,
		Actor:              actor,
		Note:               reason,
	}, now)
}

// transition applies one state machine step to b and its car in memory.
// The caller's repository transaction persists both.
func (m *Manager) transition(b *model.Booking, snap *repository.CarSnapshot, to model.BookingStatus, extra model.StatusUpdate, now time.Time) error {
	from := b.Status
	if !from.CanTransitionTo(to) {
		return newError(CodeIllegalTransition, "cannot move booking from %s to %s", from, to)
	}

	wasPaid := b.PaymentStatus == model.PaymentPaid
	b.Status = to
	b.PaymentStatus = nextPaymentStatus(b.PaymentStatus, to, extra)

	if b.PaymentStatus == model.PaymentPaid && b.PaidAt == nil {
		paidAt := now
		if extra.PaidAt != nil {
			paidAt = *extra.PaidAt
		}
		b.PaidAt = &paidAt
	}
	if extra.PaymentReference != "" {
		b.PaymentReference = extra.PaymentReference
	}
	if extra.CancellationReason != nil {
		reason := *extra.CancellationReason
		b.CancellationReason = &reason
	}
	if extra.RefundAmount != nil {
		refund := roundCents(*extra.RefundAmount)
		b.RefundAmount = &refund
	}
	b.UpdatedAt = now
	b.History = append(b.History, model.StatusChange{
		From:          from,
		To:            to,
		PaymentStatus: b.PaymentStatus,
		Actor:         extra.Actor,
		Note:          extra.Note,
		At:            now,
	})

	car := snap.Car
	// Stats are counted on the first move into paid only, which keeps
	// redelivered payment events from double counting.
	if !wasPaid && b.PaymentStatus == model.PaymentPaid {
		car.RecordPaidBooking(b.TotalAmount)
	}
	switch to {
	case model.StatusConfirmed:
		car.Available = false
	case model.StatusCancelled, model.StatusCompleted:
		if !heldByOthers(snap.Bookings, b.ID) {
			car.Available = true
		}
	}
	car.UpdatedAt = now

	if err := b.Validate(); err != nil {
		return fmt.Errorf("booking %s: %w", b.ID, err)
	}
	return nil
}

func nextPaymentStatus(current model.PaymentStatus, to model.BookingStatus, extra model.StatusUpdate) model.PaymentStatus {
	if extra.PaymentStatus != nil {
		return *extra.PaymentStatus
	}
	switch to {
	case model.StatusConfirmed:
		return model.PaymentPaid
	case model.StatusPaymentFailed:
		return model.PaymentFailed
	case model.StatusCancelled:
		if extra.RefundAmount != nil && *extra.RefundAmount > 0 {
			return model.PaymentRefunded
		}
		if current == model.PaymentFailed {
			return current
		}
		return model.PaymentCancelled
	}
	return current
}

func heldByOthers(bookings []model.Booking, exceptID string) bool {
	for i := range bookings {
		if bookings[i].ID != exceptID && bookings[i].Status.HoldsCar() {
			return true
		}
	}
	return false
}

func (m *Manager) notify(ctx context.Context, b *model.Booking) {
	if err := m.notifier.Notify(ctx, b); err != nil {
		m.log.WithError(err).WithField("booking_id", b.ID).Warn("booking notification failed")
	}
}

// IsNotFound reports whether err is a NotFound failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
