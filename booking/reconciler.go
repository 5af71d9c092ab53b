package booking

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/arunvm123/carrental/model"
	"github.com/arunvm123/carrental/repository"
)

// Outcome describes what a payment event did to its booking.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeFailed    Outcome = "failed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRefunded  Outcome = "refunded"
	OutcomeIgnored   Outcome = "ignored"
)

// Reconciler applies payment gateway outcomes to bookings. Events may be
// delivered any number of times; applying one twice changes nothing.
type Reconciler struct {
	manager *Manager
}

func NewReconciler(m *Manager) *Reconciler {
	return &Reconciler{manager: m}
}

// OnPaymentUpdate applies event to its booking and returns the resulting
// booking and what happened to it.
func (r *Reconciler) OnPaymentUpdate(ctx context.Context, event model.PaymentEvent) (*model.Booking, Outcome, error) {
	if event.Status != model.PaymentPaid && event.Status != model.PaymentFailed {
		return nil, "", newError(CodeInvalidPaymentStatus, "unsupported payment status %q", event.Status)
	}

	m := r.manager
	var outcome Outcome
	updated, err := m.mutate(ctx, event.BookingID, func(b *model.Booking, snap *repository.CarSnapshot) error {
		outcome = ""
		var err error
		if event.Status == model.PaymentPaid {
			outcome, err = m.applyPaid(b, snap, event)
		} else {
			outcome, err = m.applyFailed(b, snap, event)
		}
		return err
	})
	if err != nil {
		return nil, "", err
	}

	m.log.WithFields(logrus.Fields{
		"booking_id": event.BookingID,
		"event_id":   event.EventID,
		"payment":    event.Status,
		"outcome":    outcome,
		"status":     updated.Status,
	}).Info("payment event applied")
	return updated, outcome, nil
}

func (m *Manager) applyPaid(b *model.Booking, snap *repository.CarSnapshot, event model.PaymentEvent) (Outcome, error) {
	now := m.now()

	if b.PaymentStatus == model.PaymentPaid || b.PaymentStatus == model.PaymentRefunded {
		return OutcomeDuplicate, repository.ErrNoChange
	}

	paidAt := event.OccurredAt
	if paidAt.IsZero() {
		paidAt = now
	}

	switch b.Status {
	case model.StatusPending:
		if b.HoldExpired(now) {
			res := FindConflicts(snap.Bookings, ConflictQuery{
				CarID:            b.CarID,
				PickupDate:       b.PickupDate,
				DropoffDate:      b.DropoffDate,
				ExcludeBookingID: b.ID,
			}, now)
			if res.HasConflict {
				// Paid too late: the dates went to someone else.
				b.PaymentStatus = model.PaymentPaid
				b.PaidAt = &paidAt
				b.PaymentReference = event.Reference
				return OutcomeRefunded, m.cancel(b, snap, "dates taken after reservation hold expired",
					b.TotalAmount, model.SystemActor.ID, now)
			}
		}
		return OutcomeConfirmed, m.transition(b, snap, model.StatusConfirmed, model.StatusUpdate{
			PaidAt:           &paidAt,
			PaymentReference: event.Reference,
			Actor:            model.SystemActor.ID,
			Note:             paymentNote(event),
		}, now)

	case model.StatusCancelled, model.StatusPaymentFailed:
		// Money captured for a dead booking goes straight back.
		refund := b.TotalAmount
		b.PaymentStatus = model.PaymentRefunded
		b.RefundAmount = &refund
		b.PaidAt = &paidAt
		b.PaymentReference = event.Reference
		b.UpdatedAt = now
		b.History = append(b.History, model.StatusChange{
			From:          b.Status,
			To:            b.Status,
			PaymentStatus: b.PaymentStatus,
			Actor:         model.SystemActor.ID,
			Note:          "payment received for closed booking, refunded",
			At:            now,
		})
		if err := b.Validate(); err != nil {
			return "", fmt.Errorf("booking %s: %w", b.ID, err)
		}
		return OutcomeRefunded, nil
	}

	return OutcomeIgnored, repository.ErrNoChange
}

func (m *Manager) applyFailed(b *model.Booking, snap *repository.CarSnapshot, event model.PaymentEvent) (Outcome, error) {
	switch {
	case b.Status == model.StatusPaymentFailed:
		return OutcomeDuplicate, repository.ErrNoChange
	case b.Status == model.StatusPending && b.PaymentStatus != model.PaymentPaid:
		return OutcomeFailed, m.transition(b, snap, model.StatusPaymentFailed, model.StatusUpdate{
			PaymentReference: event.Reference,
			Actor:            model.SystemActor.ID,
			Note:             paymentNote(event),
		}, m.now())
	}
	// failed after paid, or for a cancelled booking
	return OutcomeIgnored, repository.ErrNoChange
}

func paymentNote(event model.PaymentEvent) string {
	if event.ResultDescription != "" {
		return event.ResultDescription
	}
	return "payment " + event.Status.String()
}
