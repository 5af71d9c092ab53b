package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arunvm123/carrental/model"
)

// StatusNotifier refreshes the cached status of every booking that changes,
// so status polls and SSE streams see writes without hitting the store.
type StatusNotifier struct {
	cache CacheRepository
	ttl   time.Duration
}

func NewStatusNotifier(cache CacheRepository, ttl time.Duration) *StatusNotifier {
	return &StatusNotifier{cache: cache, ttl: ttl}
}

func (n *StatusNotifier) Notify(ctx context.Context, b *model.Booking) error {
	if err := n.cache.SetBookingStatus(ctx, b.ID, b.ToStatusUpdate(StatusMessage(b)), n.ttl); err != nil {
		// a stale entry must not outlive the write it missed
		if ierr := n.cache.InvalidateBookingStatus(ctx, b.ID); ierr != nil {
			err = errors.Join(err, ierr)
		}
		return fmt.Errorf("failed to cache booking status: %w", err)
	}
	return nil
}

// StatusMessage is the human readable line shown next to a booking status.
func StatusMessage(b *model.Booking) string {
	switch b.Status {
	case model.StatusPending:
		if b.HoldExpiresAt != nil {
			return fmt.Sprintf("Awaiting payment, dates held until %s", b.HoldExpiresAt.UTC().Format(time.RFC3339))
		}
		return "Awaiting payment"
	case model.StatusConfirmed:
		return "Booking confirmed"
	case model.StatusActive:
		return "Rental in progress"
	case model.StatusCompleted:
		return "Rental completed"
	case model.StatusCancelled:
		if b.RefundAmount != nil && *b.RefundAmount > 0 {
			return fmt.Sprintf("Booking cancelled, %.2f %s refunded", *b.RefundAmount, b.Currency)
		}
		return "Booking cancelled"
	case model.StatusPaymentFailed:
		return "Payment failed"
	}
	return string(b.Status)
}
