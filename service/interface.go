package service

import (
	"context"
	"errors"

	"github.com/arunvm123/carrental/model"
)

// Notifier is told about every committed booking change.
type Notifier interface {
	Notify(ctx context.Context, booking *model.Booking) error
}

// PaymentEventPublisher hands normalised gateway outcomes to the reconciler,
// usually through the payment topic.
type PaymentEventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event model.PaymentEvent) error
}

// Notifiers fans a change out to several notifiers. Every notifier is called;
// failures are joined.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, booking *model.Booking) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, booking); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, *model.Booking) error { return nil }
