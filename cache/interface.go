package cache

import (
	"context"
	"time"

	"github.com/arunvm123/carrental/model"
)

// CacheRepository defines the interface for booking caching operations
type CacheRepository interface {
	// Booking status caching for polling and SSE. A miss returns nil, nil.
	// SetBookingStatus keeps a cached entry whose revision is the same or
	// newer, so writers racing after commit cannot roll the status back.
	GetBookingStatus(ctx context.Context, bookingID string) (*model.BookingStatusUpdate, error)
	SetBookingStatus(ctx context.Context, bookingID string, status *model.BookingStatusUpdate, ttl time.Duration) error
	InvalidateBookingStatus(ctx context.Context, bookingID string) error

	// Payment event dedupe. ClaimPaymentEvent returns false when the event id
	// was already claimed within ttl.
	ClaimPaymentEvent(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	ReleasePaymentEvent(ctx context.Context, eventID string) error

	// Health check
	Ping(ctx context.Context) error
}
