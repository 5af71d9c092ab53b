package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunvm123/carrental/cache"
	"github.com/arunvm123/carrental/cache/memory"
	"github.com/arunvm123/carrental/model"
)

type failingSet struct {
	*memory.MemoryCache
}

func (f failingSet) SetBookingStatus(context.Context, string, *model.BookingStatusUpdate, time.Duration) error {
	return errors.New("redis unavailable")
}

func TestStatusNotifierCachesLatestStatus(t *testing.T) {
	ctx := context.Background()
	c := memory.NewMemoryCache()
	n := cache.NewStatusNotifier(c, time.Minute)

	refund := 450.0
	b := &model.Booking{
		ID:            "b1",
		UserID:        "u1",
		Status:        model.StatusCancelled,
		PaymentStatus: model.PaymentRefunded,
		Currency:      "KES",
		RefundAmount:  &refund,
	}
	require.NoError(t, n.Notify(ctx, b))

	got, err := c.GetBookingStatus(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, model.StatusCancelled, got.Status)
	assert.Equal(t, "Booking cancelled, 450.00 KES refunded", got.Message)
}

func TestStatusNotifierDropsStaleEntryOnFailure(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewMemoryCache()
	require.NoError(t, mem.SetBookingStatus(ctx, "b1", &model.BookingStatusUpdate{
		BookingID: "b1", Status: model.StatusPending,
	}, time.Minute))

	n := cache.NewStatusNotifier(failingSet{mem}, time.Minute)
	err := n.Notify(ctx, &model.Booking{ID: "b1", Status: model.StatusConfirmed})
	require.Error(t, err)

	got, err := mem.GetBookingStatus(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, got, "readers fall back to the store")
}

func TestStatusNotifierIgnoresLateOlderWrite(t *testing.T) {
	ctx := context.Background()
	c := memory.NewMemoryCache()
	n := cache.NewStatusNotifier(c, time.Minute)

	confirmed := &model.Booking{ID: "b1", UserID: "u1", Status: model.StatusConfirmed, PaymentStatus: model.PaymentPaid}
	confirmed.History = append(confirmed.History,
		model.StatusChange{To: model.StatusPending},
		model.StatusChange{From: model.StatusPending, To: model.StatusConfirmed})
	cancelled := confirmed.Clone()
	cancelled.Status = model.StatusCancelled
	cancelled.PaymentStatus = model.PaymentCancelled
	cancelled.History = append(cancelled.History, model.StatusChange{From: model.StatusConfirmed, To: model.StatusCancelled})

	// The cancel's notification lands first.
	require.NoError(t, n.Notify(ctx, cancelled))
	require.NoError(t, n.Notify(ctx, confirmed))

	got, err := c.GetBookingStatus(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StatusCancelled, got.Status)
	assert.Equal(t, 3, got.Revision)
}

func TestStatusMessage(t *testing.T) {
	hold := time.Date(2030, 1, 1, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "Awaiting payment, dates held until 2030-01-01T10:30:00Z",
		cache.StatusMessage(&model.Booking{Status: model.StatusPending, HoldExpiresAt: &hold}))
	assert.Equal(t, "Payment failed", cache.StatusMessage(&model.Booking{Status: model.StatusPaymentFailed}))
	assert.Equal(t, "Booking cancelled", cache.StatusMessage(&model.Booking{Status: model.StatusCancelled}))
}
