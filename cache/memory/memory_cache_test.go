package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunvm123/carrental/model"
)

func TestBookingStatusExpires(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	miss, err := c.GetBookingStatus(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	status := &model.BookingStatusUpdate{BookingID: "b1", UserID: "u1", Status: model.StatusPending}
	require.NoError(t, c.SetBookingStatus(ctx, "b1", status, time.Minute))
	status.Status = model.StatusCancelled

	got, err := c.GetBookingStatus(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StatusPending, got.Status, "the cache keeps its own copy")

	now = now.Add(time.Minute)
	got, err = c.GetBookingStatus(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvalidateBookingStatus(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.SetBookingStatus(ctx, "b1", &model.BookingStatusUpdate{BookingID: "b1"}, 0))
	require.NoError(t, c.InvalidateBookingStatus(ctx, "b1"))

	got, err := c.GetBookingStatus(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOlderRevisionDoesNotOverwrite(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	cancelled := &model.BookingStatusUpdate{BookingID: "b1", Status: model.StatusCancelled, Revision: 3}
	confirmed := &model.BookingStatusUpdate{BookingID: "b1", Status: model.StatusConfirmed, Revision: 2}
	require.NoError(t, c.SetBookingStatus(ctx, "b1", cancelled, time.Minute))
	require.NoError(t, c.SetBookingStatus(ctx, "b1", confirmed, time.Minute))

	got, err := c.GetBookingStatus(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StatusCancelled, got.Status)

	refunded := &model.BookingStatusUpdate{BookingID: "b1", Status: model.StatusCancelled, PaymentStatus: model.PaymentRefunded, Revision: 4}
	require.NoError(t, c.SetBookingStatus(ctx, "b1", refunded, time.Minute))
	got, err = c.GetBookingStatus(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, got.PaymentStatus)
}

func TestExpiredEntryAcceptsAnyRevision(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.SetBookingStatus(ctx, "b1", &model.BookingStatusUpdate{BookingID: "b1", Revision: 5}, time.Minute))
	now = now.Add(2 * time.Minute)
	require.NoError(t, c.SetBookingStatus(ctx, "b1", &model.BookingStatusUpdate{BookingID: "b1", Status: model.StatusConfirmed, Revision: 2}, time.Minute))

	got, err := c.GetBookingStatus(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StatusConfirmed, got.Status)
}

func TestClaimPaymentEvent(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := c.ClaimPaymentEvent(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.ClaimPaymentEvent(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleasePaymentEvent(ctx, "evt-1"))
	ok, err = c.ClaimPaymentEvent(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "released events can be claimed again")

	now = now.Add(2 * time.Hour)
	ok, err = c.ClaimPaymentEvent(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "claims lapse after their ttl")
}
