package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunvm123/carrental/model"
)

func paymentEvent(bookingID string, status model.PaymentStatus) model.PaymentEvent {
	return model.PaymentEvent{
		EventID:   "evt-" + bookingID + "-" + status.String(),
		BookingID: bookingID,
		Status:    status,
		Reference: "MPESA-REF",
	}
}

func TestReconcilerPaidConfirmsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := NewReconciler(h.manager)
	b := h.book(t, alice, "2030-03-01", "2030-03-04")

	updated, outcome, err := r.OnPaymentUpdate(ctx, paymentEvent(b.ID, model.PaymentPaid))
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, outcome)
	assert.Equal(t, model.StatusConfirmed, updated.Status)
	assert.Equal(t, model.PaymentPaid, updated.PaymentStatus)
	assert.Equal(t, "MPESA-REF", updated.PaymentReference)
	assert.Equal(t, 2, h.notifier.count())

	updated, outcome, err = r.OnPaymentUpdate(ctx, paymentEvent(b.ID, model.PaymentPaid))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, model.StatusConfirmed, updated.Status)
	assert.Equal(t, 2, h.notifier.count(), "duplicates are not announced")

	car := h.carNow(t)
	assert.Equal(t, 1, car.TotalBookings)
	assert.Equal(t, 10440.0, car.TotalRevenue)
	assert.False(t, car.Available)
}

func TestReconcilerPaidAfterLapsedHold(t *testing.T) {
	t.Run("dates still free", func(t *testing.T) {
		h := newHarness(t)
		r := NewReconciler(h.manager)
		b := h.book(t, alice, "2030-03-01", "2030-03-04")
		h.clock.Advance(time.Hour)

		updated, outcome, err := r.OnPaymentUpdate(context.Background(), paymentEvent(b.ID, model.PaymentPaid))
		require.NoError(t, err)
		assert.Equal(t, OutcomeConfirmed, outcome)
		assert.Equal(t, model.StatusConfirmed, updated.Status)
	})

	t.Run("dates taken", func(t *testing.T) {
		h := newHarness(t)
		r := NewReconciler(h.manager)
		late := h.book(t, alice, "2030-03-01", "2030-03-04")
		h.clock.Advance(time.Hour)
		h.book(t, bob, "2030-03-02", "2030-03-05")

		updated, outcome, err := r.OnPaymentUpdate(context.Background(), paymentEvent(late.ID, model.PaymentPaid))
		require.NoError(t, err)
		assert.Equal(t, OutcomeRefunded, outcome)
		assert.Equal(t, model.StatusCancelled, updated.Status)
		assert.Equal(t, model.PaymentRefunded, updated.PaymentStatus)
		require.NotNil(t, updated.RefundAmount)
		assert.Equal(t, updated.TotalAmount, *updated.RefundAmount)

		car := h.carNow(t)
		assert.Zero(t, car.TotalBookings, "a refunded late payment is not a paid booking")
		assert.True(t, car.Available)
	})
}

func TestReconcilerPaidForCancelledBookingRefunds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := NewReconciler(h.manager)
	b := h.book(t, alice, "2030-03-01", "2030-03-04")

	_, err := h.manager.CancelBooking(ctx, b.ID, "changed plans", 0)
	require.NoError(t, err)

	updated, outcome, err := r.OnPaymentUpdate(ctx, paymentEvent(b.ID, model.PaymentPaid))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefunded, outcome)
	assert.Equal(t, model.StatusCancelled, updated.Status)
	assert.Equal(t, model.PaymentRefunded, updated.PaymentStatus)
	require.NotNil(t, updated.RefundAmount)
	assert.Equal(t, b.TotalAmount, *updated.RefundAmount)

	_, outcome, err = r.OnPaymentUpdate(ctx, paymentEvent(b.ID, model.PaymentPaid))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
}

func TestReconcilerFailed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := NewReconciler(h.manager)
	b := h.book(t, alice, "2030-03-01", "2030-03-04")

	event := paymentEvent(b.ID, model.PaymentFailed)
	event.ResultDescription = "insufficient funds"

	updated, outcome, err := r.OnPaymentUpdate(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, model.StatusPaymentFailed, updated.Status)
	assert.Equal(t, model.PaymentFailed, updated.PaymentStatus)
	assert.Equal(t, "insufficient funds", updated.History[len(updated.History)-1].Note)

	_, outcome, err = r.OnPaymentUpdate(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	// the dates are free again
	h.book(t, bob, "2030-03-01", "2030-03-04")
}

func TestReconcilerFailedAfterPaidIsIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := NewReconciler(h.manager)
	b := h.book(t, alice, "2030-03-01", "2030-03-04")

	_, _, err := r.OnPaymentUpdate(ctx, paymentEvent(b.ID, model.PaymentPaid))
	require.NoError(t, err)

	updated, outcome, err := r.OnPaymentUpdate(ctx, paymentEvent(b.ID, model.PaymentFailed))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Equal(t, model.StatusConfirmed, updated.Status)
	assert.Equal(t, model.PaymentPaid, updated.PaymentStatus)
}

func TestReconcilerRejectsUnknownInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := NewReconciler(h.manager)
	b := h.book(t, alice, "2030-03-01", "2030-03-04")

	_, _, err := r.OnPaymentUpdate(ctx, paymentEvent(b.ID, model.PaymentRefunded))
	assert.ErrorIs(t, err, ErrInvalidPaymentStatus)

	_, _, err = r.OnPaymentUpdate(ctx, paymentEvent("missing", model.PaymentPaid))
	assert.ErrorIs(t, err, ErrNotFound)
}

// A user books, pays, and cancels more than two days ahead. A second user
// then takes the freed dates.
func TestBookingRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := NewReconciler(h.manager)

	b := h.book(t, alice, "2030-03-01", "2030-03-04")
	_, err := h.manager.CreateBooking(ctx, CreateInput{
		CarID: h.car.ID, PickupDate: day("2030-03-02"), DropoffDate: day("2030-03-03"),
	}, bob)
	require.ErrorIs(t, err, ErrDateConflict)

	_, outcome, err := r.OnPaymentUpdate(ctx, paymentEvent(b.ID, model.PaymentPaid))
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, outcome)
	assert.False(t, h.carNow(t).Available)

	cancelled, err := h.manager.CancelForActor(ctx, alice, b.ID, "trip postponed")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, cancelled.PaymentStatus)
	assert.Equal(t, 9396.0, *cancelled.RefundAmount)
	assert.True(t, h.carNow(t).Available)

	second := h.book(t, bob, "2030-03-02", "2030-03-03")
	assert.Equal(t, 3480.0, second.TotalAmount)

	statuses := []model.BookingStatus{}
	for _, change := range cancelled.History {
		statuses = append(statuses, change.To)
	}
	assert.Equal(t, []model.BookingStatus{model.StatusPending, model.StatusConfirmed, model.StatusCancelled}, statuses)
}

func TestPaidThenCancelledFiftyHoursAhead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := NewReconciler(h.manager)
	h.clock.Set(time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC))

	car, err := model.NewCar(model.CreateCarRequest{
		Name: "Subaru Forester", Category: "suv", PricePerDay: 5000, Currency: "KES",
	}, h.clock.Now())
	require.NoError(t, err)
	require.NoError(t, h.store.CreateCar(ctx, car))

	b, err := h.manager.CreateBooking(ctx, CreateInput{
		CarID:       car.ID,
		PickupDate:  day("2024-08-20"),
		DropoffDate: day("2024-08-22"),
	}, alice)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, b.Status)
	assert.Equal(t, 11600.0, b.TotalAmount)

	_, outcome, err := r.OnPaymentUpdate(ctx, paymentEvent(b.ID, model.PaymentPaid))
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, outcome)

	paidCar, err := h.store.GetCarByID(ctx, car.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, paidCar.TotalBookings)
	assert.False(t, paidCar.Available)

	h.clock.Set(day("2024-08-20").Add(-50 * time.Hour))
	cancelled, err := h.manager.CancelForActor(ctx, alice, b.ID, "change of plans")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.RefundAmount)
	assert.Equal(t, 10440.0, *cancelled.RefundAmount)

	releasedCar, err := h.store.GetCarByID(ctx, car.ID)
	require.NoError(t, err)
	assert.True(t, releasedCar.Available)
}
