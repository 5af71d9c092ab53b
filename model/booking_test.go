package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestDateOf(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)
	local := time.Date(2030, 3, 1, 1, 30, 0, 0, nairobi)

	assert.Equal(t, time.Date(2030, 2, 28, 0, 0, 0, 0, time.UTC), DateOf(local))
	assert.Equal(t, time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC),
		DateOf(time.Date(2030, 3, 1, 23, 59, 0, 0, time.UTC)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2030-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "01-03-2030", "2030-13-01", "2030-03-01T10:00:00Z"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewBooking(t *testing.T) {
	now := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	b, err := NewBooking(CreateBookingRequest{
		CarID:       "car-1",
		UserID:      "user-1",
		UserEmail:   "user@example.com",
		PickupDate:  time.Date(2030, 3, 1, 15, 0, 0, 0, time.UTC),
		DropoffDate: mustDate(t, "2030-03-04"),
		TotalAmount: 10440,
		Currency:    "KES",
	}, now, 30*time.Minute)
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, mustDate(t, "2030-03-01"), b.PickupDate)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, PaymentPending, b.PaymentStatus)
	assert.Equal(t, 3, b.Days())
	require.NotNil(t, b.HoldExpiresAt)
	assert.Equal(t, now.Add(30*time.Minute), *b.HoldExpiresAt)
	require.Len(t, b.History, 1)

	_, err = NewBooking(CreateBookingRequest{
		CarID:       "car-1",
		UserID:      "user-1",
		PickupDate:  mustDate(t, "2030-03-04"),
		DropoffDate: mustDate(t, "2030-03-04"),
	}, now, time.Minute)
	assert.Error(t, err)
}

func TestBookingValidate(t *testing.T) {
	valid := func() *Booking {
		return &Booking{
			CarID:         "car-1",
			UserID:        "user-1",
			PickupDate:    mustDate(t, "2030-03-01"),
			DropoffDate:   mustDate(t, "2030-03-04"),
			Status:        StatusConfirmed,
			PaymentStatus: PaymentPaid,
			TotalAmount:   100,
		}
	}
	refund := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		mutate  func(b *Booking)
		wantErr string
	}{
		{name: "valid", mutate: func(b *Booking) {}},
		{name: "missing user", mutate: func(b *Booking) { b.UserID = "" }, wantErr: "requires car and user"},
		{name: "reversed dates", mutate: func(b *Booking) { b.DropoffDate = b.PickupDate }, wantErr: "dropoff date"},
		{name: "unknown status", mutate: func(b *Booking) { b.Status = "lost" }, wantErr: "invalid booking status"},
		{name: "unknown payment", mutate: func(b *Booking) { b.PaymentStatus = "owed" }, wantErr: "invalid payment status"},
		{name: "negative total", mutate: func(b *Booking) { b.TotalAmount = -1 }, wantErr: "negative"},
		{name: "paid while pending", mutate: func(b *Booking) { b.Status = StatusPending }, wantErr: "inconsistent"},
		{
			name: "cancelled still pending payment",
			mutate: func(b *Booking) {
				b.Status = StatusCancelled
				b.PaymentStatus = PaymentPending
			},
			wantErr: "cancelled booking",
		},
		{
			name: "refund above total",
			mutate: func(b *Booking) {
				b.Status = StatusCancelled
				b.PaymentStatus = PaymentRefunded
				b.RefundAmount = refund(101)
			},
			wantErr: "refund",
		},
		{
			name: "full refund",
			mutate: func(b *Booking) {
				b.Status = StatusCancelled
				b.PaymentStatus = PaymentRefunded
				b.RefundAmount = refund(100)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid()
			tt.mutate(b)
			err := b.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBlocksCalendar(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	live := now.Add(time.Minute)
	lapsed := now

	b := &Booking{Status: StatusPending, HoldExpiresAt: &live}
	assert.True(t, b.BlocksCalendar(now))

	b.HoldExpiresAt = &lapsed
	assert.True(t, b.HoldExpired(now), "the hold lapses at its expiry instant")
	assert.False(t, b.BlocksCalendar(now))

	for _, s := range []BookingStatus{StatusConfirmed, StatusActive, StatusCompleted} {
		assert.True(t, (&Booking{Status: s}).BlocksCalendar(now), s)
	}
	for _, s := range []BookingStatus{StatusCancelled, StatusPaymentFailed} {
		assert.False(t, (&Booking{Status: s}).BlocksCalendar(now), s)
	}
}

func TestOverlaps(t *testing.T) {
	b := &Booking{PickupDate: mustDate(t, "2030-03-05"), DropoffDate: mustDate(t, "2030-03-10")}

	assert.True(t, b.Overlaps(mustDate(t, "2030-03-01"), mustDate(t, "2030-03-06")))
	assert.True(t, b.Overlaps(mustDate(t, "2030-03-06"), mustDate(t, "2030-03-07")))
	assert.True(t, b.Overlaps(mustDate(t, "2030-03-01"), mustDate(t, "2030-03-20")))
	assert.False(t, b.Overlaps(mustDate(t, "2030-03-01"), mustDate(t, "2030-03-05")))
	assert.False(t, b.Overlaps(mustDate(t, "2030-03-10"), mustDate(t, "2030-03-12")))
}

func TestCloneIsDeep(t *testing.T) {
	reason := "weather"
	b := &Booking{ID: "b1", CancellationReason: &reason}
	b.History = append(b.History, StatusChange{To: StatusPending})

	c := b.Clone()
	*c.CancellationReason = "changed"
	c.History[0].Note = "edited"

	assert.Equal(t, "weather", *b.CancellationReason)
	assert.Empty(t, b.History[0].Note)
}

func TestCancellationEmail(t *testing.T) {
	refund := 9396.0
	reason := "trip postponed"
	b := &Booking{
		ID:                 "b1",
		CarID:              "car-1",
		UserID:             "user-1",
		UserEmail:          "user@example.com",
		PickupDate:         mustDate(t, "2030-03-01"),
		DropoffDate:        mustDate(t, "2030-03-04"),
		Status:             StatusCancelled,
		PaymentStatus:      PaymentRefunded,
		TotalAmount:        10440,
		Currency:           "KES",
		RefundAmount:       &refund,
		CancellationReason: &reason,
	}

	req := b.ToNotificationRequest(time.Now())
	assert.Equal(t, NotificationBookingCancelled, req.Type)

	email := req.GenerateEmail()
	require.NotNil(t, email)
	assert.Equal(t, "user@example.com", email.To)
	assert.Equal(t, "Booking cancelled - b1", email.Subject)
	assert.Contains(t, email.Body, "Reason: trip postponed")
	assert.Contains(t, email.Body, "Refund: KES 9396.00")
	assert.Contains(t, email.Body, "Dates: 2030-03-01 to 2030-03-04")

	req.Type = "unknown"
	assert.Nil(t, req.GenerateEmail())
}

func TestNotificationTypeFor(t *testing.T) {
	assert.Equal(t, NotificationBookingCreated, NotificationTypeFor(StatusPending))
	assert.Equal(t, NotificationBookingConfirmed, NotificationTypeFor(StatusConfirmed))
	assert.Equal(t, NotificationPaymentFailed, NotificationTypeFor(StatusPaymentFailed))
	assert.True(t, strings.HasPrefix(NotificationTypeFor(StatusCompleted), "booking_"))
}
