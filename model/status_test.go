package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatusTransitions(t *testing.T) {
	tests := []struct {
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusPaymentFailed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusActive, false},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusActive, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusCancelled, true},
		{StatusActive, StatusConfirmed, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusPaymentFailed, StatusPending, false},
		{StatusPaymentFailed, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestBookingStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusPaymentFailed.IsTerminal())
	assert.True(t, BookingStatus("bogus").IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
}

func TestHoldsCar(t *testing.T) {
	assert.True(t, StatusConfirmed.HoldsCar())
	assert.True(t, StatusActive.HoldsCar())
	assert.False(t, StatusPending.HoldsCar())
	assert.False(t, StatusCompleted.HoldsCar())
	assert.False(t, StatusCancelled.HoldsCar())
}

func TestParseStatuses(t *testing.T) {
	s, err := ParseBookingStatus("payment_failed")
	require.NoError(t, err)
	assert.Equal(t, StatusPaymentFailed, s)

	_, err = ParseBookingStatus("Confirmed")
	assert.Error(t, err)

	p, err := ParsePaymentStatus("refunded")
	require.NoError(t, err)
	assert.Equal(t, PaymentRefunded, p)

	_, err = ParsePaymentStatus("")
	assert.Error(t, err)
}
