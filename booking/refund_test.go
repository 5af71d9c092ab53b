package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arunvm123/carrental/model"
)

func TestCalculateRefund(t *testing.T) {
	pickup := time.Date(2030, 6, 10, 0, 0, 0, 0, time.UTC)
	b := &model.Booking{PickupDate: pickup, TotalAmount: 10000}

	tests := []struct {
		name        string
		beforeStart time.Duration
		want        float64
	}{
		{name: "a week ahead", beforeStart: 7 * 24 * time.Hour, want: 9000},
		{name: "72h", beforeStart: 72 * time.Hour, want: 9000},
		{name: "36h", beforeStart: 36 * time.Hour, want: 5000},
		{name: "12h", beforeStart: 12 * time.Hour, want: 0},
		{name: "just over 48h", beforeStart: 48*time.Hour + time.Minute, want: 9000},
		{name: "exactly 48h", beforeStart: 48 * time.Hour, want: 5000},
		{name: "30h", beforeStart: 30 * time.Hour, want: 5000},
		{name: "exactly 24h", beforeStart: 24 * time.Hour, want: 0},
		{name: "an hour ahead", beforeStart: time.Hour, want: 0},
		{name: "after pickup", beforeStart: -5 * time.Hour, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := pickup.Add(-tt.beforeStart)
			assert.Equal(t, tt.want, CalculateRefund(b, now))
		})
	}
}

func TestCalculateRefundRoundsToCents(t *testing.T) {
	pickup := time.Date(2030, 6, 10, 0, 0, 0, 0, time.UTC)
	b := &model.Booking{PickupDate: pickup, TotalAmount: 333.33}

	assert.Equal(t, 300.0, CalculateRefund(b, pickup.Add(-72*time.Hour)))

	b.TotalAmount = 12.34
	assert.Equal(t, 11.11, CalculateRefund(b, pickup.Add(-72*time.Hour)))
}

func TestQuoteTotal(t *testing.T) {
	pickup := day("2030-03-01")

	assert.Equal(t, 10440.0, QuoteTotal(3000, pickup, day("2030-03-04"), 0.16))
	assert.Equal(t, 3000.0, QuoteTotal(3000, pickup, day("2030-03-02"), 0))
	assert.Equal(t, 0.0, QuoteTotal(3000, pickup, pickup, 0.16))
}
