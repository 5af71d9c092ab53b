package booking

import (
	"math"
	"time"

	"github.com/arunvm123/carrental/model"
)

const (
	fullRefundWindow = 48 * time.Hour
	halfRefundWindow = 24 * time.Hour
)

// CalculateRefund applies the cancellation policy: more than 48 hours before
// pickup refunds 90% of the total, more than 24 hours refunds 50%, anything
// later refunds nothing.
func CalculateRefund(b *model.Booking, now time.Time) float64 {
	untilPickup := b.PickupDate.Sub(now)

	var rate float64
	switch {
	case untilPickup > fullRefundWindow:
		rate = 0.90
	case untilPickup > halfRefundWindow:
		rate = 0.50
	default:
		return 0
	}
	return roundCents(rate * b.TotalAmount)
}

// QuoteTotal prices a rental: daily rate times days, plus tax.
func QuoteTotal(pricePerDay float64, pickup, dropoff time.Time, taxRate float64) float64 {
	days := math.Round(model.DateOf(dropoff).Sub(model.DateOf(pickup)).Hours() / 24)
	if days <= 0 {
		return 0
	}
	return roundCents(pricePerDay * days * (1 + taxRate))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
