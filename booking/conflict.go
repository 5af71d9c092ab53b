package booking

import (
	"sort"
	"time"

	"github.com/arunvm123/carrental/model"
)

// ConflictQuery is a requested date range for one car.
type ConflictQuery struct {
	CarID            string
	PickupDate       time.Time
	DropoffDate      time.Time
	ExcludeBookingID string
}

// ConflictResult lists every booking overlapping a ConflictQuery.
type ConflictResult struct {
	HasConflict bool
	Conflicts   []model.Booking
}

// FindConflicts returns the bookings in existing that occupy the car during
// [q.PickupDate, q.DropoffDate) at now, ordered by pickup date. Ranges are
// half-open, so a dropoff on the day of another pickup is not a conflict.
// Bookings that do not block the calendar at now (cancelled, payment_failed,
// pending with a lapsed hold) are ignored.
func FindConflicts(existing []model.Booking, q ConflictQuery, now time.Time) ConflictResult {
	start := model.DateOf(q.PickupDate)
	end := model.DateOf(q.DropoffDate)

	var conflicts []model.Booking
	for i := range existing {
		b := &existing[i]
		if b.CarID != q.CarID || b.ID == q.ExcludeBookingID {
			continue
		}
		if !b.BlocksCalendar(now) {
			continue
		}
		if b.Overlaps(start, end) {
			conflicts = append(conflicts, *b)
		}
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].PickupDate.Before(conflicts[j].PickupDate)
	})

	return ConflictResult{
		HasConflict: len(conflicts) > 0,
		Conflicts:   conflicts,
	}
}
