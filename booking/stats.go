package booking

import (
	"context"

	"github.com/arunvm123/carrental/model"
)

// Stats totals the fleet and bookings for the admin dashboard. Revenue is
// the sum of the cars' gross revenue; refunds are not subtracted.
func (m *Manager) Stats(ctx context.Context) (*model.StatsResponse, error) {
	cars, _, err := m.cars.ListCars(ctx, model.CarFilter{})
	if err != nil {
		return nil, fromStore(err, "car")
	}
	bookings, total, err := m.bookings.ListBookings(ctx, model.BookingFilter{})
	if err != nil {
		return nil, fromStore(err, "booking")
	}

	stats := &model.StatsResponse{
		Cars:            len(cars),
		TotalBookings:   total,
		BookingsByState: make(map[model.BookingStatus]int),
	}
	for i := range cars {
		if cars[i].Available {
			stats.AvailableCars++
		}
		stats.TotalRevenue += cars[i].TotalRevenue
	}
	stats.TotalRevenue = roundCents(stats.TotalRevenue)
	for i := range bookings {
		stats.BookingsByState[bookings[i].Status]++
	}
	return stats, nil
}
