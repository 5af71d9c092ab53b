package repository

import (
	"context"
	"errors"

	"github.com/arunvm123/carrental/model"
)

var (
	// ErrNotFound is returned when a car or booking id is unknown.
	ErrNotFound = errors.New("record not found")

	// ErrNoChange may be returned by a mutation to abort without writing.
	// The repository then returns the unchanged booking and a nil error.
	ErrNoChange = errors.New("no change")
)

// CalendarStatuses are the booking states that can occupy a car's dates.
// Cancelled and payment_failed bookings never do.
var CalendarStatuses = []model.BookingStatus{
	model.StatusPending,
	model.StatusConfirmed,
	model.StatusActive,
	model.StatusCompleted,
}

// CarSnapshot is the locked view of a car handed to booking mutations:
// the car record and its bookings in CalendarStatuses.
type CarSnapshot struct {
	Car      *model.Car
	Bookings []model.Booking
}

// CarRepository defines the interface for car data operations
type CarRepository interface {
	CreateCar(ctx context.Context, car *model.Car) error
	GetCarByID(ctx context.Context, id string) (*model.Car, error)
	ListCars(ctx context.Context, filter model.CarFilter) ([]model.Car, int, error)
	// UpdateCar edits listing fields only. Availability and booking stats
	// change through booking writes.
	UpdateCar(ctx context.Context, req model.UpdateCarRequest) (*model.Car, error)
	// DeleteCar locks the car, hands fn its calendar and deletes the car
	// unless fn returns an error, which is passed back.
	DeleteCar(ctx context.Context, id string, fn func(snap *CarSnapshot) error) error
}

// BookingRepository defines the interface for booking data operations.
//
// CreateBooking and UpdateBooking serialize on the car: the car record is
// locked, the snapshot is loaded, fn runs, and the booking plus the car are
// committed atomically. Errors returned by fn abort the write and are passed
// back to the caller (wrapped with %w at most).
type BookingRepository interface {
	GetBookingByID(ctx context.Context, id string) (*model.Booking, error)
	ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int, error)
	ListCarBookings(ctx context.Context, carID string) ([]model.Booking, error)

	CreateBooking(ctx context.Context, carID string, fn func(snap *CarSnapshot) (*model.Booking, error)) (*model.Booking, error)
	UpdateBooking(ctx context.Context, bookingID string, fn func(b *model.Booking, snap *CarSnapshot) error) (*model.Booking, error)
}

// Store is the document store backing the service.
type Store interface {
	CarRepository
	BookingRepository

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

// IsCalendarStatus reports whether s is one of CalendarStatuses.
func IsCalendarStatus(s model.BookingStatus) bool {
	for _, c := range CalendarStatuses {
		if c == s {
			return true
		}
	}
	return false
}
