// Package memory is an in-process Store used by tests and local runs.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/arunvm123/carrental/model"
	"github.com/arunvm123/carrental/repository"
)

// Store keeps cars and bookings in maps. One mutex serializes every write,
// which is stricter than the per-car locking of the real stores.
type Store struct {
	mu       sync.Mutex
	cars     map[string]*model.Car
	bookings map[string]*model.Booking
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		cars:     make(map[string]*model.Car),
		bookings: make(map[string]*model.Booking),
	}
}

func (s *Store) CreateCar(ctx context.Context, car *model.Car) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cars[car.ID] = car.Clone()
	return nil
}

func (s *Store) GetCarByID(ctx context.Context, id string) (*model.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	car, ok := s.cars[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return car.Clone(), nil
}

func (s *Store) ListCars(ctx context.Context, filter model.CarFilter) ([]model.Car, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cars []model.Car
	for _, car := range s.cars {
		if filter.Category != "" && car.Category != filter.Category {
			continue
		}
		if filter.AvailableOnly && !car.Available {
			continue
		}
		if filter.MaxPrice > 0 && car.PricePerDay > filter.MaxPrice {
			continue
		}
		cars = append(cars, *car.Clone())
	}
	sort.Slice(cars, func(i, j int) bool {
		if cars[i].PricePerDay != cars[j].PricePerDay {
			return cars[i].PricePerDay < cars[j].PricePerDay
		}
		return cars[i].ID < cars[j].ID
	})

	total := len(cars)
	return page(cars, filter.Limit, filter.Offset), total, nil
}

func (s *Store) UpdateCar(ctx context.Context, req model.UpdateCarRequest) (*model.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	car, ok := s.cars[req.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	car.Apply(req)
	return car.Clone(), nil
}

func (s *Store) DeleteCar(ctx context.Context, id string, fn func(snap *repository.CarSnapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	car, ok := s.cars[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := fn(&repository.CarSnapshot{Car: car.Clone(), Bookings: s.calendar(id)}); err != nil {
		return err
	}
	delete(s.cars, id)
	return nil
}

func (s *Store) GetBookingByID(ctx context.Context, id string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b.Clone(), nil
}

func (s *Store) ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Booking
	for _, b := range s.bookings {
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.CarID != "" && b.CarID != filter.CarID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, *b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	total := len(out)
	return page(out, filter.Limit, filter.Offset), total, nil
}

func (s *Store) ListCarBookings(ctx context.Context, carID string) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calendar(carID), nil
}

func (s *Store) CreateBooking(ctx context.Context, carID string, fn func(snap *repository.CarSnapshot) (*model.Booking, error)) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	car, ok := s.cars[carID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	snap := &repository.CarSnapshot{Car: car.Clone(), Bookings: s.calendar(carID)}

	b, err := fn(snap)
	if err != nil {
		return nil, err
	}

	snap.Car.Version++
	s.cars[carID] = snap.Car.Clone()
	s.bookings[b.ID] = b.Clone()
	return b, nil
}

func (s *Store) UpdateBooking(ctx context.Context, bookingID string, fn func(b *model.Booking, snap *repository.CarSnapshot) error) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bookings[bookingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	car, ok := s.cars[stored.CarID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	b := stored.Clone()
	snap := &repository.CarSnapshot{Car: car.Clone(), Bookings: s.calendar(stored.CarID)}
	if err := fn(b, snap); err != nil {
		if errors.Is(err, repository.ErrNoChange) {
			return stored.Clone(), nil
		}
		return nil, err
	}

	snap.Car.Version++
	s.cars[car.ID] = snap.Car.Clone()
	s.bookings[b.ID] = b.Clone()
	return b, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

// calendar returns copies of carID's bookings in a calendar status.
// Callers hold s.mu.
func (s *Store) calendar(carID string) []model.Booking {
	var out []model.Booking
	for _, b := range s.bookings {
		if b.CarID == carID && repository.IsCalendarStatus(b.Status) {
			out = append(out, *b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PickupDate.Before(out[j].PickupDate)
	})
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
