package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arunvm123/carrental/model"
	"github.com/arunvm123/carrental/repository"
)

// GetBookingByID retrieves a booking by its ID
func (s *PostgresStore) GetBookingByID(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		if err = notFound(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// ListBookings retrieves bookings with filtering, newest first
func (s *PostgresStore) ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int, error) {
	var bookings []model.Booking
	var total int64

	query := s.db.WithContext(ctx).Model(&model.Booking{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.CarID != "" {
		query = query.Where("car_id = ?", filter.CarID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	err := paginate(query.Order("created_at DESC, id ASC"), filter.Limit, filter.Offset).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, int(total), nil
}

// ListCarBookings returns the bookings of a car that can occupy its calendar
func (s *PostgresStore) ListCarBookings(ctx context.Context, carID string) ([]model.Booking, error) {
	bookings, err := carCalendar(s.db.WithContext(ctx), carID)
	if err != nil {
		return nil, fmt.Errorf("failed to list car bookings: %w", err)
	}
	return bookings, nil
}

// CreateBooking locks the car row, hands fn the car's calendar and inserts
// the booking fn returns. Concurrent creates for one car queue on the lock.
func (s *PostgresStore) CreateBooking(ctx context.Context, carID string, fn func(snap *repository.CarSnapshot) (*model.Booking, error)) (*model.Booking, error) {
	var created *model.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snap, err := lockCar(tx, carID)
		if err != nil {
			return err
		}

		b, err := fn(snap)
		if err != nil {
			return err
		}

		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		if err := saveCar(tx, snap.Car); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateBooking locks the booking's car and then the booking itself, runs fn
// and saves both.
func (s *PostgresStore) UpdateBooking(ctx context.Context, bookingID string, fn func(b *model.Booking, snap *repository.CarSnapshot) error) (*model.Booking, error) {
	var updated *model.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var carIDs []string
		err := tx.Model(&model.Booking{}).Where("id = ?", bookingID).Limit(1).Pluck("car_id", &carIDs).Error
		if err != nil {
			return fmt.Errorf("failed to get booking: %w", err)
		}
		if len(carIDs) == 0 {
			return repository.ErrNotFound
		}

		snap, err := lockCar(tx, carIDs[0])
		if err != nil {
			return err
		}

		var b model.Booking
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", bookingID).First(&b).Error
		if err != nil {
			return notFound(err)
		}

		if err := fn(&b, snap); err != nil {
			if errors.Is(err, repository.ErrNoChange) {
				updated = &b
				return nil
			}
			return err
		}

		if err := tx.Save(&b).Error; err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		if err := saveCar(tx, snap.Car); err != nil {
			return err
		}
		updated = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func lockCar(tx *gorm.DB, carID string) (*repository.CarSnapshot, error) {
	var car model.Car
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", carID).First(&car).Error
	if err != nil {
		return nil, notFound(err)
	}

	bookings, err := carCalendar(tx, carID)
	if err != nil {
		return nil, fmt.Errorf("failed to load car calendar: %w", err)
	}
	return &repository.CarSnapshot{Car: &car, Bookings: bookings}, nil
}

func carCalendar(db *gorm.DB, carID string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := db.Where("car_id = ? AND status IN ?", carID, calendarStatuses()).
		Order("pickup_date ASC").
		Find(&bookings).Error
	return bookings, err
}

func saveCar(tx *gorm.DB, car *model.Car) error {
	car.Version++
	if err := tx.Save(car).Error; err != nil {
		return fmt.Errorf("failed to update car: %w", err)
	}
	return nil
}
