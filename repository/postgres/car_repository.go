package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arunvm123/carrental/model"
	"github.com/arunvm123/carrental/repository"
)

// CreateCar inserts a new car listing
func (s *PostgresStore) CreateCar(ctx context.Context, car *model.Car) error {
	if err := s.db.WithContext(ctx).Create(car).Error; err != nil {
		return fmt.Errorf("failed to create car: %w", err)
	}
	return nil
}

// GetCarByID retrieves a car by its ID
func (s *PostgresStore) GetCarByID(ctx context.Context, id string) (*model.Car, error) {
	var car model.Car
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&car).Error; err != nil {
		if err = notFound(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	return &car, nil
}

// ListCars retrieves cars matching the filter, cheapest first
func (s *PostgresStore) ListCars(ctx context.Context, filter model.CarFilter) ([]model.Car, int, error) {
	var cars []model.Car
	var total int64

	query := s.db.WithContext(ctx).Model(&model.Car{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.AvailableOnly {
		query = query.Where("available = ?", true)
	}
	if filter.MaxPrice > 0 {
		query = query.Where("price_per_day <= ?", filter.MaxPrice)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cars: %w", err)
	}

	err := paginate(query.Order("price_per_day ASC, id ASC"), filter.Limit, filter.Offset).
		Find(&cars).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cars: %w", err)
	}

	return cars, int(total), nil
}

// UpdateCar applies a partial update to a car listing. The row is locked and
// only the edited columns are written, so booking stats committed
// concurrently are kept.
func (s *PostgresStore) UpdateCar(ctx context.Context, req model.UpdateCarRequest) (*model.Car, error) {
	var updated *model.Car
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var car model.Car
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", req.ID).First(&car).Error
		if err != nil {
			return notFound(err)
		}

		car.Apply(req)
		car.UpdatedAt = time.Now().UTC()
		cols := append(req.Columns(), "updated_at")
		if err := tx.Model(&car).Select(cols).Updates(&car).Error; err != nil {
			return fmt.Errorf("failed to update car: %w", err)
		}
		updated = &car
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCar removes a car listing once fn accepts its locked calendar.
// Booking writes lock the same row, so none can slip in before the delete.
func (s *PostgresStore) DeleteCar(ctx context.Context, id string, fn func(snap *repository.CarSnapshot) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snap, err := lockCar(tx, id)
		if err != nil {
			return err
		}
		if err := fn(snap); err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&model.Car{}).Error; err != nil {
			return fmt.Errorf("failed to delete car: %w", err)
		}
		return nil
	})
}
