// Package firestore implements repository.Store on Cloud Firestore.
// Booking writes run in a transaction that reads and rewrites the car
// document, so writers for one car conflict and Firestore retries them.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/arunvm123/carrental/config"
	"github.com/arunvm123/carrental/model"
	"github.com/arunvm123/carrental/repository"
)

type FirestoreStore struct {
	client   *firestore.Client
	cars     string
	bookings string
}

var _ repository.Store = (*FirestoreStore)(nil)

func NewStore(ctx context.Context, cfg *config.Firestore) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreStore{
		client:   client,
		cars:     cfg.CarsCollection,
		bookings: cfg.BookingsCollection,
	}, nil
}

func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.client.Collection(s.cars).Limit(1).Documents(ctx).GetAll()
	return err
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) CreateCar(ctx context.Context, car *model.Car) error {
	if _, err := s.client.Collection(s.cars).Doc(car.ID).Create(ctx, car); err != nil {
		return fmt.Errorf("failed to create car: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetCarByID(ctx context.Context, id string) (*model.Car, error) {
	doc, err := s.client.Collection(s.cars).Doc(id).Get(ctx)
	if err != nil {
		return nil, wrap(err, "failed to get car")
	}
	var car model.Car
	if err := doc.DataTo(&car); err != nil {
		return nil, fmt.Errorf("failed to decode car %s: %w", id, err)
	}
	return &car, nil
}

func (s *FirestoreStore) ListCars(ctx context.Context, filter model.CarFilter) ([]model.Car, int, error) {
	query := s.client.Collection(s.cars).Query
	if filter.Category != "" {
		query = query.Where("category", "==", filter.Category)
	}
	if filter.AvailableOnly {
		query = query.Where("available", "==", true)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cars: %w", err)
	}

	var cars []model.Car
	for _, doc := range docs {
		var car model.Car
		if err := doc.DataTo(&car); err != nil {
			return nil, 0, fmt.Errorf("failed to decode car %s: %w", doc.Ref.ID, err)
		}
		if filter.MaxPrice > 0 && car.PricePerDay > filter.MaxPrice {
			continue
		}
		cars = append(cars, car)
	}
	sort.Slice(cars, func(i, j int) bool {
		if cars[i].PricePerDay != cars[j].PricePerDay {
			return cars[i].PricePerDay < cars[j].PricePerDay
		}
		return cars[i].ID < cars[j].ID
	})

	return page(cars, filter.Limit, filter.Offset), len(cars), nil
}

func (s *FirestoreStore) UpdateCar(ctx context.Context, req model.UpdateCarRequest) (*model.Car, error) {
	var updated *model.Car
	ref := s.client.Collection(s.cars).Doc(req.ID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return wrap(err, "failed to get car")
		}
		var car model.Car
		if err := doc.DataTo(&car); err != nil {
			return fmt.Errorf("failed to decode car %s: %w", req.ID, err)
		}
		car.Apply(req)
		updated = &car
		return tx.Set(ref, &car)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCar reads the car and its calendar in the same transaction as the
// delete, so a booking committed in between aborts and retries it.
func (s *FirestoreStore) DeleteCar(ctx context.Context, id string, fn func(snap *repository.CarSnapshot) error) error {
	ref := s.client.Collection(s.cars).Doc(id)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := s.loadSnapshot(tx, ref, id)
		if err != nil {
			return err
		}
		if err := fn(snap); err != nil {
			return err
		}
		if err := tx.Delete(ref); err != nil {
			return fmt.Errorf("failed to delete car: %w", err)
		}
		return nil
	})
}

func (s *FirestoreStore) GetBookingByID(ctx context.Context, id string) (*model.Booking, error) {
	doc, err := s.client.Collection(s.bookings).Doc(id).Get(ctx)
	if err != nil {
		return nil, wrap(err, "failed to get booking")
	}
	return decodeBooking(doc)
}

func (s *FirestoreStore) ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int, error) {
	query := s.client.Collection(s.bookings).Query
	if filter.UserID != "" {
		query = query.Where("userId", "==", filter.UserID)
	}
	if filter.CarID != "" {
		query = query.Where("carId", "==", filter.CarID)
	}
	if filter.Status != "" {
		query = query.Where("status", "==", string(filter.Status))
	}

	var bookings []model.Booking
	iter := query.Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
		}
		b, err := decodeBooking(doc)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, *b)
	}
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
		}
		return bookings[i].ID < bookings[j].ID
	})

	return page(bookings, filter.Limit, filter.Offset), len(bookings), nil
}

func (s *FirestoreStore) ListCarBookings(ctx context.Context, carID string) ([]model.Booking, error) {
	docs, err := s.calendarQuery(carID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list car bookings: %w", err)
	}
	return decodeCalendar(docs)
}

func (s *FirestoreStore) CreateBooking(ctx context.Context, carID string, fn func(snap *repository.CarSnapshot) (*model.Booking, error)) (*model.Booking, error) {
	var created *model.Booking
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = nil
		carRef := s.client.Collection(s.cars).Doc(carID)
		snap, err := s.loadSnapshot(tx, carRef, carID)
		if err != nil {
			return err
		}

		b, err := fn(snap)
		if err != nil {
			return err
		}

		if err := tx.Create(s.client.Collection(s.bookings).Doc(b.ID), b); err != nil {
			return err
		}
		snap.Car.Version++
		if err := tx.Set(carRef, snap.Car); err != nil {
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

func (s *FirestoreStore) UpdateBooking(ctx context.Context, bookingID string, fn func(b *model.Booking, snap *repository.CarSnapshot) error) (*model.Booking, error) {
	var updated *model.Booking
	bookingRef := s.client.Collection(s.bookings).Doc(bookingID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		updated = nil
		doc, err := tx.Get(bookingRef)
		if err != nil {
			return wrap(err, "failed to get booking")
		}
		b, err := decodeBooking(doc)
		if err != nil {
			return err
		}

		carRef := s.client.Collection(s.cars).Doc(b.CarID)
		snap, err := s.loadSnapshot(tx, carRef, b.CarID)
		if err != nil {
			return err
		}

		if err := fn(b, snap); err != nil {
			if errors.Is(err, repository.ErrNoChange) {
				updated = b
				return nil
			}
			return err
		}

		if err := tx.Set(bookingRef, b); err != nil {
			return err
		}
		snap.Car.Version++
		if err := tx.Set(carRef, snap.Car); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// loadSnapshot reads the car and its calendar inside tx. All reads of a
// Firestore transaction must come before its writes.
func (s *FirestoreStore) loadSnapshot(tx *firestore.Transaction, carRef *firestore.DocumentRef, carID string) (*repository.CarSnapshot, error) {
	carDoc, err := tx.Get(carRef)
	if err != nil {
		return nil, wrap(err, "failed to get car")
	}
	var car model.Car
	if err := carDoc.DataTo(&car); err != nil {
		return nil, fmt.Errorf("failed to decode car %s: %w", carID, err)
	}

	docs, err := tx.Documents(s.calendarQuery(carID)).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load car calendar: %w", err)
	}
	bookings, err := decodeCalendar(docs)
	if err != nil {
		return nil, err
	}
	return &repository.CarSnapshot{Car: &car, Bookings: bookings}, nil
}

func (s *FirestoreStore) calendarQuery(carID string) firestore.Query {
	statuses := make([]interface{}, len(repository.CalendarStatuses))
	for i, st := range repository.CalendarStatuses {
		statuses[i] = string(st)
	}
	return s.client.Collection(s.bookings).
		Where("carId", "==", carID).
		Where("status", "in", statuses)
}

func decodeBooking(doc *firestore.DocumentSnapshot) (*model.Booking, error) {
	var b model.Booking
	if err := doc.DataTo(&b); err != nil {
		return nil, fmt.Errorf("failed to decode booking %s: %w", doc.Ref.ID, err)
	}
	// Firestore returns timestamps in local time.
	b.PickupDate = model.DateOf(b.PickupDate)
	b.DropoffDate = model.DateOf(b.DropoffDate)
	return &b, nil
}

func decodeCalendar(docs []*firestore.DocumentSnapshot) ([]model.Booking, error) {
	bookings := make([]model.Booking, 0, len(docs))
	for _, doc := range docs {
		b, err := decodeBooking(doc)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].PickupDate.Before(bookings[j].PickupDate)
	})
	return bookings, nil
}

func wrap(err error, msg string) error {
	if status.Code(err) == codes.NotFound {
		return repository.ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
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
