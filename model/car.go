package model

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ===============================
// Database Entities (Internal)
// ===============================

// Car is a rentable vehicle listing with its aggregate booking stats.
type Car struct {
	ID            string         `gorm:"type:text;primary_key" firestore:"id"`
	Name          string         `gorm:"type:varchar(255);not null" firestore:"name"`
	Category      string         `gorm:"type:varchar(100);not null;index" firestore:"category"`
	PricePerDay   float64        `gorm:"type:decimal(12,2);not null" firestore:"pricePerDay"`
	Currency      string         `gorm:"type:varchar(3);not null" firestore:"currency"`
	Features      pq.StringArray `gorm:"type:text[]" firestore:"features"`
	Available     bool           `gorm:"not null" firestore:"available"`
	TotalBookings int            `gorm:"not null" firestore:"totalBookings"`
	TotalRevenue  float64        `gorm:"type:decimal(14,2);not null" firestore:"totalRevenue"`
	AverageRating float64        `gorm:"type:decimal(3,2)" firestore:"averageRating"`
	ReviewCount   int            `firestore:"reviewCount"`
	// Version is bumped on every booking write touching the car so that
	// concurrent writers for one car serialize on this row/document.
	Version   int64     `gorm:"not null" firestore:"version"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// TableName sets the table name for GORM
func (Car) TableName() string {
	return "cars"
}

// NewCar builds an available car listing.
func NewCar(req CreateCarRequest, now time.Time) (*Car, error) {
	if req.Name == "" || req.Category == "" {
		return nil, errors.New("car requires name and category")
	}
	if req.PricePerDay <= 0 {
		return nil, errors.New("price per day must be positive")
	}
	if req.Currency == "" {
		return nil, errors.New("car requires a currency")
	}
	return &Car{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Category:    req.Category,
		PricePerDay: req.PricePerDay,
		Currency:    req.Currency,
		Features:    pq.StringArray(req.Features),
		Available:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// RecordPaidBooking adds a paid booking to the car's aggregate stats.
func (c *Car) RecordPaidBooking(amount float64) {
	c.TotalBookings++
	c.TotalRevenue = math.Round((c.TotalRevenue+amount)*100) / 100
}

// Apply merges the non-nil fields of an update.
func (c *Car) Apply(req UpdateCarRequest) {
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Category != nil {
		c.Category = *req.Category
	}
	if req.PricePerDay != nil {
		c.PricePerDay = *req.PricePerDay
	}
	if req.Currency != nil {
		c.Currency = *req.Currency
	}
	if req.Features != nil {
		c.Features = pq.StringArray(req.Features)
	}
}

// Clone returns a deep copy of the car.
func (c *Car) Clone() *Car {
	cp := *c
	cp.Features = append(pq.StringArray(nil), c.Features...)
	return &cp
}

// ToCarResponse converts database Car to API response
func (c *Car) ToCarResponse() CarResponse {
	return CarResponse{
		CarID:         c.ID,
		Name:          c.Name,
		Category:      c.Category,
		PricePerDay:   c.PricePerDay,
		Currency:      c.Currency,
		Features:      c.Features,
		Available:     c.Available,
		TotalBookings: c.TotalBookings,
		TotalRevenue:  c.TotalRevenue,
		AverageRating: c.AverageRating,
		ReviewCount:   c.ReviewCount,
		CreatedAt:     c.CreatedAt,
	}
}

// ===============================
// Repository DTOs (Internal)
// ===============================

// CreateCarRequest represents input for creating a car in repository layer
type CreateCarRequest struct {
	Name        string
	Category    string
	PricePerDay float64
	Currency    string
	Features    []string
}

// UpdateCarRequest represents a partial car update; nil fields are kept.
type UpdateCarRequest struct {
	ID          string
	Name        *string
	Category    *string
	PricePerDay *float64
	Currency    *string
	Features    []string
}

// Columns lists the database columns the update touches.
func (r UpdateCarRequest) Columns() []string {
	var cols []string
	if r.Name != nil {
		cols = append(cols, "name")
	}
	if r.Category != nil {
		cols = append(cols, "category")
	}
	if r.PricePerDay != nil {
		cols = append(cols, "price_per_day")
	}
	if r.Currency != nil {
		cols = append(cols, "currency")
	}
	if r.Features != nil {
		cols = append(cols, "features")
	}
	return cols
}

// CarFilter represents filtering options for repository layer
type CarFilter struct {
	Category      string
	AvailableOnly bool
	MaxPrice      float64
	Limit         int
	Offset        int
}

// ===============================
// API DTOs (External)
// ===============================

// CreateCarAPIRequest represents the API request for listing a car
type CreateCarAPIRequest struct {
	Name        string   `json:"name" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	PricePerDay float64  `json:"price_per_day" binding:"required,gt=0"`
	Currency    string   `json:"currency" binding:"omitempty,len=3"`
	Features    []string `json:"features"`
}

// ToCreateCarRequest converts API request to repository request
func (r *CreateCarAPIRequest) ToCreateCarRequest(defaultCurrency string) CreateCarRequest {
	currency := r.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	return CreateCarRequest{
		Name:        r.Name,
		Category:    r.Category,
		PricePerDay: r.PricePerDay,
		Currency:    currency,
		Features:    r.Features,
	}
}

// UpdateCarAPIRequest represents the API request for editing a car
type UpdateCarAPIRequest struct {
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	PricePerDay *float64 `json:"price_per_day" binding:"omitempty,gt=0"`
	Currency    *string  `json:"currency" binding:"omitempty,len=3"`
	Features    []string `json:"features"`
}

// ToUpdateCarRequest converts API request to repository request
func (r *UpdateCarAPIRequest) ToUpdateCarRequest(id string) UpdateCarRequest {
	return UpdateCarRequest{
		ID:          id,
		Name:        r.Name,
		Category:    r.Category,
		PricePerDay: r.PricePerDay,
		Currency:    r.Currency,
		Features:    r.Features,
	}
}

// CarResponse represents car data in API responses
type CarResponse struct {
	CarID         string    `json:"car_id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	PricePerDay   float64   `json:"price_per_day"`
	Currency      string    `json:"currency"`
	Features      []string  `json:"features"`
	Available     bool      `json:"available"`
	TotalBookings int       `json:"total_bookings"`
	TotalRevenue  float64   `json:"total_revenue"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// CarListResponse represents the response for listing cars
type CarListResponse struct {
	Cars       []CarResponse `json:"cars"`
	Pagination Pagination    `json:"pagination"`
}
