package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DateLayout is the wire format of pickup and dropoff dates.
const DateLayout = "2006-01-02"

// DateOf strips the time of day, returning midnight UTC of t's UTC calendar day.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// ============================================================================
// DATABASE ENTITIES (Internal - GORM and Firestore tags, no JSON tags)
// ============================================================================

// Booking represents a rental of one car over [PickupDate, DropoffDate).
type Booking struct {
	ID                 string                            `gorm:"type:text;primary_key" firestore:"id"`
	CarID              string                            `gorm:"type:text;not null;index" firestore:"carId"`
	UserID             string                            `gorm:"type:text;not null;index" firestore:"userId"`
	UserEmail          string                            `gorm:"type:varchar(255)" firestore:"userEmail"`
	PickupDate         time.Time                         `gorm:"type:date;not null;index" firestore:"pickupDate"`
	DropoffDate        time.Time                         `gorm:"type:date;not null" firestore:"dropoffDate"`
	Status             BookingStatus                     `gorm:"type:varchar(20);not null;default:'pending';index" firestore:"status"`
	PaymentStatus      PaymentStatus                     `gorm:"type:varchar(20);not null;default:'pending'" firestore:"paymentStatus"`
	TotalAmount        float64                           `gorm:"type:decimal(12,2);not null" firestore:"totalAmount"`
	Currency           string                            `gorm:"type:varchar(3);not null" firestore:"currency"`
	HoldExpiresAt      *time.Time                        `firestore:"holdExpiresAt"`
	PaidAt             *time.Time                        `firestore:"paidAt"`
	PaymentReference   string                            `gorm:"type:varchar(255)" firestore:"paymentReference"`
	CancellationReason *string                           `gorm:"type:text" firestore:"cancellationReason"`
	RefundAmount       *float64                          `gorm:"type:decimal(12,2)" firestore:"refundAmount"`
	History            datatypes.JSONSlice[StatusChange] `firestore:"history"`
	CreatedAt          time.Time                         `firestore:"createdAt"`
	UpdatedAt          time.Time                         `firestore:"updatedAt"`
}

// TableName sets the table name for GORM
func (Booking) TableName() string {
	return "bookings"
}

// StatusChange is one entry of a booking's audit trail.
type StatusChange struct {
	From          BookingStatus `json:"from" firestore:"from"`
	To            BookingStatus `json:"to" firestore:"to"`
	PaymentStatus PaymentStatus `json:"payment_status" firestore:"paymentStatus"`
	Actor         string        `json:"actor" firestore:"actor"`
	Note          string        `json:"note,omitempty" firestore:"note"`
	At            time.Time     `json:"at" firestore:"at"`
}

// NewBooking builds a pending booking whose reservation hold lasts holdTTL.
func NewBooking(req CreateBookingRequest, now time.Time, holdTTL time.Duration) (*Booking, error) {
	holdExpiresAt := now.Add(holdTTL)
	b := &Booking{
		ID:            uuid.NewString(),
		CarID:         req.CarID,
		UserID:        req.UserID,
		UserEmail:     req.UserEmail,
		PickupDate:    DateOf(req.PickupDate),
		DropoffDate:   DateOf(req.DropoffDate),
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		TotalAmount:   req.TotalAmount,
		Currency:      req.Currency,
		HoldExpiresAt: &holdExpiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.History = append(b.History, StatusChange{
		To:            StatusPending,
		PaymentStatus: PaymentPending,
		Actor:         req.UserID,
		Note:          "booking created",
		At:            now,
	})

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate checks the invariants every persisted booking must satisfy.
func (b *Booking) Validate() error {
	if b.CarID == "" || b.UserID == "" {
		return errors.New("booking requires car and user")
	}
	if !b.DropoffDate.After(b.PickupDate) {
		return errors.New("dropoff date must be after pickup date")
	}
	if !b.Status.IsValid() {
		return fmt.Errorf("invalid booking status: %s", b.Status)
	}
	if !b.PaymentStatus.IsValid() {
		return fmt.Errorf("invalid payment status: %s", b.PaymentStatus)
	}
	if b.TotalAmount < 0 {
		return errors.New("total amount must not be negative")
	}
	if b.PaymentStatus == PaymentPaid {
		switch b.Status {
		case StatusConfirmed, StatusActive, StatusCompleted:
		default:
			return fmt.Errorf("payment status paid is inconsistent with booking status %s", b.Status)
		}
	}
	if b.Status == StatusCancelled {
		switch b.PaymentStatus {
		case PaymentRefunded, PaymentCancelled, PaymentFailed:
		default:
			return fmt.Errorf("cancelled booking cannot have payment status %s", b.PaymentStatus)
		}
	}
	if b.RefundAmount != nil && (*b.RefundAmount < 0 || *b.RefundAmount > b.TotalAmount) {
		return fmt.Errorf("refund %.2f outside [0, %.2f]", *b.RefundAmount, b.TotalAmount)
	}
	return nil
}

// Days is the number of rental days.
func (b *Booking) Days() int {
	return int(b.DropoffDate.Sub(b.PickupDate).Hours() / 24)
}

// HoldExpired reports whether a pending booking's reservation hold has lapsed.
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.Status == StatusPending && b.HoldExpiresAt != nil && !now.Before(*b.HoldExpiresAt)
}

// BlocksCalendar reports whether the booking occupies its dates at now.
// Pending bookings only block while their reservation hold is live.
func (b *Booking) BlocksCalendar(now time.Time) bool {
	switch b.Status {
	case StatusConfirmed, StatusActive, StatusCompleted:
		return true
	case StatusPending:
		return !b.HoldExpired(now)
	}
	return false
}

// Overlaps reports whether [start, end) intersects the booking's dates.
// Back-to-back ranges do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return start.Before(b.DropoffDate) && end.After(b.PickupDate)
}

// ============================================================================
// REPOSITORY DATA TRANSFER OBJECTS (Internal - no JSON tags)
// ============================================================================

// CreateBookingRequest represents the data needed to create a booking
type CreateBookingRequest struct {
	CarID       string
	UserID      string
	UserEmail   string
	PickupDate  time.Time
	DropoffDate time.Time
	TotalAmount float64
	Currency    string
}

// StatusUpdate carries the optional fields applied alongside a status change.
type StatusUpdate struct {
	PaymentStatus      *PaymentStatus
	CancellationReason *string
	RefundAmount       *float64
	PaidAt             *time.Time
	PaymentReference   string
	Actor              string
	Note               string
}

// BookingFilter represents filtering options for booking queries
type BookingFilter struct {
	UserID string
	CarID  string
	Status BookingStatus
	Limit  int
	Offset int
}

// ============================================================================
// API DATA TRANSFER OBJECTS (External - JSON tags for HTTP)
// ============================================================================

// CheckAvailabilityRequest represents the API request for a conflict check
type CheckAvailabilityRequest struct {
	CarID            string `json:"car_id" binding:"required"`
	PickupDate       string `json:"pickup_date" binding:"required"`
	DropoffDate      string `json:"dropoff_date" binding:"required"`
	ExcludeBookingID string `json:"exclude_booking_id"`
}

// ConflictResponse represents the result of a conflict check
type ConflictResponse struct {
	HasConflict bool              `json:"has_conflict"`
	Conflicts   []ConflictSummary `json:"conflicts"`
}

// ConflictSummary describes a booking that occupies requested dates
type ConflictSummary struct {
	BookingID   string        `json:"booking_id"`
	PickupDate  string        `json:"pickup_date"`
	DropoffDate string        `json:"dropoff_date"`
	Status      BookingStatus `json:"status"`
}

// CreateBookingAPIRequest represents the API request to book a car
type CreateBookingAPIRequest struct {
	CarID       string `json:"car_id" binding:"required"`
	PickupDate  string `json:"pickup_date" binding:"required"`
	DropoffDate string `json:"dropoff_date" binding:"required"`
}

// CancelBookingAPIRequest represents the API request to cancel a booking
type CancelBookingAPIRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// UpdateBookingStatusAPIRequest represents an admin status change
type UpdateBookingStatusAPIRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"max=500"`
}

// BookingResponse represents a booking in API responses
type BookingResponse struct {
	BookingID          string         `json:"booking_id"`
	CarID              string         `json:"car_id"`
	UserID             string         `json:"user_id"`
	PickupDate         string         `json:"pickup_date"`
	DropoffDate        string         `json:"dropoff_date"`
	Days               int            `json:"days"`
	Status             BookingStatus  `json:"status"`
	PaymentStatus      PaymentStatus  `json:"payment_status"`
	TotalAmount        float64        `json:"total_amount"`
	Currency           string         `json:"currency"`
	HoldExpiresAt      *time.Time     `json:"hold_expires_at,omitempty"`
	PaidAt             *time.Time     `json:"paid_at,omitempty"`
	CancellationReason *string        `json:"cancellation_reason,omitempty"`
	RefundAmount       *float64       `json:"refund_amount,omitempty"`
	History            []StatusChange `json:"history,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	StatusURL          string         `json:"status_url,omitempty"`
	StreamURL          string         `json:"stream_url,omitempty"`
}

// BookingListResponse represents the list of bookings
type BookingListResponse struct {
	Bookings   []BookingResponse `json:"bookings"`
	Pagination Pagination        `json:"pagination"`
}

// BookingStatusUpdate represents real-time status updates for SSE
type BookingStatusUpdate struct {
	BookingID     string        `json:"booking_id"`
	UserID        string        `json:"user_id"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Message       string        `json:"message"`
	UpdatedAt     time.Time     `json:"updated_at"`
	// Revision grows with every committed change to the booking.
	Revision int `json:"revision"`
}

// Supersedes reports whether s is newer than old.
func (s *BookingStatusUpdate) Supersedes(old *BookingStatusUpdate) bool {
	return old == nil || s.Revision > old.Revision
}

// ============================================================================
// CONVERSION METHODS
// ============================================================================

// ToBookingResponse converts a Booking entity to an API response
func (b *Booking) ToBookingResponse() BookingResponse {
	return BookingResponse{
		BookingID:          b.ID,
		CarID:              b.CarID,
		UserID:             b.UserID,
		PickupDate:         b.PickupDate.Format(DateLayout),
		DropoffDate:        b.DropoffDate.Format(DateLayout),
		Days:               b.Days(),
		Status:             b.Status,
		PaymentStatus:      b.PaymentStatus,
		TotalAmount:        b.TotalAmount,
		Currency:           b.Currency,
		HoldExpiresAt:      b.HoldExpiresAt,
		PaidAt:             b.PaidAt,
		CancellationReason: b.CancellationReason,
		RefundAmount:       b.RefundAmount,
		History:            b.History,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

// ToConflictSummary converts a Booking entity to a conflict summary
func (b *Booking) ToConflictSummary() ConflictSummary {
	return ConflictSummary{
		BookingID:   b.ID,
		PickupDate:  b.PickupDate.Format(DateLayout),
		DropoffDate: b.DropoffDate.Format(DateLayout),
		Status:      b.Status,
	}
}

// ToStatusUpdate converts a Booking entity to a status update for the cache
func (b *Booking) ToStatusUpdate(message string) *BookingStatusUpdate {
	return &BookingStatusUpdate{
		BookingID:     b.ID,
		UserID:        b.UserID,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		Message:       message,
		UpdatedAt:     b.UpdatedAt,
		Revision:      len(b.History),
	}
}

// Clone returns a deep copy of the booking.
func (b *Booking) Clone() *Booking {
	c := *b
	if b.HoldExpiresAt != nil {
		t := *b.HoldExpiresAt
		c.HoldExpiresAt = &t
	}
	if b.PaidAt != nil {
		t := *b.PaidAt
		c.PaidAt = &t
	}
	if b.CancellationReason != nil {
		s := *b.CancellationReason
		c.CancellationReason = &s
	}
	if b.RefundAmount != nil {
		f := *b.RefundAmount
		c.RefundAmount = &f
	}
	c.History = append(datatypes.JSONSlice[StatusChange](nil), b.History...)
	return &c
}
