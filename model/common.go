package model

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Actor is the authenticated identity behind a request, as supplied by the
// identity provider's token.
type Actor struct {
	ID    string
	Email string
	Role  string
}

// IsAdmin is nil-safe.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// SystemActor is used for transitions driven by the payment gateway.
var SystemActor = &Actor{ID: "system:payments", Role: "system"}

// Pagination represents pagination information
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// NewPagination fills HasMore from the page window.
func NewPagination(total, limit, offset int) Pagination {
	return Pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// StatsResponse represents the admin dashboard totals
type StatsResponse struct {
	Cars            int                   `json:"cars"`
	AvailableCars   int                   `json:"available_cars"`
	TotalBookings   int                   `json:"total_bookings"`
	TotalRevenue    float64               `json:"total_revenue"`
	BookingsByState map[BookingStatus]int `json:"bookings_by_status"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
