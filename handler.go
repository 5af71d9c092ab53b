package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/arunvm123/carrental/booking"
	"github.com/arunvm123/carrental/cache"
	"github.com/arunvm123/carrental/model"
	"github.com/arunvm123/carrental/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type BookingHandler struct {
	manager      *booking.Manager
	cache        cache.CacheRepository
	statusTTL    time.Duration
	pollInterval time.Duration
	log          logrus.FieldLogger
}

func NewBookingHandler(manager *booking.Manager, c cache.CacheRepository, statusTTL time.Duration, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{
		manager:      manager,
		cache:        c,
		statusTTL:    statusTTL,
		pollInterval: 2 * time.Second,
		log:          log,
	}
}

// CheckAvailability reports the bookings overlapping the requested dates
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	var req model.CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	pickup, dropoff, err := parseRange(req.PickupDate, req.DropoffDate)
	if err != nil {
		invalidDates(c, err)
		return
	}

	res, err := h.manager.CheckConflict(c.Request.Context(), req.CarID, pickup, dropoff, req.ExcludeBookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := model.ConflictResponse{
		HasConflict: res.HasConflict,
		Conflicts:   make([]model.ConflictSummary, 0, len(res.Conflicts)),
	}
	for i := range res.Conflicts {
		resp.Conflicts = append(resp.Conflicts, res.Conflicts[i].ToConflictSummary())
	}
	c.JSON(http.StatusOK, resp)
}

// CreateBooking reserves a car for the authenticated user
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req model.CreateBookingAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	pickup, dropoff, err := parseRange(req.PickupDate, req.DropoffDate)
	if err != nil {
		invalidDates(c, err)
		return
	}

	b, err := h.manager.CreateBooking(c.Request.Context(), booking.CreateInput{
		CarID:       req.CarID,
		PickupDate:  pickup,
		DropoffDate: dropoff,
	}, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, withLinks(b))
}

// ListBookings returns the caller's bookings; admins see everyone's
func (h *BookingHandler) ListBookings(c *gin.Context) {
	limit, offset, err := pageParams(c)
	if err != nil {
		validationError(c, err)
		return
	}

	filter := model.BookingFilter{
		UserID: c.Query("user_id"),
		CarID:  c.Query("car_id"),
		Limit:  limit,
		Offset: offset,
	}
	if s := c.Query("status"); s != "" {
		status, err := model.ParseBookingStatus(s)
		if err != nil {
			validationError(c, err)
			return
		}
		filter.Status = status
	}

	bookings, total, err := h.manager.ListBookings(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := model.BookingListResponse{
		Bookings:   make([]model.BookingResponse, 0, len(bookings)),
		Pagination: model.NewPagination(total, limit, offset),
	}
	for i := range bookings {
		resp.Bookings = append(resp.Bookings, withLinks(&bookings[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// GetBooking returns one booking with its history
func (h *BookingHandler) GetBooking(c *gin.Context) {
	b, err := h.manager.GetBooking(c.Request.Context(), actorFrom(c), c.Param("bookingId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, withLinks(b))
}

// GetBookingStatus returns the current status of a booking, from cache when possible
func (h *BookingHandler) GetBookingStatus(c *gin.Context) {
	status, err := h.currentStatus(c, c.Param("bookingId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// CancelBooking cancels a booking on behalf of its owner or an admin
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req model.CancelBookingAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	b, err := h.manager.CancelForActor(c.Request.Context(), actorFrom(c), c.Param("bookingId"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, withLinks(b))
}

// StreamBookingStatus provides Server-Sent Events for real-time booking updates.
// The stream ends once the payment outcome is known.
func (h *BookingHandler) StreamBookingStatus(c *gin.Context) {
	bookingID := c.Param("bookingId")
	ctx := c.Request.Context()

	current, err := h.currentStatus(c, bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	h.sendStatus(c, current)
	if streamFinished(current.Status) {
		h.sendComplete(c, current)
		return
	}

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			updated, err := h.currentStatus(c, bookingID)
			if err != nil {
				h.log.WithError(err).WithField("booking_id", bookingID).Warn("status poll failed")
				continue
			}
			if updated.Status == current.Status && updated.PaymentStatus == current.PaymentStatus {
				continue
			}

			current = updated
			h.sendStatus(c, current)
			if streamFinished(current.Status) {
				h.sendComplete(c, current)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (h *BookingHandler) sendStatus(c *gin.Context, status *model.BookingStatusUpdate) {
	eventData, _ := json.Marshal(status)
	c.SSEvent("status", string(eventData))
	c.Writer.Flush()
}

func (h *BookingHandler) sendComplete(c *gin.Context, status *model.BookingStatusUpdate) {
	finalData, _ := json.Marshal(gin.H{
		"booking_id":     status.BookingID,
		"final_status":   status.Status,
		"payment_status": status.PaymentStatus,
	})
	c.SSEvent("complete", string(finalData))
	c.Writer.Flush()
}

// currentStatus reads the cached status, falling back to the store and
// refilling the cache on a miss.
func (h *BookingHandler) currentStatus(c *gin.Context, bookingID string) (*model.BookingStatusUpdate, error) {
	ctx := c.Request.Context()
	actor := actorFrom(c)

	cached, err := h.cache.GetBookingStatus(ctx, bookingID)
	if err != nil {
		h.log.WithError(err).WithField("booking_id", bookingID).Warn("status cache read failed")
	}
	if cached != nil && actor != nil && (cached.UserID == actor.ID || actor.IsAdmin()) {
		return cached, nil
	}

	b, err := h.manager.GetBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	status := b.ToStatusUpdate(cache.StatusMessage(b))
	if err := h.cache.SetBookingStatus(ctx, bookingID, status, h.statusTTL); err != nil {
		h.log.WithError(err).WithField("booking_id", bookingID).Warn("status cache write failed")
	}
	return status, nil
}

func streamFinished(s model.BookingStatus) bool {
	return s != model.StatusPending
}

func withLinks(b *model.Booking) model.BookingResponse {
	resp := b.ToBookingResponse()
	resp.StatusURL = fmt.Sprintf("/api/bookings/%s/status", b.ID)
	resp.StreamURL = fmt.Sprintf("/api/bookings/%s/stream", b.ID)
	return resp
}

func parseRange(pickup, dropoff string) (time.Time, time.Time, error) {
	p, err := model.ParseDate(pickup)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	d, err := model.ParseDate(dropoff)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return p, d, nil
}

func pageParams(c *gin.Context) (int, int, error) {
	limit := defaultPageSize
	offset := 0
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > maxPageSize {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", maxPageSize)
		}
		limit = v
	}
	if s := c.Query("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
		offset = v
	}
	return limit, offset, nil
}

// HealthHandler reports the store and cache health
type HealthHandler struct {
	store repository.Store
	cache cache.CacheRepository
}

func NewHealthHandler(store repository.Store, c cache.CacheRepository) *HealthHandler {
	return &HealthHandler{store: store, cache: c}
}

// HealthCheck handles health check endpoint
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Error:   "service_unavailable",
			Message: "Document store ping failed",
		})
		return
	}

	if err := h.cache.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Error:   "service_unavailable",
			Message: "Cache ping failed",
		})
		return
	}

	c.JSON(http.StatusOK, model.HealthResponse{
		Status:    "healthy",
		Service:   "booking-service",
		Timestamp: time.Now(),
	})
}
