package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arunvm123/carrental/booking"
	"github.com/arunvm123/carrental/model"
)

type AdminHandler struct {
	manager *booking.Manager
}

func NewAdminHandler(manager *booking.Manager) *AdminHandler {
	return &AdminHandler{manager: manager}
}

// UpdateBookingStatus moves a booking through the state machine
func (h *AdminHandler) UpdateBookingStatus(c *gin.Context) {
	var req model.UpdateBookingStatusAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	status, err := model.ParseBookingStatus(req.Status)
	if err != nil {
		validationError(c, err)
		return
	}

	b, err := h.manager.AdminUpdateStatus(c.Request.Context(), actorFrom(c), c.Param("bookingId"), status, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, withLinks(b))
}

// ExpireHolds cancels pending bookings whose reservation hold lapsed
func (h *AdminHandler) ExpireHolds(c *gin.Context) {
	n, err := h.manager.ExpireHolds(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": n})
}

// Stats returns fleet and booking totals
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.manager.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
