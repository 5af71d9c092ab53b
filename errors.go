package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arunvm123/carrental/booking"
	"github.com/arunvm123/carrental/model"
)

var statusByCode = map[booking.Code]int{
	booking.CodeAuthRequired:         http.StatusUnauthorized,
	booking.CodeAdminRequired:        http.StatusForbidden,
	booking.CodeInvalidDateRange:     http.StatusBadRequest,
	booking.CodeDateConflict:         http.StatusConflict,
	booking.CodeIllegalTransition:    http.StatusConflict,
	booking.CodeNotFound:             http.StatusNotFound,
	booking.CodeInvalidRefund:        http.StatusBadRequest,
	booking.CodeInvalidPaymentStatus: http.StatusBadRequest,
	booking.CodeStore:                http.StatusServiceUnavailable,
}

// respondError renders a booking error with the status its code maps to.
// Foreign errors become 500s without leaking their text.
func respondError(c *gin.Context, err error) {
	code := booking.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "An unexpected error occurred",
		})
		return
	}

	resp := model.ErrorResponse{Error: string(code), Message: err.Error()}
	var be *booking.Error
	if errors.As(err, &be) && len(be.Conflicts) > 0 {
		conflicts := make([]model.ConflictSummary, len(be.Conflicts))
		for i := range be.Conflicts {
			conflicts[i] = be.Conflicts[i].ToConflictSummary()
		}
		resp.Details = conflicts
	}
	if code == booking.CodeStore {
		_ = c.Error(err)
		resp.Message = booking.ErrStore.Message
	}
	c.JSON(status, resp)
}

func validationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Error:   "validation_failed",
		Message: err.Error(),
	})
}

func invalidDates(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Error:   string(booking.CodeInvalidDateRange),
		Message: err.Error(),
	})
}
