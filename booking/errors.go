package booking

import (
	"errors"
	"fmt"

	"github.com/arunvm123/carrental/model"
	"github.com/arunvm123/carrental/repository"
)

// Code classifies booking failures so callers can render them inline.
type Code string

const (
	CodeAuthRequired         Code = "auth_required"
	CodeAdminRequired        Code = "admin_required"
	CodeInvalidDateRange     Code = "invalid_date_range"
	CodeDateConflict         Code = "date_conflict"
	CodeIllegalTransition    Code = "illegal_transition"
	CodeNotFound             Code = "not_found"
	CodeInvalidRefund        Code = "invalid_refund"
	CodeInvalidPaymentStatus Code = "invalid_payment_status"
	CodeStore                Code = "store_error"
)

// Error is the single error type returned across the package boundary.
// Conflicts is set for CodeDateConflict.
type Error struct {
	Code      Code
	Message   string
	Conflicts []model.Booking
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code so errors.Is(err, ErrDateConflict) works for any
// conflict message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrAuthRequired         = &Error{Code: CodeAuthRequired, Message: "authentication required"}
	ErrAdminRequired        = &Error{Code: CodeAdminRequired, Message: "admin role required"}
	ErrInvalidDateRange     = &Error{Code: CodeInvalidDateRange, Message: "invalid date range"}
	ErrDateConflict         = &Error{Code: CodeDateConflict, Message: "dates already booked"}
	ErrIllegalTransition    = &Error{Code: CodeIllegalTransition, Message: "illegal status transition"}
	ErrNotFound             = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidRefund        = &Error{Code: CodeInvalidRefund, Message: "invalid refund amount"}
	ErrInvalidPaymentStatus = &Error{Code: CodeInvalidPaymentStatus, Message: "invalid payment status"}
	ErrStore                = &Error{Code: CodeStore, Message: "document store failure"}
)

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the Code carried by err, or "" for foreign errors.
func CodeOf(err error) Code {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func conflictError(res ConflictResult) *Error {
	first := res.Conflicts[0]
	return &Error{
		Code: CodeDateConflict,
		Message: fmt.Sprintf("car is already booked from %s to %s",
			first.PickupDate.Format(model.DateLayout), first.DropoffDate.Format(model.DateLayout)),
		Conflicts: res.Conflicts,
	}
}

// fromStore maps repository errors onto the taxonomy. Errors that already
// belong to it pass through untouched.
func fromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	if errors.Is(err, repository.ErrNotFound) {
		return newError(CodeNotFound, "%s not found", what)
	}
	return &Error{Code: CodeStore, Message: ErrStore.Message, Err: err}
}
