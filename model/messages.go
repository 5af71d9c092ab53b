package model

import "time"

// ============================================================================
// PAYMENT GATEWAY MESSAGES
// ============================================================================

// PaymentWebhookRequest is the callback body posted by the payment gateway.
type PaymentWebhookRequest struct {
	EventID           string  `json:"event_id" binding:"required"`
	BookingID         string  `json:"booking_id" binding:"required"`
	Status            string  `json:"status" binding:"required,oneof=paid failed"`
	ResultDescription string  `json:"result_description"`
	Amount            float64 `json:"amount"`
	Reference         string  `json:"reference"`
}

// ToPaymentEvent normalises the callback into a PaymentEvent.
func (r *PaymentWebhookRequest) ToPaymentEvent(receivedAt time.Time) PaymentEvent {
	return PaymentEvent{
		EventID:           r.EventID,
		BookingID:         r.BookingID,
		Status:            PaymentStatus(r.Status),
		ResultDescription: r.ResultDescription,
		Amount:            r.Amount,
		Reference:         r.Reference,
		OccurredAt:        receivedAt,
	}
}

// PaymentEvent is the normalised gateway outcome carried on the payment topic.
// Status is either paid or failed.
type PaymentEvent struct {
	EventID           string        `json:"event_id"`
	BookingID         string        `json:"booking_id"`
	Status            PaymentStatus `json:"status"`
	ResultDescription string        `json:"result_description,omitempty"`
	Amount            float64       `json:"amount,omitempty"`
	Reference         string        `json:"reference,omitempty"`
	OccurredAt        time.Time     `json:"occurred_at"`
}

// ============================================================================
// KAFKA MESSAGE STRUCTURES
// ============================================================================

const (
	NotificationBookingCreated   = "booking_created"
	NotificationBookingConfirmed = "booking_confirmed"
	NotificationBookingActive    = "booking_active"
	NotificationBookingCompleted = "booking_completed"
	NotificationBookingCancelled = "booking_cancelled"
	NotificationPaymentFailed    = "booking_payment_failed"
)

// NotificationTypeFor maps a booking status to the notification it triggers.
func NotificationTypeFor(status BookingStatus) string {
	switch status {
	case StatusConfirmed:
		return NotificationBookingConfirmed
	case StatusActive:
		return NotificationBookingActive
	case StatusCompleted:
		return NotificationBookingCompleted
	case StatusCancelled:
		return NotificationBookingCancelled
	case StatusPaymentFailed:
		return NotificationPaymentFailed
	}
	return NotificationBookingCreated
}

// NotificationRequest represents the message sent to notification topic
type NotificationRequest struct {
	Type           string                  `json:"type"`
	RecipientEmail string                  `json:"recipient_email"`
	BookingData    NotificationBookingData `json:"booking_data"`
	Timestamp      time.Time               `json:"timestamp"`
}

// NotificationBookingData represents booking data for notifications
type NotificationBookingData struct {
	BookingID          string        `json:"booking_id"`
	CarID              string        `json:"car_id"`
	UserID             string        `json:"user_id"`
	PickupDate         string        `json:"pickup_date"`
	DropoffDate        string        `json:"dropoff_date"`
	Status             BookingStatus `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	TotalAmount        float64       `json:"total_amount"`
	Currency           string        `json:"currency"`
	RefundAmount       float64       `json:"refund_amount,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
}

// ToNotificationRequest builds the notification for the booking's current state.
func (b *Booking) ToNotificationRequest(now time.Time) *NotificationRequest {
	data := NotificationBookingData{
		BookingID:     b.ID,
		CarID:         b.CarID,
		UserID:        b.UserID,
		PickupDate:    b.PickupDate.Format(DateLayout),
		DropoffDate:   b.DropoffDate.Format(DateLayout),
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		TotalAmount:   b.TotalAmount,
		Currency:      b.Currency,
	}
	if b.RefundAmount != nil {
		data.RefundAmount = *b.RefundAmount
	}
	if b.CancellationReason != nil {
		data.CancellationReason = *b.CancellationReason
	}
	return &NotificationRequest{
		Type:           NotificationTypeFor(b.Status),
		RecipientEmail: b.UserEmail,
		BookingData:    data,
		Timestamp:      now,
	}
}
