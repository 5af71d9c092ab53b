package model

import "fmt"

// ============================================================================
// EMAIL TEMPLATES
// ============================================================================

// EmailTemplate represents an email to be sent (logged by the notifier)
type EmailTemplate struct {
	To      string
	Subject string
	Body    string
}

// GenerateEmail renders the email for the notification type. Unknown types
// yield nil.
func (nr *NotificationRequest) GenerateEmail() *EmailTemplate {
	switch nr.Type {
	case NotificationBookingCreated:
		return nr.render("Booking received",
			"We are holding your car while the payment completes.\n")
	case NotificationBookingConfirmed:
		return nr.render("Booking confirmed",
			"Your payment was received and your booking is confirmed.\n")
	case NotificationBookingActive:
		return nr.render("Enjoy your trip",
			"Your rental has started.\n")
	case NotificationBookingCompleted:
		return nr.render("Thanks for riding with us",
			"Your rental is complete.\n")
	case NotificationPaymentFailed:
		return nr.render("Payment failed",
			"We could not complete your payment. The dates have been released; please book again.\n")
	case NotificationBookingCancelled:
		extra := "Your booking has been cancelled.\n"
		if nr.BookingData.CancellationReason != "" {
			extra += "Reason: " + nr.BookingData.CancellationReason + "\n"
		}
		if nr.BookingData.RefundAmount > 0 {
			extra += fmt.Sprintf("Refund: %s %.2f (3-5 business days)\n",
				nr.BookingData.Currency, nr.BookingData.RefundAmount)
		}
		return nr.render("Booking cancelled", extra)
	}
	return nil
}

func (nr *NotificationRequest) render(subject, message string) *EmailTemplate {
	d := nr.BookingData
	body := "Hello,\n\n" +
		message + "\n" +
		"Booking ID: " + d.BookingID + "\n" +
		"Car: " + d.CarID + "\n" +
		"Dates: " + d.PickupDate + " to " + d.DropoffDate + "\n" +
		fmt.Sprintf("Amount: %s %.2f\n", d.Currency, d.TotalAmount) +
		"Status: " + string(d.Status) + " (payment " + string(d.PaymentStatus) + ")\n\n" +
		"Car Rental"

	return &EmailTemplate{
		To:      nr.RecipientEmail,
		Subject: subject + " - " + d.BookingID,
		Body:    body,
	}
}
