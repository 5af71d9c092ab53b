package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunvm123/carrental/model"
)

type outbox struct {
	sent []*model.EmailTemplate
}

func (o *outbox) Send(ctx context.Context, email *model.EmailTemplate) error {
	o.sent = append(o.sent, email)
	return nil
}

func notificationMessage(t *testing.T, req *model.NotificationRequest) kafka.Message {
	t.Helper()
	value, err := json.Marshal(req)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func cancelledBooking() *model.Booking {
	reason := "plans changed"
	refund := 9396.0
	return &model.Booking{
		ID:                 "b-7",
		CarID:              "car-1",
		UserID:             "user-1",
		UserEmail:          "jane@example.com",
		PickupDate:         time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		DropoffDate:        time.Date(2030, 2, 2, 0, 0, 0, 0, time.UTC),
		Status:             model.StatusCancelled,
		PaymentStatus:      model.PaymentRefunded,
		TotalAmount:        10440,
		Currency:           "KES",
		CancellationReason: &reason,
		RefundAmount:       &refund,
	}
}

func TestNotificationProcessorSendsCancellationEmail(t *testing.T) {
	box := &outbox{}
	p := NewNotificationProcessor(newFakeReader(), box, quietLogger())

	req := cancelledBooking().ToNotificationRequest(time.Now())
	require.NoError(t, p.HandleMessage(context.Background(), notificationMessage(t, req)))

	require.Len(t, box.sent, 1)
	assert.Equal(t, "jane@example.com", box.sent[0].To)
	assert.Contains(t, box.sent[0].Subject, "Booking cancelled")
	assert.Contains(t, box.sent[0].Body, "Reason: plans changed")
	assert.Contains(t, box.sent[0].Body, "Refund: KES 9396.00")
}

func TestNotificationProcessorSkipsUnknownType(t *testing.T) {
	box := &outbox{}
	p := NewNotificationProcessor(newFakeReader(), box, quietLogger())

	req := &model.NotificationRequest{Type: "booking_teleported", RecipientEmail: "jane@example.com"}
	require.NoError(t, p.HandleMessage(context.Background(), notificationMessage(t, req)))
	assert.Empty(t, box.sent)
}

func TestNotificationProcessorStartCommits(t *testing.T) {
	box := &outbox{}
	req := cancelledBooking().ToNotificationRequest(time.Now())
	reader := newFakeReader(notificationMessage(t, req))
	p := NewNotificationProcessor(reader, box, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Start(ctx) }()

	require.Eventually(t, func() bool { return p.Processed() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, reader.commits())
}
