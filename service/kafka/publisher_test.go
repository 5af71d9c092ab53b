package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunvm123/carrental/model"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func testBooking() *model.Booking {
	return &model.Booking{
		ID:            "b-1",
		CarID:         "car-1",
		UserID:        "user-1",
		UserEmail:     "jane@example.com",
		PickupDate:    time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC),
		DropoffDate:   time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC),
		Status:        model.StatusConfirmed,
		PaymentStatus: model.PaymentPaid,
		TotalAmount:   10440,
		Currency:      "KES",
	}
}

func TestNotifierPublishesKeyedByBooking(t *testing.T) {
	w := &recordingWriter{}
	n := NewNotifier(w)

	require.NoError(t, n.Notify(context.Background(), testBooking()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "b-1", string(w.msgs[0].Key))

	var req model.NotificationRequest
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &req))
	assert.Equal(t, model.NotificationBookingConfirmed, req.Type)
	assert.Equal(t, "jane@example.com", req.RecipientEmail)
	assert.Equal(t, "2030-03-01", req.BookingData.PickupDate)
}

func TestNotifierWrapsWriteError(t *testing.T) {
	n := NewNotifier(&recordingWriter{err: errors.New("broker down")})

	err := n.Notify(context.Background(), testBooking())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestPaymentPublisherCarriesEventID(t *testing.T) {
	w := &recordingWriter{}
	p := NewPaymentPublisher(w)

	event := model.PaymentEvent{EventID: "evt-9", BookingID: "b-1", Status: model.PaymentPaid}
	require.NoError(t, p.PublishPaymentEvent(context.Background(), event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "b-1", string(w.msgs[0].Key))
	require.Len(t, w.msgs[0].Headers, 1)
	assert.Equal(t, "evt-9", string(w.msgs[0].Headers[0].Value))

	var got model.PaymentEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, event.Status, got.Status)
}
