package main

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/arunvm123/carrental/booking"
	"github.com/arunvm123/carrental/model"
	"github.com/arunvm123/carrental/service"
)

const webhookSecretHeader = "X-Webhook-Secret"

type PaymentHandler struct {
	publisher service.PaymentEventPublisher
	secret    string
	log       logrus.FieldLogger
}

func NewPaymentHandler(publisher service.PaymentEventPublisher, secret string, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{publisher: publisher, secret: secret, log: log}
}

// Webhook accepts payment gateway callbacks and hands them to the reconciler
func (h *PaymentHandler) Webhook(c *gin.Context) {
	given := c.GetHeader(webhookSecretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) != 1 {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{
			Error:   "invalid_webhook_secret",
			Message: "Webhook secret is missing or wrong",
		})
		return
	}

	var req model.PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	event := req.ToPaymentEvent(time.Now().UTC())
	if err := h.publisher.PublishPaymentEvent(c.Request.Context(), event); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"event_id":   event.EventID,
			"booking_id": event.BookingID,
		}).Error("failed to accept payment event")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":   "accepted",
		"event_id": event.EventID,
	})
}

// inlinePublisher applies payment events synchronously when Kafka is off.
type inlinePublisher struct {
	reconciler *booking.Reconciler
}

func (p inlinePublisher) PublishPaymentEvent(ctx context.Context, event model.PaymentEvent) error {
	_, _, err := p.reconciler.OnPaymentUpdate(ctx, event)
	return err
}
