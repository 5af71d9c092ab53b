package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/arunvm123/carrental/model"
)

// Mailer delivers a rendered email.
type Mailer interface {
	Send(ctx context.Context, email *model.EmailTemplate) error
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct {
	Log logrus.FieldLogger
}

func (m LogMailer) Send(ctx context.Context, email *model.EmailTemplate) error {
	m.Log.WithFields(logrus.Fields{
		"to":      email.To,
		"subject": email.Subject,
	}).Info("mock email sent\n" + email.Body)
	return nil
}

// NotificationProcessor renders booking notifications into emails.
type NotificationProcessor struct {
	reader MessageReader
	mailer Mailer
	log    logrus.FieldLogger

	messagesProcessed int64
}

func NewNotificationProcessor(reader MessageReader, mailer Mailer, log logrus.FieldLogger) *NotificationProcessor {
	return &NotificationProcessor{reader: reader, mailer: mailer, log: log}
}

// Start consumes notifications until ctx is cancelled.
func (p *NotificationProcessor) Start(ctx context.Context) error {
	for {
		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.WithError(err).Error("error reading notification")
			continue
		}

		if err := p.HandleMessage(ctx, msg); err != nil {
			p.log.WithError(err).Error("error processing notification")
			continue
		}
		if err := p.reader.CommitMessages(ctx, msg); err != nil {
			p.log.WithError(err).Error("error committing notification")
		}
		atomic.AddInt64(&p.messagesProcessed, 1)
	}
}

// HandleMessage sends the email for one notification. Unknown types and
// undecodable payloads are skipped.
func (p *NotificationProcessor) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var req model.NotificationRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		p.log.WithError(err).Warn("skipping undecodable notification")
		return nil
	}

	email := req.GenerateEmail()
	if email == nil {
		p.log.WithField("type", req.Type).Warn("unknown notification type")
		return nil
	}
	if email.To == "" {
		p.log.WithField("booking_id", req.BookingData.BookingID).Debug("notification has no recipient")
		return nil
	}

	if err := p.mailer.Send(ctx, email); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (p *NotificationProcessor) Processed() int64 {
	return atomic.LoadInt64(&p.messagesProcessed)
}
