package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/arunvm123/carrental/booking"
	"github.com/arunvm123/carrental/cache"
	"github.com/arunvm123/carrental/model"
)

// MessageReader is the part of *kafka.Reader the processor uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Reconciler applies one payment event.
type Reconciler interface {
	OnPaymentUpdate(ctx context.Context, event model.PaymentEvent) (*model.Booking, booking.Outcome, error)
}

// PaymentProcessor consumes the payment topic with a fixed pool of workers.
// Messages are sharded by booking id, so events for one booking are applied
// in the order they were published.
type PaymentProcessor struct {
	reader     MessageReader
	reconciler Reconciler
	cache      cache.CacheRepository
	log        logrus.FieldLogger

	eventTTL        time.Duration
	metricsInterval time.Duration
	retryBackoff    time.Duration
	maxRetryBackoff time.Duration
	shards          []chan kafka.Message
	offsets         *offsetTracker
	commitMu        sync.Mutex

	// Metrics
	processedCount int64
	duplicateCount int64
	failedCount    int64
	retryCount     int64
	activeWorkers  int64
}

type Config struct {
	Workers         int
	EventTTL        time.Duration
	MetricsInterval time.Duration
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

func NewPaymentProcessor(reader MessageReader, reconciler Reconciler, c cache.CacheRepository, log logrus.FieldLogger, cfg Config) *PaymentProcessor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MetricsInterval <= 0 {
		cfg.MetricsInterval = 30 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 250 * time.Millisecond
	}
	if cfg.MaxRetryBackoff < cfg.RetryBackoff {
		cfg.MaxRetryBackoff = 30 * time.Second
	}

	p := &PaymentProcessor{
		reader:          reader,
		reconciler:      reconciler,
		cache:           c,
		log:             log,
		eventTTL:        cfg.EventTTL,
		metricsInterval: cfg.MetricsInterval,
		retryBackoff:    cfg.RetryBackoff,
		maxRetryBackoff: cfg.MaxRetryBackoff,
		shards:          make([]chan kafka.Message, cfg.Workers),
		offsets:         newOffsetTracker(),
	}
	for i := range p.shards {
		p.shards[i] = make(chan kafka.Message, 16)
	}
	return p
}

// Start fetches messages until ctx is cancelled, then drains the workers.
func (p *PaymentProcessor) Start(ctx context.Context) error {
	p.log.WithField("workers", len(p.shards)).Info("starting payment processor")

	var wg sync.WaitGroup
	for i, jobs := range p.shards {
		wg.Add(1)
		go func(id int, jobs <-chan kafka.Message) {
			defer wg.Done()
			p.runWorker(ctx, id, jobs)
		}(i, jobs)
	}

	go p.reportMetrics(ctx)

	err := p.dispatch(ctx)

	for _, jobs := range p.shards {
		close(jobs)
	}
	wg.Wait()
	p.log.Info("payment processor stopped")
	return err
}

func (p *PaymentProcessor) dispatch(ctx context.Context) error {
	for {
		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.WithError(err).Error("error fetching payment event")
			continue
		}
		p.offsets.track(msg)

		select {
		case p.shards[p.shardFor(msg.Key)] <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *PaymentProcessor) shardFor(key []byte) int {
	h := fnv.New32a()
	h.Write(key)
	return int(h.Sum32() % uint32(len(p.shards)))
}

func (p *PaymentProcessor) runWorker(ctx context.Context, id int, jobs <-chan kafka.Message) {
	for msg := range jobs {
		atomic.AddInt64(&p.activeWorkers, 1)

		if err := p.handleWithRetry(ctx, msg); err != nil {
			atomic.AddInt64(&p.failedCount, 1)
			p.log.WithError(err).WithFields(logrus.Fields{
				"worker":    id,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Error("payment event left uncommitted")
		}

		atomic.AddInt64(&p.processedCount, 1)
		atomic.AddInt64(&p.activeWorkers, -1)
	}
}

// handleWithRetry applies msg until it succeeds or ctx ends. The shard does
// not move on meanwhile, so later events for the same booking wait for it.
func (p *PaymentProcessor) handleWithRetry(ctx context.Context, msg kafka.Message) error {
	for attempt := 0; ; attempt++ {
		// Finish an in-flight attempt even during shutdown.
		err := p.HandleMessage(context.WithoutCancel(ctx), msg)
		if err == nil {
			return nil
		}

		delay := computeBackoff(p.retryBackoff, p.maxRetryBackoff, attempt)
		p.log.WithError(err).WithFields(logrus.Fields{
			"offset":  msg.Offset,
			"attempt": attempt + 1,
			"delay":   delay.String(),
		}).Warn("retrying payment event")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
			atomic.AddInt64(&p.retryCount, 1)
		}
	}
}

// computeBackoff doubles initial per attempt, capped at limit.
func computeBackoff(initial, limit time.Duration, attempt int) time.Duration {
	if attempt > 30 {
		return limit
	}
	backoff := initial * (1 << uint(attempt))
	if backoff > limit || backoff <= 0 {
		return limit
	}
	return backoff
}

// HandleMessage applies one payment event and commits it. Errors the event
// can never recover from (bad payload, unknown booking) are logged and
// committed; store failures release the dedupe claim and leave the message
// uncommitted for the caller to retry.
func (p *PaymentProcessor) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event model.PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		p.log.WithError(err).WithField("offset", msg.Offset).Warn("dropping undecodable payment event")
		return p.commit(ctx, msg)
	}
	entry := p.log.WithFields(logrus.Fields{
		"event_id":   event.EventID,
		"booking_id": event.BookingID,
		"status":     event.Status,
	})

	if event.EventID != "" {
		claimed, err := p.cache.ClaimPaymentEvent(ctx, event.EventID, p.eventTTL)
		if err != nil {
			// The reconciler is idempotent on its own; the claim only saves work.
			entry.WithError(err).Warn("could not claim payment event, applying anyway")
			claimed = true
		}
		if !claimed {
			atomic.AddInt64(&p.duplicateCount, 1)
			entry.Debug("payment event already claimed")
			return p.commit(ctx, msg)
		}
	}

	_, outcome, err := p.reconciler.OnPaymentUpdate(ctx, event)
	if err != nil {
		switch booking.CodeOf(err) {
		case booking.CodeNotFound, booking.CodeInvalidPaymentStatus, booking.CodeIllegalTransition, booking.CodeInvalidRefund:
			entry.WithError(err).Warn("payment event rejected")
			return p.commit(ctx, msg)
		}
		if event.EventID != "" {
			if rerr := p.cache.ReleasePaymentEvent(ctx, event.EventID); rerr != nil {
				entry.WithError(rerr).Warn("failed to release payment event claim")
			}
		}
		return fmt.Errorf("apply payment event %s: %w", event.EventID, err)
	}

	if outcome == booking.OutcomeDuplicate {
		atomic.AddInt64(&p.duplicateCount, 1)
	}
	entry.WithField("outcome", outcome).Debug("payment event processed")
	return p.commit(ctx, msg)
}

// commit advances the partition offset as far as the done messages allow.
// Commits are serialised so a partition's offset never moves backwards.
func (p *PaymentProcessor) commit(ctx context.Context, msg kafka.Message) error {
	p.commitMu.Lock()
	defer p.commitMu.Unlock()

	upTo, ok := p.offsets.complete(msg)
	if !ok {
		return nil
	}
	if err := p.reader.CommitMessages(ctx, upTo); err != nil {
		return fmt.Errorf("commit offset %d: %w", upTo.Offset, err)
	}
	return nil
}

// Metrics is a point-in-time copy of the processor counters.
type Metrics struct {
	Processed  int64
	Duplicates int64
	Failed     int64
	Retries    int64
	Active     int64
}

func (p *PaymentProcessor) Metrics() Metrics {
	return Metrics{
		Processed:  atomic.LoadInt64(&p.processedCount),
		Duplicates: atomic.LoadInt64(&p.duplicateCount),
		Failed:     atomic.LoadInt64(&p.failedCount),
		Retries:    atomic.LoadInt64(&p.retryCount),
		Active:     atomic.LoadInt64(&p.activeWorkers),
	}
}

// reportMetrics logs performance metrics
func (p *PaymentProcessor) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(p.metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := p.Metrics()
			p.log.WithFields(logrus.Fields{
				"processed":  m.Processed,
				"duplicates": m.Duplicates,
				"failed":     m.Failed,
				"retries":    m.Retries,
				"active":     m.Active,
			}).Info("payment processor metrics")
		}
	}
}

// IsShutdown reports whether err only signals a requested stop.
func IsShutdown(err error) bool {
	return errors.Is(err, context.Canceled)
}
