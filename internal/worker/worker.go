// Package worker drains the notification stream and delivers each
// notification, requeueing failures and dead-lettering after MaxAttempts.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"civicpulse.app/sla/common/logger"
	"civicpulse.app/sla/internal/queue"
)

type Config struct {
	MaxAttempts     int
	DeliveryTimeout time.Duration
	ErrorBackoff    time.Duration
}

type Worker struct {
	consumer  Consumer
	deliverer Deliverer
	cfg       Config

	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, deliverer Deliverer, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}
	return &Worker{
		consumer:  consumer,
		deliverer: deliverer,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "sla.worker"})
	slog.InfoContext(ctx, "worker started", "max_attempts", w.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				select {
				case <-time.After(w.cfg.ErrorBackoff):
				case <-w.stopCh:
				case <-ctx.Done():
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"issue_id", msg.Notification.IssueID)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"issue_id", msg.Notification.IssueID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage delivers one notification and acknowledges it. A delivery
// error leaves the message unacknowledged for the caller to requeue.
// Exported so it can be reused by the reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	n := msg.Notification
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		IssueID:   logger.Ptr(n.IssueID),
		AlertKind: logger.Ptr(string(n.Kind)),
		MessageID: logger.Ptr(msg.ID),
	})

	span := logger.ResumeSpan(ctx, msg.TraceID, "worker.deliver_notification",
		attribute.String("notification.id", n.ID),
		attribute.String("notification.kind", string(n.Kind)),
		attribute.Int("delivery.attempt", msg.Attempt),
	)
	defer span.End()
	ctx = span.Context()

	slog.InfoContext(ctx, "delivering notification",
		"notification_id", n.ID,
		"recipient", n.Recipient,
		"attempt", msg.Attempt)

	deliverCtx, cancel := context.WithTimeout(ctx, w.cfg.DeliveryTimeout)
	defer cancel()

	start := time.Now()
	if err := w.deliverer.Dispatch(deliverCtx, n); err != nil {
		span.Fail(err)
		return fmt.Errorf("delivering notification %s: %w", n.ID, err)
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Redelivery after a lost ack sends a duplicate, which beats dropping it.
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}

	slog.InfoContext(ctx, "notification delivered",
		"notification_id", n.ID,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"issue_id", msg.Notification.IssueID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"issue_id", msg.Notification.IssueID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}

// HandleFailure is the reclaimer's path into the requeue/DLQ policy.
func (w *Worker) HandleFailure(ctx context.Context, msg queue.Message, err error) {
	w.handleFailedMessage(ctx, msg, err)
}
