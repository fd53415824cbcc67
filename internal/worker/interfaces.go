package worker

import (
	"context"

	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// Deliverer performs the final delivery of a notification (Slack).
type Deliverer interface {
	Dispatch(ctx context.Context, n model.Notification) error
}
