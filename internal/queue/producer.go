package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"civicpulse.app/sla/internal/model"
)

type Producer interface {
	Enqueue(ctx context.Context, n model.Notification, traceID string) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, n model.Notification, traceID string) error {
	values, err := messageValues(n, 1, traceID)
	if err != nil {
		return err
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued notification",
		"notification_id", n.ID,
		"issue_id", n.IssueID,
		"kind", n.Kind,
		"recipient", n.Recipient)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
