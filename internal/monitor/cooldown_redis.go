package monitor

import (
	"context"
	"fmt"
	"time"

	"civicpulse.app/sla/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisCooldowns shares cooldown state between monitor instances.
// SET NX with a TTL equal to the window makes Acquire atomic across
// processes; expiry does the housekeeping that Retain does in memory.
type RedisCooldowns struct {
	client redis.Cmdable
	prefix string
}

func NewRedisCooldowns(client redis.Cmdable, prefix string) *RedisCooldowns {
	if prefix == "" {
		prefix = "sla:cooldown"
	}
	return &RedisCooldowns{client: client, prefix: prefix}
}

func (c *RedisCooldowns) key(issueID string, kind model.NotificationKind) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, issueID, kind)
}

func (c *RedisCooldowns) Acquire(ctx context.Context, issueID string, kind model.NotificationKind, now time.Time, window time.Duration) (bool, error) {
	if kind == model.NotificationEscalation {
		return true, nil
	}
	ok, err := c.client.SetNX(ctx, c.key(issueID, kind), now.UTC().Format(time.RFC3339Nano), window).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring cooldown: %w", err)
	}
	return ok, nil
}

func (c *RedisCooldowns) Release(ctx context.Context, issueID string, kind model.NotificationKind) error {
	if err := c.client.Del(ctx, c.key(issueID, kind)).Err(); err != nil {
		return fmt.Errorf("releasing cooldown: %w", err)
	}
	return nil
}

func (c *RedisCooldowns) Retain(context.Context, map[string]struct{}) error {
	return nil
}
