// Package wire builds the shared dependency graph for the server, monitor,
// worker and CLI binaries from a loaded config.
package wire

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"civicpulse.app/sla/core/config"
	"civicpulse.app/sla/core/db"
	"civicpulse.app/sla/internal/monitor"
	"civicpulse.app/sla/internal/notify"
	"civicpulse.app/sla/internal/policy"
	"civicpulse.app/sla/internal/queue"
	"civicpulse.app/sla/internal/store"
)

// Stores opens the configured issue database. The returned func closes it.
func Stores(ctx context.Context, cfg config.Config) (*store.Stores, func(), error) {
	switch cfg.DB.Driver {
	case db.DriverSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, nil, err
		}
		slog.InfoContext(ctx, "sqlite opened", "dsn", cfg.DB.DSN)
		return store.NewSQLiteStores(conn), func() { _ = conn.Close() }, nil
	default:
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, nil, err
		}
		slog.InfoContext(ctx, "database connected")
		return store.NewStores(database.Queries()), database.Close, nil
	}
}

// Redis connects to the pipeline Redis and pings it.
func Redis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)
	return client, nil
}

// Policy loads POLICY_FILE, or the embedded default when unset.
func Policy(cfg config.Config) (*policy.Table, error) {
	if cfg.Policy.File == "" {
		return policy.Default()
	}
	return policy.Load(cfg.Policy.File)
}

// Dispatcher picks the notification transport for NOTIFY_MODE. redisClient
// may be nil unless the mode is queue.
func Dispatcher(cfg config.Config, redisClient *redis.Client) (monitor.Dispatcher, func(), error) {
	switch cfg.Notify.Mode {
	case config.NotifyModeQueue:
		if redisClient == nil {
			return nil, nil, fmt.Errorf("queue notify mode needs redis")
		}
		producer := queue.NewRedisProducer(redisClient, cfg.Pipeline.RedisStream, nil)
		return notify.NewQueueDispatcher(producer), func() { _ = producer.Close() }, nil
	case config.NotifyModeSlack:
		return notify.NewSlackDispatcher(cfg.Notify.SlackWebhookURL, cfg.Notify.SlackChannel, nil), func() {}, nil
	default:
		return notify.LogDispatcher{}, func() {}, nil
	}
}

// Monitor assembles the escalation monitor with its cooldown backend and
// operator alert sinks.
func Monitor(
	cfg config.Config,
	issues store.IssueStore,
	table *policy.Table,
	dispatcher monitor.Dispatcher,
	redisClient *redis.Client,
) (*monitor.Monitor, error) {
	var cooldowns monitor.CooldownStore
	switch cfg.Monitor.CooldownBackend {
	case config.CooldownBackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis cooldown backend needs redis")
		}
		cooldowns = monitor.NewRedisCooldowns(redisClient, cfg.Pipeline.CooldownPrefix)
	default:
		cooldowns = monitor.NewMemoryCooldowns()
	}

	sink := monitor.MultiSink{monitor.LogSink{}}
	if cfg.Notify.OpsEnabled() {
		sink = append(sink, notify.NewSlackOpsSink(cfg.Notify.OpsWebhookURL, nil))
	}

	mcfg := monitor.DefaultConfig()
	mcfg.Interval = cfg.Monitor.Interval
	mcfg.OperationTimeout = cfg.Monitor.OperationTimeout
	mcfg.Concurrency = cfg.Monitor.Concurrency
	mcfg.StoreAlertAfter = cfg.Monitor.StoreAlertAfter
	mcfg.WriteRetries = cfg.Monitor.WriteRetries

	return monitor.New(issues, table, dispatcher, mcfg,
		monitor.WithCooldownStore(cooldowns),
		monitor.WithErrorSink(sink),
	), nil
}
