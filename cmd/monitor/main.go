package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"civicpulse.app/sla/common/id"
	"civicpulse.app/sla/common/logger"
	"civicpulse.app/sla/common/otel"
	"civicpulse.app/sla/core/config"
	"civicpulse.app/sla/internal/wire"
)

// The monitor binary runs the escalation sweep loop on its own. Several
// replicas may run at once when MONITOR_COOLDOWN_BACKEND=redis.
func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeMonitor)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "sla monitor starting",
		"env", cfg.Env,
		"interval", cfg.Monitor.Interval,
		"cooldown_backend", cfg.Monitor.CooldownBackend,
		"notify_mode", cfg.Notify.Mode)

	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	stores, closeStores, err := wire.Stores(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open issue store", "error", err)
		os.Exit(1)
	}
	defer closeStores()

	table, err := wire.Policy(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load sla policy", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient, err = wire.Redis(ctx, cfg)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	dispatcher, closeDispatcher, err := wire.Dispatcher(cfg, redisClient)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build dispatcher", "error", err)
		os.Exit(1)
	}
	defer closeDispatcher()

	mon, err := wire.Monitor(cfg, stores.Issues(), table, dispatcher, redisClient)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build monitor", "error", err)
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.InfoContext(ctx, "metrics server starting", "port", cfg.Port)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "metrics server error", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		mon.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down monitor...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	go mon.Stop()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "metrics server shutdown error", "error", err)
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}

	slog.InfoContext(ctx, "monitor shutdown complete")
}

const banner = `
  ____  _        _        __  __  ___  _   _ ___ _____ ___  ____
 / ___|| |      / \      |  \/  |/ _ \| \ | |_ _|_   _/ _ \|  _ \
 \___ \| |     / _ \     | |\/| | | | |  \| || |  | || | | | |_) |
  ___) | |___ / ___ \    | |  | | |_| | |\  || |  | || |_| |  _ <
 |____/|_____/_/   \_\   |_|  |_|\___/|_| \_|___| |_| \___/|_| \_\
`
