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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"civicpulse.app/sla/common/id"
	"civicpulse.app/sla/common/logger"
	"civicpulse.app/sla/common/otel"
	"civicpulse.app/sla/core/config"
	"civicpulse.app/sla/internal/http/middleware"
	httprouter "civicpulse.app/sla/internal/http/router"
	"civicpulse.app/sla/internal/service"
	"civicpulse.app/sla/internal/wire"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "sla server starting",
		"env", cfg.Env,
		"service", cfg.OTel.ServiceName,
		"db_driver", cfg.DB.Driver,
		"notify_mode", cfg.Notify.Mode,
		"monitor_in_process", cfg.Monitor.InProcess)

	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
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
		slog.ErrorContext(ctx, "failed to load sla policy", "error", err, "file", cfg.Policy.File)
		os.Exit(1)
	}
	if missing := table.MissingEntries(); len(missing) > 0 {
		slog.WarnContext(ctx, "sla policy has gaps; fallback target applies", "missing", missing)
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

	services := service.NewServices(stores, table, mon)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	monitorDone := make(chan struct{})
	if cfg.Monitor.InProcess {
		go func() {
			defer close(monitorDone)
			mon.Run(ctx)
		}()
	} else {
		close(monitorDone)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if cfg.Monitor.InProcess {
		go mon.Stop()
	}
	select {
	case <-monitorDone:
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "monitor did not stop before shutdown timeout")
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.TraceHeader(cfg.Pipeline.TraceHeaderName))
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services)

	return router
}

const banner = `
  ____  _        _        ____  _____ ______     _______ ____
 / ___|| |      / \      / ___|| ____|  _ \ \   / / ____|  _ \
 \___ \| |     / _ \     \___ \|  _| | |_) \ \ / /|  _| | |_) |
  ___) | |___ / ___ \     ___) | |___|  _ < \ V / | |___|  _ <
 |____/|_____/_/   \_\   |____/|_____|_| \_\ \_/  |_____|_| \_\
`
