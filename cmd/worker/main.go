package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	analytics "gopkg.in/segmentio/analytics-go.v3"

	"github.com/redis/go-redis/v9"

	"github.com/grindery-io/wallet-api/common/id"
	"github.com/grindery-io/wallet-api/common/logger"
	"github.com/grindery-io/wallet-api/common/otel"
	"github.com/grindery-io/wallet-api/core/config"
	"github.com/grindery-io/wallet-api/core/db"
	"github.com/grindery-io/wallet-api/core/docdb"
	"github.com/grindery-io/wallet-api/internal/gateway"
	"github.com/grindery-io/wallet-api/internal/notify"
	"github.com/grindery-io/wallet-api/internal/queue"
	"github.com/grindery-io/wallet-api/internal/service"
	"github.com/grindery-io/wallet-api/internal/store"
	"github.com/grindery-io/wallet-api/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "wallet worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	// Different node id than the server so snowflake ids never collide.
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	if err := store.EnsureEventLogSchema(ctx, database.Pool()); err != nil {
		slog.ErrorContext(ctx, "failed to ensure event log schema", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "database connected")

	docs, err := docdb.New(ctx, cfg.DocDB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create docdb client", "error", err)
		os.Exit(1)
	}
	if err := docs.EnsureDatabase(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to ensure docdb database", "error", err)
		os.Exit(1)
	}
	if err := docs.EnsureCollections(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to ensure docdb collections", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "docdb connected", "database", cfg.DocDB.Database)

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	gw, err := gateway.New(gateway.Config{
		BaseURL:        cfg.PatchWallet.BaseURL,
		ClientID:       cfg.PatchWallet.ClientID,
		ClientSecret:   cfg.PatchWallet.ClientSecret,
		RequestTimeout: cfg.PatchWallet.RequestTimeout,
	}, slog.Default())
	if err != nil {
		slog.ErrorContext(ctx, "failed to create wallet gateway client", "error", err)
		os.Exit(1)
	}

	var segment analytics.Client
	if cfg.Segment.Enabled() {
		segment, err = analytics.NewWithConfig(cfg.Segment.WriteKey, analytics.Config{})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create segment client", "error", err)
			os.Exit(1)
		}
		defer segment.Close()
	}

	notifier := notify.New(segment, notify.NewFlowXOClient(), cfg.FlowXO, slog.Default())

	stores := store.NewStores(docs.DB(), database.Pool())
	services := service.NewServices(stores, gw, notifier, cfg, slog.Default())

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    10,
		Block:        5 * time.Second,
		MaxAttempts:  cfg.Pipeline.MaxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	w := worker.New(consumer, stores.EventLogs(), worker.NewProcessor(services), worker.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  time.Minute,
		BatchSize: 10,
	}, consumer, func(ctx context.Context, msg queue.Message) error {
		w.ProcessMessage(ctx, msg)
		return nil
	})

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reclaimer.Stop()
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}
