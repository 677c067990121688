package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/storewise/recsync/internal/api/handler"
	"github.com/storewise/recsync/internal/api/router"
	"github.com/storewise/recsync/internal/capture"
	"github.com/storewise/recsync/internal/catalog"
	"github.com/storewise/recsync/internal/config"
	"github.com/storewise/recsync/internal/items"
	"github.com/storewise/recsync/internal/queue"
	"github.com/storewise/recsync/internal/remote"
	"github.com/storewise/recsync/internal/resync"
	"github.com/storewise/recsync/internal/worker"
	"github.com/storewise/recsync/shared/logger"
	"github.com/storewise/recsync/shared/postgresql"
	"github.com/storewise/recsync/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("RECSYNC_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	appLogger.Info("Starting recsync",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	db, err := postgresql.Connect(postgresql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	rabbitClient, err := rabbitmq.NewClient(rabbitmq.Config{
		Host:          cfg.RabbitMQ.Host,
		Port:          cfg.RabbitMQ.Port,
		User:          cfg.RabbitMQ.User,
		Password:      cfg.RabbitMQ.Password,
		VHost:         cfg.RabbitMQ.VHost,
		ExchangeName:  cfg.RabbitMQ.ExchangeName,
		ExchangeType:  cfg.RabbitMQ.ExchangeType,
		QueueName:     cfg.RabbitMQ.QueueName,
		RoutingKey:    cfg.RabbitMQ.RoutingKey,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		RetryAttempts: cfg.RabbitMQ.RetryAttempts,
		RetryInterval: cfg.RabbitMQ.RetryInterval,
		Heartbeat:     cfg.RabbitMQ.Heartbeat,
	}, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	queueStore := queue.NewPostgresStore(db, appLogger)
	catalogStore := catalog.NewPostgresStore(db)
	builder := items.NewBuilder(catalogStore, items.BuilderConfig{
		Currency:            cfg.Items.Currency,
		PlaceholderImageURL: cfg.Items.PlaceholderImageURL,
	})

	remoteClient := remote.NewClient(remote.Config{
		BaseURL:      cfg.Remote.BaseURL,
		APIKey:       cfg.Remote.APIKey,
		APISecret:    cfg.Remote.APISecret,
		Timeout:      cfg.Remote.Timeout,
		MaxAttempts:  cfg.Remote.MaxAttempts,
		RetryWaitMin: cfg.Remote.RetryWaitMin,
		RetryWaitMax: cfg.Remote.RetryWaitMax,
	}, appLogger)

	cap := capture.New(queueStore, catalogStore, builder, appLogger)
	consumer := capture.NewConsumer(cap, rabbitClient, appLogger)

	syncWorker := worker.New(queueStore, catalogStore, builder, remoteClient, appLogger, worker.Config{
		ReclaimAfter: cfg.Worker.ReclaimAfter,
		ChunkSize:    cfg.Worker.ChunkSize,
	})
	engine := resync.New(queueStore, catalogStore, builder, remoteClient, appLogger, resync.Config{
		ChunkSize: cfg.Resync.ChunkSize,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed the bootstrap on first activation. A failure here is not
	// fatal; the periodic passes and the operator endpoint can retry.
	if err := engine.Bootstrap(ctx, false); err != nil {
		appLogger.Error("Bootstrap failed", slog.Any("error", err))
	}

	// Change event consumer
	go func() {
		if err := consumer.Start(ctx); err != nil {
			appLogger.Error("Consumer stopped", slog.Any("error", err))
			cancel()
		}
	}()

	// Periodic ticks
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.Worker.TickInterval), func() {
		if err := syncWorker.RunTick(ctx); err != nil {
			appLogger.Error("Worker tick failed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule worker tick: %w", err)
	}
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.Resync.Interval), func() {
		if err := engine.RunPush(ctx); err != nil {
			appLogger.Error("Reconciliation pass failed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule reconciliation: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP server
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r := router.SetupRouter(&handler.Dependencies{
		Logger: appLogger,
		Queue:  queueStore,
		Worker: syncWorker,
		Resync: engine,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start", slog.Any("error", err))
			cancel()
		}
	}()

	appLogger.Info("recsync is running",
		slog.String("address", addr),
		slog.Duration("tick_interval", cfg.Worker.TickInterval),
		slog.Duration("resync_interval", cfg.Resync.Interval),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", slog.Any("error", err))
		return err
	}

	appLogger.Info("Shutdown complete")
	return nil
}
