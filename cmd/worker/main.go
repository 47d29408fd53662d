package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/floroz/gavel-listings/internal/adapters/database"
	"github.com/floroz/gavel-listings/internal/adapters/events"
	"github.com/floroz/gavel-listings/internal/config"
	"github.com/floroz/gavel-listings/internal/domain/userstats"
	pkgdb "github.com/floroz/gavel-listings/pkg/database"
	pkgevents "github.com/floroz/gavel-listings/pkg/events"
)

// The worker drains the outbox to RabbitMQ and keeps the bidder stats read
// model up to date.
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load environment variables (local overrides .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg, err := config.Load("worker", os.Args[1:])
	if err != nil {
		logger.Error("Invalid arguments", "error", err)
		os.Exit(2)
	}
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Postgres Connection Pool
	dbConfig, err := pgxpool.ParseConfig(cfg.DB.URL)
	if err != nil {
		logger.Error("Unable to parse database config", "error", err)
		os.Exit(1)
	}
	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pingErr := pool.Ping(ctx); pingErr != nil {
		logger.Error("Unable to ping database", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	// 2. Connect to RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()
	logger.Info("RabbitMQ Connected")

	publisher, err := pkgevents.NewRabbitMQPublisher(amqpConn, cfg.Relay.Exchange)
	if err != nil {
		logger.Error("Failed to create RabbitMQ publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// 3. Initialize Dependencies
	txManager := pkgdb.NewPostgresTransactionManager(pool, cfg.DB.LockTimeout)
	outboxRepo := database.NewPostgresOutboxRepository(pool)
	statsRepo := database.NewUserStatsRepository(pool)
	statsService := userstats.NewService(statsRepo, txManager)

	relay := pkgevents.NewOutboxRelay(outboxRepo, publisher, txManager, cfg.Relay, logger)
	consumer := events.NewBidConsumer(amqpConn, statsService, cfg.Relay.Exchange, logger)

	// 4. Run relay and consumer until shutdown
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting Outbox Relay...")
		return relay.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting bid consumer...")
		return consumer.Run(gctx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}
