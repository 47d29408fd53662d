package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/floroz/gavel-listings/internal/adapters/api"
	"github.com/floroz/gavel-listings/internal/adapters/database"
	"github.com/floroz/gavel-listings/internal/adapters/session"
	"github.com/floroz/gavel-listings/internal/config"
	"github.com/floroz/gavel-listings/internal/domain/bids"
	"github.com/floroz/gavel-listings/internal/domain/comments"
	"github.com/floroz/gavel-listings/internal/domain/listings"
	"github.com/floroz/gavel-listings/internal/domain/users"
	"github.com/floroz/gavel-listings/internal/domain/userstats"
	"github.com/floroz/gavel-listings/internal/domain/watchlist"
	"github.com/floroz/gavel-listings/pkg/auth"
	pkgdb "github.com/floroz/gavel-listings/pkg/database"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load environment variables (local overrides .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg, err := config.Load("api", os.Args[1:])
	if err != nil {
		logger.Error("Invalid arguments", "error", err)
		os.Exit(2)
	}
	if err := cfg.ValidateAPI(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Migrate and connect to Postgres
	if cfg.MigrateOnStart {
		if err := pkgdb.Migrate(ctx, cfg.DB.URL, cfg.MigrationsDir); err != nil {
			logger.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("Migrations applied", "dir", cfg.MigrationsDir)
	}

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

	// 2. Connect to Redis (session records)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	logger.Info("Redis Connected")

	// 3. Load session signing keys
	signer, err := auth.LoadSigner(cfg.Auth.PrivateKeyPath, cfg.Auth.PublicKeyPath, cfg.Auth.Issuer)
	if err != nil {
		logger.Error("Failed to load signing keys", "error", err)
		os.Exit(1)
	}
	sessions := session.NewManager(session.NewStore(rdb), signer, cfg.Session.TTL)

	// 4. Initialize Repositories (Infrastructure Layer)
	txManager := pkgdb.NewPostgresTransactionManager(pool, cfg.DB.LockTimeout)
	userRepo := database.NewPostgresUserRepository(pool)
	listingRepo := database.NewPostgresListingRepository(pool)
	categoryRepo := database.NewPostgresCategoryRepository(pool)
	bidRepo := database.NewPostgresBidRepository(pool)
	commentRepo := database.NewPostgresCommentRepository(pool)
	watchlistRepo := database.NewPostgresWatchlistRepository(pool, txManager)
	outboxRepo := database.NewPostgresOutboxRepository(pool)
	statsRepo := database.NewUserStatsRepository(pool)

	// 5. Initialize Services (Domain Layer)
	services := api.Services{
		Listings:  listings.NewService(txManager, listingRepo, categoryRepo, outboxRepo, cfg.Listings),
		Bids:      bids.NewAuctionService(txManager, bidRepo, listingRepo, outboxRepo, cfg.Bids, logger),
		Watchlist: watchlist.NewService(watchlistRepo, listingRepo, cfg.Watchlist, logger),
		Comments:  comments.NewService(commentRepo, listingRepo),
		Users:     users.NewService(userRepo),
		Stats:     userstats.NewService(statsRepo, txManager),
	}

	// 6. Initialize HTTP layer
	cookie := api.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure}
	handler := api.NewHandler(services, sessions, cookie, api.JSONRenderer{}, logger)
	router := api.NewRouter(handler, sessions, api.RouterConfig{Cookie: cookie, LoginURL: cfg.Session.LoginURL}, logger)

	// 7. Start Server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting auction listings API", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			cancel()
		}
	}()

	// Handle graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	logger.Info("Shutting down API...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("API stopped")
}
