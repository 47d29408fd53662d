package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/gavel-listings/internal/domain/userstats"
)

type UserStatsRepository struct {
	pool *pgxpool.Pool
}

func NewUserStatsRepository(pool *pgxpool.Pool) *UserStatsRepository {
	return &UserStatsRepository{pool: pool}
}

// IncrementUserStats increments the user's bid stats atomically
func (r *UserStatsRepository) IncrementUserStats(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, lastBidAt time.Time) error {
	query := `
		INSERT INTO user_bid_stats (user_id, bid_count, total_amount, last_bid_at, created_at, updated_at)
		VALUES ($1, 1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			bid_count = user_bid_stats.bid_count + 1,
			total_amount = user_bid_stats.total_amount + EXCLUDED.total_amount,
			last_bid_at = GREATEST(user_bid_stats.last_bid_at, EXCLUDED.last_bid_at),
			updated_at = NOW()
	`
	_, err := tx.Exec(ctx, query,
		userID,    // $1
		amount,    // $2
		lastBidAt, // $3
	)
	if err != nil {
		return fmt.Errorf("failed to increment user stats: %w", err)
	}
	return nil
}

func (r *UserStatsRepository) GetUserStats(ctx context.Context, userID uuid.UUID) (*userstats.UserStats, error) {
	query := `
		SELECT user_id, bid_count, total_amount, last_bid_at, created_at, updated_at
		FROM user_bid_stats
		WHERE user_id = $1
	`
	var stats userstats.UserStats
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.UserID,
		&stats.BidCount,
		&stats.TotalAmount,
		&stats.LastBidAt,
		&stats.CreatedAt,
		&stats.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, userstats.ErrStatsNotFound
		}
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return &stats, nil
}

func (r *UserStatsRepository) MarkEventProcessed(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) error {
	_, err := tx.Exec(ctx, `INSERT INTO processed_events (event_id) VALUES ($1)`, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func (r *UserStatsRepository) IsEventProcessed(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return exists, nil
}
