package userstats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// IncrementUserStats upserts the bidder's counters
	IncrementUserStats(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, lastBidAt time.Time) error

	// GetUserStats returns ErrStatsNotFound when the user never bid
	GetUserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error)

	// MarkEventProcessed records eventID so redeliveries are skipped
	MarkEventProcessed(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) error

	IsEventProcessed(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (bool, error)
}
