package userstats

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/floroz/gavel-listings/pkg/database"
)

var ErrStatsNotFound = errors.New("user stats not found")

type Service struct {
	repo      Repository
	txManager database.TransactionManager
}

func NewService(repo Repository, txManager database.TransactionManager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// ProcessBidPlaced folds one event into the stats. Redelivered events are
// acknowledged without counting them twice.
func (s *Service) ProcessBidPlaced(ctx context.Context, event BidPlacedEvent) error {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	isProcessed, err := s.repo.IsEventProcessed(ctx, tx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check idempotency: %w", err)
	}
	if isProcessed {
		return nil
	}

	if err := s.repo.IncrementUserStats(ctx, tx, event.BidderID, event.Amount, event.PlacedAt); err != nil {
		return fmt.Errorf("failed to increment user stats: %w", err)
	}

	if err := s.repo.MarkEventProcessed(ctx, tx, event.EventID); err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetStats returns zeroed stats for users who never bid
func (s *Service) GetStats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	stats, err := s.repo.GetUserStats(ctx, userID)
	if errors.Is(err, ErrStatsNotFound) {
		return &UserStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}
