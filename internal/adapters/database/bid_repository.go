package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/gavel-listings/internal/domain/bids"
)

// PostgresBidRepository implements bids.BidRepository using pgx
type PostgresBidRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresBidRepository(pool *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{pool: pool}
}

func (r *PostgresBidRepository) SaveBid(ctx context.Context, tx pgx.Tx, bid *bids.Bid) error {
	query := `
		INSERT INTO bids (id, listing_id, bidder_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := tx.Exec(ctx, query,
		bid.ID,
		bid.ListingID,
		bid.BidderID,
		bid.Amount,
		bid.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

func (r *PostgresBidRepository) ListBidsByListing(ctx context.Context, listingID uuid.UUID) ([]*bids.Bid, error) {
	query := `
		SELECT id, listing_id, bidder_id, amount, created_at
		FROM bids
		WHERE listing_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	result, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[bids.Bid])
	if err != nil {
		return nil, fmt.Errorf("failed to scan bids: %w", err)
	}
	return result, nil
}
