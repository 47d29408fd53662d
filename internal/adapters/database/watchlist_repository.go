package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/gavel-listings/internal/domain/listings"
	"github.com/floroz/gavel-listings/internal/domain/watchlist"
	pkgdb "github.com/floroz/gavel-listings/pkg/database"
)

type PostgresWatchlistRepository struct {
	pool      *pgxpool.Pool
	txManager pkgdb.TransactionManager
}

func NewPostgresWatchlistRepository(pool *pgxpool.Pool, txManager pkgdb.TransactionManager) *PostgresWatchlistRepository {
	return &PostgresWatchlistRepository{pool: pool, txManager: txManager}
}

const insertWatchlistEntry = `
	INSERT INTO watchlist_entries (id, listing_id, author_id, created_at)
	VALUES ($1, $2, $3, $4)
`

// AddEntry inserts entry. With unique set, adds for the same (author, listing)
// pair are serialised on a transaction-scoped advisory lock so two concurrent
// requests cannot both pass the existence check.
func (r *PostgresWatchlistRepository) AddEntry(ctx context.Context, entry *watchlist.Entry, unique bool) (bool, error) {
	args := []any{entry.ID, entry.ListingID, entry.AuthorID, entry.CreatedAt}
	if !unique {
		if _, err := r.pool.Exec(ctx, insertWatchlistEntry, args...); err != nil {
			return false, fmt.Errorf("failed to insert watchlist entry: %w", err)
		}
		return true, nil
	}

	var added bool
	err := pkgdb.RunInTx(ctx, r.txManager, func(tx pgx.Tx) error {
		lockKey := entry.AuthorID.String() + ":" + entry.ListingID.String()
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return fmt.Errorf("failed to lock watchlist pair: %w", err)
		}

		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM watchlist_entries WHERE listing_id = $1 AND author_id = $2)`,
			entry.ListingID, entry.AuthorID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check watchlist entry: %w", err)
		}
		if exists {
			return nil
		}

		if _, err := tx.Exec(ctx, insertWatchlistEntry, args...); err != nil {
			return fmt.Errorf("failed to insert watchlist entry: %w", err)
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

func (r *PostgresWatchlistRepository) RemoveEntries(ctx context.Context, listingID uuid.UUID, authorID *uuid.UUID) (int64, error) {
	query := `DELETE FROM watchlist_entries WHERE listing_id = $1`
	args := []any{listingID}
	if authorID != nil {
		query += ` AND author_id = $2`
		args = append(args, *authorID)
	}

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete watchlist entries: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *PostgresWatchlistRepository) ListWatchedListings(ctx context.Context, authorID uuid.UUID) ([]*listings.Listing, error) {
	query := `
		SELECT l.id, l.author_id, l.title, l.description, l.category_id, l.starting_bid,
			l.current_bid, l.current_winner_id, l.status, COALESCE(l.image_url, ''),
			l.version, l.created_at, l.updated_at
		FROM watchlist_entries w
		JOIN listings l ON l.id = w.listing_id
		WHERE w.author_id = $1
		ORDER BY w.created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	result := []*listings.Listing{}
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watched listing: %w", err)
		}
		result = append(result, listing)
	}
	return result, rows.Err()
}

func (r *PostgresWatchlistRepository) IsWatching(ctx context.Context, authorID, listingID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM watchlist_entries WHERE author_id = $1 AND listing_id = $2)`
	var watching bool
	if err := r.pool.QueryRow(ctx, query, authorID, listingID).Scan(&watching); err != nil {
		return false, fmt.Errorf("failed to check watchlist: %w", err)
	}
	return watching, nil
}
