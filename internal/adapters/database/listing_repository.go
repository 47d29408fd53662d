package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/gavel-listings/internal/domain/listings"
	pkgdb "github.com/floroz/gavel-listings/pkg/database"
)

const listingColumns = `
	id, author_id, title, description, category_id, starting_bid, current_bid,
	current_winner_id, status, COALESCE(image_url, ''), version, created_at, updated_at
`

// PostgresListingRepository implements listings.Repository and the listing
// side of bids.ListingRepository using pgx
type PostgresListingRepository struct {
	pool *pgxpool.Pool // Keep pool for non-transactional reads
}

func NewPostgresListingRepository(pool *pgxpool.Pool) *PostgresListingRepository {
	return &PostgresListingRepository{pool: pool}
}

func (r *PostgresListingRepository) CreateListing(ctx context.Context, tx pgx.Tx, listing *listings.Listing) error {
	query := `
		INSERT INTO listings (
			id, author_id, title, description, category_id, starting_bid, current_bid,
			current_winner_id, status, image_url, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13)
	`
	_, err := tx.Exec(ctx, query,
		listing.ID,
		listing.AuthorID,
		listing.Title,
		listing.Description,
		listing.CategoryID,
		listing.StartingBid,
		listing.CurrentBid,
		listing.CurrentWinnerID,
		listing.Status,
		listing.ImageURL,
		listing.Version,
		listing.CreatedAt,
		listing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

func (r *PostgresListingRepository) GetListingByID(ctx context.Context, listingID uuid.UUID) (*listings.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	listing, err := scanListing(r.pool.QueryRow(ctx, query, listingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, listings.ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return listing, nil
}

func (r *PostgresListingRepository) ListListings(ctx context.Context) ([]*listings.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings ORDER BY created_at DESC`
	return r.queryListings(ctx, r.pool, query)
}

func (r *PostgresListingRepository) ListListingsByCategory(ctx context.Context, categoryID uuid.UUID) ([]*listings.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE category_id = $1 ORDER BY created_at DESC`
	return r.queryListings(ctx, r.pool, query, categoryID)
}

func (r *PostgresListingRepository) ListListingsByAuthor(ctx context.Context, authorID uuid.UUID) ([]*listings.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE author_id = $1 ORDER BY created_at DESC`
	return r.queryListings(ctx, r.pool, query, authorID)
}

// UpdateStatus bumps the version too, so an in-flight bid re-validates
// against the new status
func (r *PostgresListingRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, listingID uuid.UUID, status listings.Status) error {
	query := `
		UPDATE listings
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
	`
	result, err := tx.Exec(ctx, query, status, listingID)
	if err != nil {
		return fmt.Errorf("failed to update listing status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return listings.ErrListingNotFound
	}
	return nil
}

// CompareAndSetCurrentBid only writes when the row is still at expectedVersion
func (r *PostgresListingRepository) CompareAndSetCurrentBid(
	ctx context.Context,
	tx pgx.Tx,
	listingID uuid.UUID,
	amount int64,
	winnerID uuid.UUID,
	expectedVersion int64,
) (bool, error) {
	query := `
		UPDATE listings
		SET current_bid = $1, current_winner_id = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4
	`
	result, err := tx.Exec(ctx, query, amount, winnerID, listingID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("failed to update current bid: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *PostgresListingRepository) queryListings(ctx context.Context, db pkgdb.DBTX, query string, args ...any) ([]*listings.Listing, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	result := []*listings.Listing{}
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		result = append(result, listing)
	}
	return result, rows.Err()
}

func scanListing(row pgx.Row) (*listings.Listing, error) {
	var l listings.Listing
	err := row.Scan(
		&l.ID,
		&l.AuthorID,
		&l.Title,
		&l.Description,
		&l.CategoryID,
		&l.StartingBid,
		&l.CurrentBid,
		&l.CurrentWinnerID,
		&l.Status,
		&l.ImageURL,
		&l.Version,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// PostgresCategoryRepository implements listings.CategoryRepository
type PostgresCategoryRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCategoryRepository(pool *pgxpool.Pool) *PostgresCategoryRepository {
	return &PostgresCategoryRepository{pool: pool}
}

func (r *PostgresCategoryRepository) ListCategories(ctx context.Context) ([]*listings.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	categories, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[listings.Category])
	if err != nil {
		return nil, fmt.Errorf("failed to scan categories: %w", err)
	}
	return categories, nil
}

func (r *PostgresCategoryRepository) GetCategoryByID(ctx context.Context, categoryID uuid.UUID) (*listings.Category, error) {
	var c listings.Category
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM categories WHERE id = $1`, categoryID).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, listings.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}
