package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/gavel-listings/internal/domain/comments"
)

type PostgresCommentRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCommentRepository(pool *pgxpool.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *comments.Comment) error {
	query := `
		INSERT INTO comments (id, listing_id, author_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		comment.ID,
		comment.ListingID,
		comment.AuthorID,
		comment.Text,
		comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

func (r *PostgresCommentRepository) ListCommentsByListing(ctx context.Context, listingID uuid.UUID) ([]*comments.Comment, error) {
	query := `
		SELECT c.id, c.listing_id, c.author_id, c.text, c.created_at, u.username
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.listing_id = $1
		ORDER BY c.created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	result, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[comments.Comment])
	if err != nil {
		return nil, fmt.Errorf("failed to scan comments: %w", err)
	}
	return result, nil
}
