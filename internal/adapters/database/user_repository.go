package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/gavel-listings/internal/domain/users"
)

// PostgresUserRepository implements users.UserRepository using pgx
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *users.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return users.ErrUsernameTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByUsername returns (nil, nil) when the username is unknown
func (r *PostgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*users.User, error) {
	user, err := r.getUser(ctx, "username = $1", username)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, nil
	}
	return user, err
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return r.getUser(ctx, "id = $1", id)
}

func (r *PostgresUserRepository) getUser(ctx context.Context, where string, arg any) (*users.User, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE ` + where

	var user users.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
