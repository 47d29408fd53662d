package users

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	// CreateUser returns ErrUsernameTaken when the username exists
	CreateUser(ctx context.Context, user *User) error

	// GetUserByUsername returns (nil, nil) when no user matches
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserByID returns ErrUserNotFound for unknown ids
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
}
