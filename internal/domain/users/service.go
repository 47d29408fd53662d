package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/floroz/gavel-listings/pkg/auth"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrPasswordMismatch   = errors.New("passwords must match")
	ErrInvalidCredentials = errors.New("invalid username and/or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidInput       = errors.New("invalid input")
)

type Service struct {
	userRepo UserRepository
}

func NewService(userRepo UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// registration carries the trimmed fields checked before a user is stored
type registration struct {
	Username string `validate:"required,max=150"`
	Email    string `validate:"omitempty,email,max=254"`
	Password string `validate:"required"`
}

func validateRegistration(cmd RegisterCommand) error {
	return validate.Struct(registration{
		Username: strings.TrimSpace(cmd.Username),
		Email:    strings.TrimSpace(cmd.Email),
		Password: cmd.Password,
	})
}

// Register creates a user with a hashed password
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*User, error) {
	if cmd.Password != cmd.Confirmation {
		return nil, ErrPasswordMismatch
	}
	if err := validateRegistration(cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	username := strings.TrimSpace(cmd.Username)

	existing, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        strings.TrimSpace(cmd.Email),
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	// The unique index still catches a concurrent registration
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate checks a username/password pair
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.userRepo.GetUserByID(ctx, id)
}
