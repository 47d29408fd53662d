package auth

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNoSession      = errors.New("no authenticated session")
	ErrSessionExpired = errors.New("session expired or revoked")
)

// Session identifies the authenticated user behind a request. It is passed
// explicitly into every domain operation that acts on behalf of a user.
type Session struct {
	ID       string
	UserID   uuid.UUID
	Username string
}

// IsZero reports whether s carries no user.
func (s Session) IsZero() bool {
	return s.UserID == uuid.Nil
}
