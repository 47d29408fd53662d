package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/gavel-listings/pkg/auth"
)

const (
	fieldUserID    = "user_id"
	fieldUsername  = "username"
	fieldCreatedAt = "created_at"
)

// RecordStore persists session records by id
type RecordStore interface {
	Load(ctx context.Context, id string) (map[string]string, error)
	Save(ctx context.Context, id string, data map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// TokenSigner issues and verifies the signed session cookie value
type TokenSigner interface {
	IssueSessionToken(sess auth.Session, ttl time.Duration) (string, time.Time, error)
	ValidateToken(tokenString string) (*auth.SessionClaims, error)
}

// Manager ties a signed token to a server-side record so sessions can be
// revoked before the token expires.
type Manager struct {
	store  RecordStore
	signer TokenSigner
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store RecordStore, signer TokenSigner, ttl time.Duration) *Manager {
	return &Manager{store: store, signer: signer, ttl: ttl, now: time.Now}
}

// Create starts a session for the user and returns the cookie value
func (m *Manager) Create(ctx context.Context, userID uuid.UUID, username string) (string, time.Time, error) {
	sess := auth.Session{ID: uuid.NewString(), UserID: userID, Username: username}

	record := map[string]string{
		fieldUserID:    userID.String(),
		fieldUsername:  username,
		fieldCreatedAt: m.now().UTC().Format(time.RFC3339),
	}
	if err := m.store.Save(ctx, sess.ID, record, m.ttl); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to save session: %w", err)
	}

	token, expiresAt, err := m.signer.IssueSessionToken(sess, m.ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to issue session token: %w", err)
	}
	return token, expiresAt, nil
}

// Resolve implements auth.SessionResolver
func (m *Manager) Resolve(ctx context.Context, token string) (auth.Session, error) {
	claims, err := m.signer.ValidateToken(token)
	if err != nil {
		return auth.Session{}, fmt.Errorf("%w: %v", auth.ErrSessionExpired, err)
	}
	sess, err := claims.Session()
	if err != nil {
		return auth.Session{}, fmt.Errorf("%w: %v", auth.ErrSessionExpired, err)
	}

	record, err := m.store.Load(ctx, sess.ID)
	if err != nil {
		return auth.Session{}, err
	}
	if len(record) == 0 || record[fieldUserID] != sess.UserID.String() {
		return auth.Session{}, auth.ErrSessionExpired
	}

	sess.Username = record[fieldUsername]
	return sess, nil
}

// Destroy revokes the session behind token. Invalid tokens are ignored.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	claims, err := m.signer.ValidateToken(token)
	if err != nil {
		return nil
	}
	return m.store.Delete(ctx, claims.ID)
}
