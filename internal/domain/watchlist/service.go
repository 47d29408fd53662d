package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/gavel-listings/internal/domain/listings"
	"github.com/floroz/gavel-listings/pkg/auth"
)

var (
	ErrInvalidMode        = errors.New("invalid watchlist mode")
	ErrListingRefRequired = errors.New("a listing id is required for this mode")
)

// Policy switches between legacy and hardened watchlist behaviour
type Policy struct {
	// UniqueEntries makes add idempotent per (user, listing)
	UniqueEntries bool
	// ScopeRemovalToUser limits remove to the caller's own entries
	ScopeRemovalToUser bool
}

func DefaultPolicy() Policy {
	return Policy{UniqueEntries: true, ScopeRemovalToUser: true}
}

type Service struct {
	repo     Repository
	listings ListingReader
	policy   Policy
	logger   *slog.Logger
}

func NewService(repo Repository, listingReader ListingReader, policy Policy, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		listings: listingReader,
		policy:   policy,
		logger:   logger,
	}
}

// ParseMode validates a mode string
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case ModeAdd, ModeRemove, ModeView:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, raw)
	}
}

// Toggle adds, removes or lists watched listings and always returns the
// caller's resulting watchlist.
func (s *Service) Toggle(ctx context.Context, sess auth.Session, mode Mode, listingRef string) ([]*listings.Listing, error) {
	if sess.IsZero() {
		return nil, auth.ErrNoSession
	}

	switch mode {
	case ModeView:
		return s.View(ctx, sess)
	case ModeAdd, ModeRemove:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	listing, err := s.resolveListing(ctx, listingRef)
	if err != nil {
		return nil, err
	}

	if mode == ModeAdd {
		entry := &Entry{
			ID:        uuid.New(),
			ListingID: listing.ID,
			AuthorID:  sess.UserID,
			CreatedAt: time.Now(),
		}
		if _, err := s.repo.AddEntry(ctx, entry, s.policy.UniqueEntries); err != nil {
			return nil, fmt.Errorf("failed to add watchlist entry: %w", err)
		}
	} else {
		var scope *uuid.UUID
		if s.policy.ScopeRemovalToUser {
			scope = &sess.UserID
		}
		removed, err := s.repo.RemoveEntries(ctx, listing.ID, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to remove watchlist entries: %w", err)
		}
		s.logger.Debug("Removed watchlist entries", "listing_id", listing.ID, "count", removed, "scoped", scope != nil)
	}

	return s.View(ctx, sess)
}

// View returns the listings on the caller's watchlist
func (s *Service) View(ctx context.Context, sess auth.Session) ([]*listings.Listing, error) {
	if sess.IsZero() {
		return nil, auth.ErrNoSession
	}
	return s.repo.ListWatchedListings(ctx, sess.UserID)
}

// IsWatching reports watchlist membership; anonymous users watch nothing
func (s *Service) IsWatching(ctx context.Context, sess auth.Session, listingID uuid.UUID) (bool, error) {
	if sess.IsZero() {
		return false, nil
	}
	return s.repo.IsWatching(ctx, sess.UserID, listingID)
}

func (s *Service) resolveListing(ctx context.Context, ref string) (*listings.Listing, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.EqualFold(ref, AllListings) {
		return nil, ErrListingRefRequired
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, listings.ErrListingNotFound
	}
	return s.listings.GetListingByID(ctx, id)
}
