package listings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/floroz/gavel-listings/internal/domain/money"
	"github.com/floroz/gavel-listings/pkg/auth"
	"github.com/floroz/gavel-listings/pkg/database"
	"github.com/floroz/gavel-listings/pkg/events"
)

const (
	maxTitleLen       = 256
	maxDescriptionLen = 1024
	maxImageURLLen    = 2048
)

var (
	ErrListingNotFound    = errors.New("listing not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrNotOwner           = errors.New("only the author can change this listing")
	ErrInvalidStatus      = errors.New("invalid listing status")
	ErrTitleRequired      = errors.New("title is required")
	ErrTitleTooLong       = errors.New("title is too long")
	ErrDescriptionTooLong = errors.New("description is too long")
	ErrInvalidStartingBid = errors.New("starting bid must be a non-negative amount")
	ErrInvalidImageURL    = errors.New("image url must be an absolute http or https url")
)

// Policy switches behaviour that differs between the legacy site and the
// hardened one.
type Policy struct {
	// OwnerOnlyStatusChange restricts close/open to the listing's author.
	OwnerOnlyStatusChange bool
}

// DefaultPolicy is the hardened behaviour
func DefaultPolicy() Policy {
	return Policy{OwnerOnlyStatusChange: true}
}

type CreateListingCommand struct {
	Title       string
	Description string
	StartingBid string
	ImageURL    string
	CategoryID  string
}

type Service struct {
	txManager  database.TransactionManager
	repo       Repository
	categories CategoryRepository
	outboxRepo OutboxRepository
	sanitizer  *bluemonday.Policy
	policy     Policy
}

func NewService(
	txManager database.TransactionManager,
	repo Repository,
	categories CategoryRepository,
	outboxRepo OutboxRepository,
	policy Policy,
) *Service {
	return &Service{
		txManager:  txManager,
		repo:       repo,
		categories: categories,
		outboxRepo: outboxRepo,
		sanitizer:  bluemonday.UGCPolicy(),
		policy:     policy,
	}
}

// CreateListing validates the form input and stores an open listing
func (s *Service) CreateListing(ctx context.Context, sess auth.Session, cmd CreateListingCommand) (*Listing, error) {
	if sess.IsZero() {
		return nil, auth.ErrNoSession
	}

	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, ErrTitleTooLong
	}

	description := strings.TrimSpace(s.sanitizer.Sanitize(cmd.Description))
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return nil, ErrDescriptionTooLong
	}

	startingBid, err := money.Parse(cmd.StartingBid)
	if err != nil || startingBid < 0 {
		return nil, ErrInvalidStartingBid
	}

	imageURL, err := validateImageURL(cmd.ImageURL)
	if err != nil {
		return nil, err
	}

	var categoryID *uuid.UUID
	if raw := strings.TrimSpace(cmd.CategoryID); raw != "" {
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return nil, ErrCategoryNotFound
		}
		if _, getErr := s.categories.GetCategoryByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		categoryID = &id
	}

	now := time.Now()
	listing := &Listing{
		ID:          uuid.New(),
		AuthorID:    sess.UserID,
		Title:       title,
		Description: description,
		CategoryID:  categoryID,
		StartingBid: startingBid,
		CurrentBid:  0,
		Status:      StatusOpen,
		ImageURL:    imageURL,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := s.repo.CreateListing(ctx, tx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	event, err := events.NewOutboxEvent(events.EventListingCreated, map[string]any{
		"listing_id":   listing.ID.String(),
		"author_id":    listing.AuthorID.String(),
		"title":        listing.Title,
		"starting_bid": listing.StartingBid,
	})
	if err != nil {
		return nil, err
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return listing, nil
}

func validateImageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if len(raw) > maxImageURLLen {
		return "", ErrInvalidImageURL
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrInvalidImageURL
	}
	return u.String(), nil
}

// SetStatus opens or closes bidding on a listing. The update is
// unconditional, so repeating it is harmless.
func (s *Service) SetStatus(ctx context.Context, sess auth.Session, listingID uuid.UUID, status Status) (*Listing, error) {
	if sess.IsZero() {
		return nil, auth.ErrNoSession
	}
	if status != StatusOpen && status != StatusClosed {
		return nil, ErrInvalidStatus
	}

	listing, err := s.repo.GetListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if s.policy.OwnerOnlyStatusChange && !listing.IsOwnedBy(sess.UserID) {
		return nil, ErrNotOwner
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := s.repo.UpdateStatus(ctx, tx, listingID, status); err != nil {
		return nil, fmt.Errorf("failed to update listing status: %w", err)
	}

	event, err := events.NewOutboxEvent(events.EventListingStatusChanged, map[string]any{
		"listing_id": listingID.String(),
		"status":     status.String(),
		"changed_by": sess.UserID.String(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	listing.Status = status
	listing.Version++
	return listing, nil
}

func (s *Service) GetListing(ctx context.Context, listingID uuid.UUID) (*Listing, error) {
	return s.repo.GetListingByID(ctx, listingID)
}

func (s *Service) ListListings(ctx context.Context) ([]*Listing, error) {
	return s.repo.ListListings(ctx)
}

// ListByCategory returns the category together with its listings
func (s *Service) ListByCategory(ctx context.Context, categoryID uuid.UUID) (*Category, []*Listing, error) {
	category, err := s.categories.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.repo.ListListingsByCategory(ctx, categoryID)
	if err != nil {
		return nil, nil, err
	}
	return category, items, nil
}

// ListByAuthor returns the listings created by the session's user
func (s *Service) ListByAuthor(ctx context.Context, sess auth.Session) ([]*Listing, error) {
	if sess.IsZero() {
		return nil, auth.ErrNoSession
	}
	return s.repo.ListListingsByAuthor(ctx, sess.UserID)
}

func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.categories.ListCategories(ctx)
}
