package listings

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/gavel-listings/pkg/events"
)

// Repository defines listing persistence
type Repository interface {
	// CreateListing inserts a listing within a transaction
	CreateListing(ctx context.Context, tx pgx.Tx, listing *Listing) error

	// GetListingByID returns ErrListingNotFound for unknown ids
	GetListingByID(ctx context.Context, listingID uuid.UUID) (*Listing, error)

	// ListListings returns every listing, newest first
	ListListings(ctx context.Context) ([]*Listing, error)

	// ListListingsByCategory returns the listings filed under categoryID
	ListListingsByCategory(ctx context.Context, categoryID uuid.UUID) ([]*Listing, error)

	// ListListingsByAuthor returns the listings created by authorID
	ListListingsByAuthor(ctx context.Context, authorID uuid.UUID) ([]*Listing, error)

	// UpdateStatus sets the status and bumps the version
	UpdateStatus(ctx context.Context, tx pgx.Tx, listingID uuid.UUID, status Status) error
}

// CategoryRepository reads the seeded categories
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]*Category, error)

	// GetCategoryByID returns ErrCategoryNotFound for unknown ids
	GetCategoryByID(ctx context.Context, categoryID uuid.UUID) (*Category, error)
}

// OutboxRepository stores domain events in the caller's transaction
type OutboxRepository = events.OutboxWriter
