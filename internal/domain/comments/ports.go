package comments

import (
	"context"

	"github.com/google/uuid"

	"github.com/floroz/gavel-listings/internal/domain/listings"
)

type Repository interface {
	CreateComment(ctx context.Context, comment *Comment) error

	// ListCommentsByListing returns comments oldest first
	ListCommentsByListing(ctx context.Context, listingID uuid.UUID) ([]*Comment, error)
}

type ListingReader interface {
	GetListingByID(ctx context.Context, listingID uuid.UUID) (*listings.Listing, error)
}
