package watchlist

import (
	"context"

	"github.com/google/uuid"

	"github.com/floroz/gavel-listings/internal/domain/listings"
)

type Repository interface {
	// AddEntry inserts entry. With unique set it is a no-op when the user
	// already watches the listing; it reports whether a row was written.
	AddEntry(ctx context.Context, entry *Entry, unique bool) (bool, error)

	// RemoveEntries deletes entries for listingID. A nil authorID removes
	// every user's entries.
	RemoveEntries(ctx context.Context, listingID uuid.UUID, authorID *uuid.UUID) (int64, error)

	// ListWatchedListings returns one listing per entry, oldest entry first
	ListWatchedListings(ctx context.Context, authorID uuid.UUID) ([]*listings.Listing, error)

	IsWatching(ctx context.Context, authorID, listingID uuid.UUID) (bool, error)
}

// ListingReader resolves listing references
type ListingReader interface {
	GetListingByID(ctx context.Context, listingID uuid.UUID) (*listings.Listing, error)
}
