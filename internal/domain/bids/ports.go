package bids

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/gavel-listings/internal/domain/listings"
	"github.com/floroz/gavel-listings/pkg/events"
)

// BidRepository defines the interface for bid persistence
type BidRepository interface {
	// SaveBid saves a bid within a transaction
	SaveBid(ctx context.Context, tx pgx.Tx, bid *Bid) error

	// ListBidsByListing returns a listing's bids, newest first
	ListBidsByListing(ctx context.Context, listingID uuid.UUID) ([]*Bid, error)
}

// ListingRepository is the slice of listing persistence bidding needs
type ListingRepository interface {
	// GetListingByID reads the listing and its current version
	GetListingByID(ctx context.Context, listingID uuid.UUID) (*listings.Listing, error)

	// CompareAndSetCurrentBid records a new high bid only if the listing is
	// still at expectedVersion. It reports false when another writer got there first.
	CompareAndSetCurrentBid(ctx context.Context, tx pgx.Tx, listingID uuid.UUID, amount int64, winnerID uuid.UUID, expectedVersion int64) (bool, error)
}

// OutboxRepository stores domain events in the caller's transaction
type OutboxRepository = events.OutboxWriter
