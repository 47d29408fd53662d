package bids

import (
	"time"

	"github.com/google/uuid"

	"github.com/floroz/gavel-listings/internal/domain/listings"
)

// Bid is an accepted offer on a listing. Bids are never updated or deleted.
type Bid struct {
	ID        uuid.UUID `db:"id"`
	ListingID uuid.UUID `db:"listing_id"`
	BidderID  uuid.UUID `db:"bidder_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

// SubmitResult is the created bid and the listing state it produced
type SubmitResult struct {
	Bid     *Bid
	Listing *listings.Listing
}
