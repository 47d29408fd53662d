package userstats

import (
	"time"

	"github.com/google/uuid"
)

// UserStats is a per-bidder read model built from bid.placed events
type UserStats struct {
	UserID      uuid.UUID  `db:"user_id"`
	BidCount    int64      `db:"bid_count"`
	TotalAmount int64      `db:"total_amount"`
	LastBidAt   *time.Time `db:"last_bid_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// BidPlacedEvent is the consumer-side view of a bid.placed message
type BidPlacedEvent struct {
	EventID   uuid.UUID
	BidderID  uuid.UUID
	ListingID uuid.UUID
	Amount    int64
	PlacedAt  time.Time
}
