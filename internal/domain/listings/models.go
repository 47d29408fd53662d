package listings

import (
	"time"

	"github.com/google/uuid"
)

// Status is stored as a small integer: 1 open, 0 closed.
type Status int16

const (
	StatusClosed Status = 0
	StatusOpen   Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Listing is an item offered for auction.
// CurrentBid and CurrentWinnerID only change through an accepted bid;
// Version is bumped on every state change and guards those updates.
type Listing struct {
	ID              uuid.UUID  `db:"id"`
	AuthorID        uuid.UUID  `db:"author_id"`
	Title           string     `db:"title"`
	Description     string     `db:"description"`
	CategoryID      *uuid.UUID `db:"category_id"`
	StartingBid     int64      `db:"starting_bid"`
	CurrentBid      int64      `db:"current_bid"`
	CurrentWinnerID *uuid.UUID `db:"current_winner_id"`
	Status          Status     `db:"status"`
	ImageURL        string     `db:"image_url"`
	Version         int64      `db:"version"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (l *Listing) IsOpen() bool {
	return l.Status == StatusOpen
}

// IsOwnedBy reports whether userID authored the listing
func (l *Listing) IsOwnedBy(userID uuid.UUID) bool {
	return l.AuthorID == userID
}

// Category is static reference data
type Category struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`
}
