package watchlist

import (
	"time"

	"github.com/google/uuid"
)

// Entry marks a listing as watched by a user
type Entry struct {
	ID        uuid.UUID `db:"id"`
	ListingID uuid.UUID `db:"listing_id"`
	AuthorID  uuid.UUID `db:"author_id"`
	CreatedAt time.Time `db:"created_at"`
}

type Mode string

const (
	ModeAdd    Mode = "add"
	ModeRemove Mode = "remove"
	ModeView   Mode = "view"
)

// AllListings is the listing reference used with ModeView
const AllListings = "all"
