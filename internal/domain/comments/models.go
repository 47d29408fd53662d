package comments

import (
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	ID        uuid.UUID `db:"id"`
	ListingID uuid.UUID `db:"listing_id"`
	AuthorID  uuid.UUID `db:"author_id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`

	// AuthorName is filled on reads for display
	AuthorName string `db:"username"`
}
