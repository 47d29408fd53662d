package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/floroz/gavel-listings/internal/domain/bids"
	"github.com/floroz/gavel-listings/internal/domain/comments"
	"github.com/floroz/gavel-listings/internal/domain/listings"
	"github.com/floroz/gavel-listings/internal/domain/money"
	"github.com/floroz/gavel-listings/internal/domain/userstats"
)

type listingView struct {
	ID              uuid.UUID  `json:"id"`
	AuthorID        uuid.UUID  `json:"author_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CategoryID      *uuid.UUID `json:"category_id,omitempty"`
	StartingBid     string     `json:"starting_bid"`
	CurrentBid      string     `json:"current_bid"`
	CurrentWinnerID *uuid.UUID `json:"current_winner_id,omitempty"`
	Status          string     `json:"status"`
	ImageURL        string     `json:"image_url,omitempty"`
	CreatedAt       string     `json:"created_at"`
}

func toListingView(l *listings.Listing) listingView {
	return listingView{
		ID:              l.ID,
		AuthorID:        l.AuthorID,
		Title:           l.Title,
		Description:     l.Description,
		CategoryID:      l.CategoryID,
		StartingBid:     money.Format(l.StartingBid),
		CurrentBid:      money.Format(l.CurrentBid),
		CurrentWinnerID: l.CurrentWinnerID,
		Status:          l.Status.String(),
		ImageURL:        l.ImageURL,
		CreatedAt:       l.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toListingViews(ls []*listings.Listing) []listingView {
	return lo.Map(ls, func(l *listings.Listing, _ int) listingView { return toListingView(l) })
}

type categoryView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func toCategoryViews(cs []*listings.Category) []categoryView {
	return lo.Map(cs, func(c *listings.Category, _ int) categoryView {
		return categoryView{ID: c.ID, Name: c.Name}
	})
}

type bidView struct {
	ID        uuid.UUID `json:"id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    string    `json:"amount"`
	CreatedAt string    `json:"created_at"`
}

func toBidViews(bs []*bids.Bid) []bidView {
	return lo.Map(bs, func(b *bids.Bid, _ int) bidView {
		return bidView{
			ID:        b.ID,
			BidderID:  b.BidderID,
			Amount:    money.Format(b.Amount),
			CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
		}
	})
}

type commentView struct {
	ID        uuid.UUID `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt string    `json:"created_at"`
}

func toCommentViews(cs []*comments.Comment) []commentView {
	return lo.Map(cs, func(c *comments.Comment, _ int) commentView {
		return commentView{
			ID:        c.ID,
			Author:    c.AuthorName,
			Text:      c.Text,
			CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		}
	})
}

type statsView struct {
	BidCount    int64   `json:"bid_count"`
	TotalAmount string  `json:"total_amount"`
	LastBidAt   *string `json:"last_bid_at,omitempty"`
}

func toStatsView(s *userstats.UserStats) statsView {
	v := statsView{BidCount: s.BidCount, TotalAmount: money.Format(s.TotalAmount)}
	if s.LastBidAt != nil {
		v.LastBidAt = lo.ToPtr(s.LastBidAt.UTC().Format(time.RFC3339))
	}
	return v
}
