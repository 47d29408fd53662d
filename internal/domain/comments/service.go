package comments

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/floroz/gavel-listings/pkg/auth"
)

const maxCommentLen = 512

var (
	ErrEmptyComment   = errors.New("comment cannot be empty")
	ErrCommentTooLong = errors.New("comment is too long")
)

type Service struct {
	repo      Repository
	listings  ListingReader
	sanitizer *bluemonday.Policy
}

func NewService(repo Repository, listingReader ListingReader) *Service {
	return &Service{
		repo:      repo,
		listings:  listingReader,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// AddComment stores plain-text comment text; markup is stripped first
func (s *Service) AddComment(ctx context.Context, sess auth.Session, listingID uuid.UUID, text string) (*Comment, error) {
	if sess.IsZero() {
		return nil, auth.ErrNoSession
	}

	// StrictPolicy escapes what it keeps; store the plain text
	clean := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
	if clean == "" {
		return nil, ErrEmptyComment
	}
	if utf8.RuneCountInString(clean) > maxCommentLen {
		return nil, ErrCommentTooLong
	}

	if _, err := s.listings.GetListingByID(ctx, listingID); err != nil {
		return nil, err
	}

	comment := &Comment{
		ID:         uuid.New(),
		ListingID:  listingID,
		AuthorID:   sess.UserID,
		Text:       clean,
		CreatedAt:  time.Now(),
		AuthorName: sess.Username,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

func (s *Service) ListComments(ctx context.Context, listingID uuid.UUID) ([]*Comment, error) {
	return s.repo.ListCommentsByListing(ctx, listingID)
}
