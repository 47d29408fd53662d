package bids

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/gavel-listings/internal/domain/listings"
	"github.com/floroz/gavel-listings/internal/domain/money"
	"github.com/floroz/gavel-listings/pkg/auth"
	"github.com/floroz/gavel-listings/pkg/database"
	"github.com/floroz/gavel-listings/pkg/events"
)

// Validation errors. Each leaves the listing untouched.
var (
	ErrInvalidAmount          = errors.New("the amount is not valid")
	ErrBelowStartingBid       = errors.New("bid is below the starting bid")
	ErrBelowCurrentBid        = errors.New("bid is below the current highest bid")
	ErrSelfBid                = errors.New("author cannot bid on their own listing")
	ErrListingClosed          = errors.New("listing is closed for bidding")
	ErrConcurrentModification = errors.New("listing changed while the bid was being placed")
)

const defaultMaxRetries = 3

// Policy tunes bid acceptance
type Policy struct {
	// RejectClosedListings refuses bids on closed listings. Off keeps the
	// legacy behaviour of accepting them.
	RejectClosedListings bool

	// MaxRetries is how many times a bid is re-validated and retried after
	// losing a version race. Negative means no retries.
	MaxRetries int
}

// DefaultPolicy keeps closed listings biddable and retries three times
func DefaultPolicy() Policy {
	return Policy{RejectClosedListings: false, MaxRetries: defaultMaxRetries}
}

type SubmitBidCommand struct {
	ListingID uuid.UUID
	Amount    string
}

// validateBid applies the acceptance rules in their fixed order.
// Amounts equal to the starting bid or the current bid are accepted.
func validateBid(listing *listings.Listing, bidderID uuid.UUID, amount int64, policy Policy) error {
	if policy.RejectClosedListings && !listing.IsOpen() {
		return ErrListingClosed
	}
	if amount < listing.StartingBid {
		return ErrBelowStartingBid
	}
	if amount < listing.CurrentBid {
		return ErrBelowCurrentBid
	}
	if listing.IsOwnedBy(bidderID) {
		return ErrSelfBid
	}
	return nil
}

// AuctionService implements bid submission
type AuctionService struct {
	txManager   database.TransactionManager
	bidRepo     BidRepository
	listingRepo ListingRepository
	outboxRepo  OutboxRepository
	policy      Policy
	logger      *slog.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(
	txManager database.TransactionManager,
	bidRepo BidRepository,
	listingRepo ListingRepository,
	outboxRepo OutboxRepository,
	policy Policy,
	logger *slog.Logger,
) *AuctionService {
	return &AuctionService{
		txManager:   txManager,
		bidRepo:     bidRepo,
		listingRepo: listingRepo,
		outboxRepo:  outboxRepo,
		policy:      policy,
		logger:      logger,
	}
}

// SubmitBid parses and validates a bid, then records it together with the
// listing's new high bid. The listing update is conditional on the version
// read during validation; on a lost race the whole attempt is repeated
// against fresh state.
func (s *AuctionService) SubmitBid(ctx context.Context, sess auth.Session, cmd SubmitBidCommand) (*SubmitResult, error) {
	if sess.IsZero() {
		return nil, auth.ErrNoSession
	}

	amount, err := money.Parse(cmd.Amount)
	if err != nil {
		return nil, ErrInvalidAmount
	}

	attempts := s.policy.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		listing, err := s.listingRepo.GetListingByID(ctx, cmd.ListingID)
		if err != nil {
			return nil, err
		}

		if valErr := validateBid(listing, sess.UserID, amount, s.policy); valErr != nil {
			return nil, valErr
		}

		result, err := s.placeBid(ctx, listing, sess.UserID, amount)
		if errors.Is(err, ErrConcurrentModification) {
			s.logger.Debug("Bid lost version race",
				"listing_id", cmd.ListingID,
				"attempt", attempt,
				"expected_version", listing.Version,
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	s.logger.Warn("Bid retries exhausted", "listing_id", cmd.ListingID, "attempts", attempts)
	return nil, ErrConcurrentModification
}

// placeBid implements the transactional outbox pattern: bid, listing update
// and event commit together or not at all.
func (s *AuctionService) placeBid(ctx context.Context, listing *listings.Listing, bidderID uuid.UUID, amount int64) (*SubmitResult, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Rollback if commit is not called
	}()

	bid := &Bid{
		ID:        uuid.New(),
		ListingID: listing.ID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: time.Now(),
	}

	// Step 1: Save the bid
	if saveErr := s.bidRepo.SaveBid(ctx, tx, bid); saveErr != nil {
		return nil, fmt.Errorf("failed to save bid: %w", saveErr)
	}

	// Step 2: Move the high bid, guarded by the version we validated against
	swapped, err := s.listingRepo.CompareAndSetCurrentBid(ctx, tx, listing.ID, amount, bidderID, listing.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update current bid: %w", err)
	}
	if !swapped {
		return nil, ErrConcurrentModification
	}

	// Step 3: Record the event in the same transaction
	event, err := events.NewOutboxEvent(events.EventBidPlaced, map[string]any{
		"bid_id":     bid.ID.String(),
		"listing_id": bid.ListingID.String(),
		"bidder_id":  bid.BidderID.String(),
		"amount":     bid.Amount,
		"placed_at":  bid.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	if saveErr := s.outboxRepo.SaveEvent(ctx, tx, event); saveErr != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", saveErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", commitErr)
	}

	updated := *listing
	updated.CurrentBid = amount
	updated.CurrentWinnerID = &bidderID
	updated.Version = listing.Version + 1

	return &SubmitResult{Bid: bid, Listing: &updated}, nil
}

// ListBids returns the bid history of a listing, newest first
func (s *AuctionService) ListBids(ctx context.Context, listingID uuid.UUID) ([]*Bid, error) {
	return s.bidRepo.ListBidsByListing(ctx, listingID)
}
