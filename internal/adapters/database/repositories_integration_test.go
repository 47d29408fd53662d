//go:build integration

package database_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floroz/gavel-listings/internal/adapters/database"
	"github.com/floroz/gavel-listings/internal/domain/bids"
	"github.com/floroz/gavel-listings/internal/domain/comments"
	"github.com/floroz/gavel-listings/internal/domain/listings"
	"github.com/floroz/gavel-listings/internal/domain/users"
	"github.com/floroz/gavel-listings/internal/domain/watchlist"
	"github.com/floroz/gavel-listings/pkg/auth"
	pkgdb "github.com/floroz/gavel-listings/pkg/database"
	"github.com/floroz/gavel-listings/pkg/events"
	"github.com/floroz/gavel-listings/pkg/testhelpers"
)

var electronics = uuid.MustParse("0b6c3a52-6d1e-4c55-9d5e-0f3c5a1a0001")

func seedUser(t *testing.T, pool *pgxpool.Pool, username string) *users.User {
	t.Helper()
	repo := database.NewPostgresUserRepository(pool)
	user := &users.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

func seedListing(t *testing.T, pool *pgxpool.Pool, author uuid.UUID, startingBid int64) *listings.Listing {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	listing := &listings.Listing{
		ID:          uuid.New(),
		AuthorID:    author,
		Title:       "Camera",
		Description: "Barely used",
		CategoryID:  &electronics,
		StartingBid: startingBid,
		Status:      listings.StatusOpen,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, database.NewPostgresListingRepository(pool).CreateListing(ctx, tx, listing))
	require.NoError(t, tx.Commit(ctx))
	return listing
}

func TestRepositories(t *testing.T) {
	td := testhelpers.NewTestDatabase(t, "../../../migrations")
	pool := td.Pool
	ctx := context.Background()

	reset := func(t *testing.T) {
		td.Truncate(t, "outbox_events", "watchlist_entries", "comments", "bids", "listings", "users")
	}

	t.Run("Users", func(t *testing.T) {
		reset(t)
		repo := database.NewPostgresUserRepository(pool)
		alice := seedUser(t, pool, "alice")

		got, err := repo.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, alice.ID, got.ID)

		missing, err := repo.GetUserByUsername(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, missing)

		_, err = repo.GetUserByID(ctx, uuid.New())
		assert.ErrorIs(t, err, users.ErrUserNotFound)

		dup := &users.User{ID: uuid.New(), Username: "alice", Email: "a@b.c", PasswordHash: "x", CreatedAt: time.Now()}
		assert.ErrorIs(t, repo.CreateUser(ctx, dup), users.ErrUsernameTaken)
	})

	t.Run("Listings and categories", func(t *testing.T) {
		reset(t)
		repo := database.NewPostgresListingRepository(pool)
		categories := database.NewPostgresCategoryRepository(pool)
		alice := seedUser(t, pool, "alice")
		listing := seedListing(t, pool, alice.ID, 1000)

		got, err := repo.GetListingByID(ctx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, listing.Title, got.Title)
		assert.Equal(t, int64(1000), got.StartingBid)
		assert.Equal(t, listings.StatusOpen, got.Status)
		assert.Nil(t, got.CurrentWinnerID)
		assert.Empty(t, got.ImageURL)

		_, err = repo.GetListingByID(ctx, uuid.New())
		assert.ErrorIs(t, err, listings.ErrListingNotFound)

		byCategory, err := repo.ListListingsByCategory(ctx, electronics)
		require.NoError(t, err)
		assert.Len(t, byCategory, 1)

		byAuthor, err := repo.ListListingsByAuthor(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, byAuthor)

		all, err := categories.ListCategories(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 5)

		_, err = categories.GetCategoryByID(ctx, uuid.New())
		assert.ErrorIs(t, err, listings.ErrCategoryNotFound)

		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.UpdateStatus(ctx, tx, listing.ID, listings.StatusClosed))
		require.NoError(t, tx.Commit(ctx))

		got, err = repo.GetListingByID(ctx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, listings.StatusClosed, got.Status)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("Compare and set current bid", func(t *testing.T) {
		reset(t)
		repo := database.NewPostgresListingRepository(pool)
		alice := seedUser(t, pool, "alice")
		bob := seedUser(t, pool, "bob")
		listing := seedListing(t, pool, alice.ID, 1000)

		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		ok, err := repo.CompareAndSetCurrentBid(ctx, tx, listing.ID, 1500, bob.ID, 1)
		require.NoError(t, err)
		assert.True(t, ok)
		stale, err := repo.CompareAndSetCurrentBid(ctx, tx, listing.ID, 1600, bob.ID, 1)
		require.NoError(t, err)
		assert.False(t, stale)
		require.NoError(t, tx.Commit(ctx))

		got, err := repo.GetListingByID(ctx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1500), got.CurrentBid)
		require.NotNil(t, got.CurrentWinnerID)
		assert.Equal(t, bob.ID, *got.CurrentWinnerID)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("Comments carry the author name", func(t *testing.T) {
		reset(t)
		repo := database.NewPostgresCommentRepository(pool)
		alice := seedUser(t, pool, "alice")
		listing := seedListing(t, pool, alice.ID, 0)

		require.NoError(t, repo.CreateComment(ctx, &comments.Comment{
			ID: uuid.New(), ListingID: listing.ID, AuthorID: alice.ID, Text: "Still available?", CreatedAt: time.Now(),
		}))

		got, err := repo.ListCommentsByListing(ctx, listing.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "alice", got[0].AuthorName)
		assert.Equal(t, "Still available?", got[0].Text)
	})

	t.Run("Watchlist uniqueness and removal scope", func(t *testing.T) {
		reset(t)
		repo := database.NewPostgresWatchlistRepository(pool, pkgdb.NewPostgresTransactionManager(pool, 5*time.Second))
		alice := seedUser(t, pool, "alice")
		bob := seedUser(t, pool, "bob")
		listing := seedListing(t, pool, alice.ID, 0)

		entry := func(author uuid.UUID) *watchlist.Entry {
			return &watchlist.Entry{ID: uuid.New(), ListingID: listing.ID, AuthorID: author, CreatedAt: time.Now()}
		}

		added, err := repo.AddEntry(ctx, entry(bob.ID), true)
		require.NoError(t, err)
		assert.True(t, added)
		added, err = repo.AddEntry(ctx, entry(bob.ID), true)
		require.NoError(t, err)
		assert.False(t, added)
		added, err = repo.AddEntry(ctx, entry(bob.ID), false)
		require.NoError(t, err)
		assert.True(t, added)
		_, err = repo.AddEntry(ctx, entry(alice.ID), true)
		require.NoError(t, err)

		watched, err := repo.ListWatchedListings(ctx, bob.ID)
		require.NoError(t, err)
		assert.Len(t, watched, 2)

		removed, err := repo.RemoveEntries(ctx, listing.ID, &bob.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		watching, err := repo.IsWatching(ctx, alice.ID, listing.ID)
		require.NoError(t, err)
		assert.True(t, watching)

		removed, err = repo.RemoveEntries(ctx, listing.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)
	})

	t.Run("Concurrent unique watchlist adds keep one entry", func(t *testing.T) {
		reset(t)
		repo := database.NewPostgresWatchlistRepository(pool, pkgdb.NewPostgresTransactionManager(pool, 5*time.Second))
		alice := seedUser(t, pool, "alice")
		bob := seedUser(t, pool, "bob")
		listing := seedListing(t, pool, alice.ID, 0)

		const clicks = 10
		var wg sync.WaitGroup
		added := make([]bool, clicks)
		errs := make([]error, clicks)
		start := make(chan struct{})
		for i := 0; i < clicks; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				entry := &watchlist.Entry{ID: uuid.New(), ListingID: listing.ID, AuthorID: bob.ID, CreatedAt: time.Now()}
				added[i], errs[i] = repo.AddEntry(ctx, entry, true)
			}(i)
		}
		close(start)
		wg.Wait()

		inserted := 0
		for i := range added {
			require.NoError(t, errs[i])
			if added[i] {
				inserted++
			}
		}
		assert.Equal(t, 1, inserted)

		watched, err := repo.ListWatchedListings(ctx, bob.ID)
		require.NoError(t, err)
		assert.Len(t, watched, 1)
	})

	t.Run("Outbox drains pending events in order", func(t *testing.T) {
		reset(t)
		repo := database.NewPostgresOutboxRepository(pool)

		first, err := events.NewOutboxEvent(events.EventListingCreated, map[string]any{"listing_id": uuid.NewString()})
		require.NoError(t, err)
		second, err := events.NewOutboxEvent(events.EventBidPlaced, map[string]any{"amount": 1500})
		require.NoError(t, err)
		second.CreatedAt = first.CreatedAt.Add(time.Millisecond)

		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.SaveEvent(ctx, tx, first))
		require.NoError(t, repo.SaveEvent(ctx, tx, second))
		require.NoError(t, tx.Commit(ctx))

		tx, err = pool.Begin(ctx)
		require.NoError(t, err)
		pending, err := repo.GetPendingEvents(ctx, tx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, first.ID, pending[0].ID)
		require.NoError(t, repo.UpdateEventStatus(ctx, tx, first.ID, events.OutboxStatusPublished))
		require.NoError(t, tx.Commit(ctx))

		tx, err = pool.Begin(ctx)
		require.NoError(t, err)
		pending, err = repo.GetPendingEvents(ctx, tx, 10)
		require.NoError(t, err)
		require.NoError(t, tx.Rollback(ctx))
		require.Len(t, pending, 1)
		assert.Equal(t, second.ID, pending[0].ID)
	})

	t.Run("Concurrent bids keep the highest amount", func(t *testing.T) {
		reset(t)
		alice := seedUser(t, pool, "alice")
		listing := seedListing(t, pool, alice.ID, 100)

		txm := pkgdb.NewPostgresTransactionManager(pool, 5*time.Second)
		bidRepo := database.NewPostgresBidRepository(pool)
		listingRepo := database.NewPostgresListingRepository(pool)
		outbox := database.NewPostgresOutboxRepository(pool)
		policy := bids.Policy{MaxRetries: 20}
		svc := bids.NewAuctionService(txm, bidRepo, listingRepo, outbox, policy, slog.New(slog.NewTextHandler(io.Discard, nil)))

		const bidders = 8
		var wg sync.WaitGroup
		errs := make([]error, bidders)
		for i := 0; i < bidders; i++ {
			bidder := seedUser(t, pool, "bidder"+uuid.NewString()[:8])
			wg.Add(1)
			go func(i int, sess auth.Session) {
				defer wg.Done()
				amount := []string{"2", "3", "4", "5", "6", "7", "8", "9"}[i]
				_, errs[i] = svc.SubmitBid(ctx, sess, bids.SubmitBidCommand{ListingID: listing.ID, Amount: amount})
			}(i, auth.Session{ID: uuid.NewString(), UserID: bidder.ID, Username: bidder.Username})
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				assert.True(t,
					errors.Is(err, bids.ErrBelowCurrentBid) || errors.Is(err, bids.ErrConcurrentModification),
					"unexpected error: %v", err)
			}
		}

		got, err := listingRepo.GetListingByID(ctx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(900), got.CurrentBid)

		placed, err := bidRepo.ListBidsByListing(ctx, listing.ID)
		require.NoError(t, err)
		assert.Len(t, placed, int(got.Version-1))
		for _, b := range placed {
			assert.LessOrEqual(t, b.Amount, got.CurrentBid)
		}
	})
}
