package comments

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/floroz/gavel-listings/internal/domain/listings"
	"github.com/floroz/gavel-listings/pkg/auth"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateComment(ctx context.Context, comment *Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockRepository) ListCommentsByListing(ctx context.Context, listingID uuid.UUID) ([]*Comment, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Comment), args.Error(1)
}

type MockListingReader struct {
	mock.Mock
}

func (m *MockListingReader) GetListingByID(ctx context.Context, listingID uuid.UUID) (*listings.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.Listing), args.Error(1)
}

func TestService_AddComment(t *testing.T) {
	listingID := uuid.New()
	sess := auth.Session{ID: "s", UserID: uuid.New(), Username: "carol"}

	tests := []struct {
		name      string
		sess      auth.Session
		text      string
		setupMock func(*MockRepository, *MockListingReader)
		wantErr   error
		wantText  string
	}{
		{
			name: "stores trimmed text",
			sess: sess,
			text: "  Is it still available?  ",
			setupMock: func(repo *MockRepository, lr *MockListingReader) {
				lr.On("GetListingByID", mock.Anything, listingID).Return(&listings.Listing{ID: listingID}, nil)
				repo.On("CreateComment", mock.Anything, mock.AnythingOfType("*comments.Comment")).Return(nil)
			},
			wantText: "Is it still available?",
		},
		{
			name: "strips markup but keeps characters",
			sess: sess,
			text: `<a href="x">Tom & Jerry</a><script>steal()</script>`,
			setupMock: func(repo *MockRepository, lr *MockListingReader) {
				lr.On("GetListingByID", mock.Anything, listingID).Return(&listings.Listing{ID: listingID}, nil)
				repo.On("CreateComment", mock.Anything, mock.Anything).Return(nil)
			},
			wantText: "Tom & Jerry",
		},
		{
			name:      "empty after sanitising",
			sess:      sess,
			text:      "<b></b>   ",
			setupMock: func(*MockRepository, *MockListingReader) {},
			wantErr:   ErrEmptyComment,
		},
		{
			name:      "too long",
			sess:      sess,
			text:      strings.Repeat("a", 513),
			setupMock: func(*MockRepository, *MockListingReader) {},
			wantErr:   ErrCommentTooLong,
		},
		{
			name: "unknown listing",
			sess: sess,
			text: "hello",
			setupMock: func(repo *MockRepository, lr *MockListingReader) {
				lr.On("GetListingByID", mock.Anything, listingID).Return(nil, listings.ErrListingNotFound)
			},
			wantErr: listings.ErrListingNotFound,
		},
		{
			name:      "anonymous",
			sess:      auth.Session{},
			text:      "hello",
			setupMock: func(*MockRepository, *MockListingReader) {},
			wantErr:   auth.ErrNoSession,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			lr := new(MockListingReader)
			tt.setupMock(repo, lr)

			comment, err := NewService(repo, lr).AddComment(context.Background(), tt.sess, listingID, tt.text)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, comment.Text)
			assert.Equal(t, tt.sess.UserID, comment.AuthorID)
			assert.Equal(t, "carol", comment.AuthorName)
			repo.AssertExpectations(t)
		})
	}
}
