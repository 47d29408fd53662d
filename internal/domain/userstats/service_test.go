package userstats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/floroz/gavel-listings/pkg/database/databasetest"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) IncrementUserStats(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, lastBidAt time.Time) error {
	args := m.Called(ctx, tx, userID, amount, lastBidAt)
	return args.Error(0)
}

func (m *MockRepository) GetUserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserStats), args.Error(1)
}

func (m *MockRepository) MarkEventProcessed(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) error {
	args := m.Called(ctx, tx, eventID)
	return args.Error(0)
}

func (m *MockRepository) IsEventProcessed(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, eventID)
	return args.Bool(0), args.Error(1)
}

func TestService_ProcessBidPlaced(t *testing.T) {
	event := BidPlacedEvent{
		EventID:  uuid.New(),
		BidderID: uuid.New(),
		Amount:   1500,
		PlacedAt: time.Now(),
	}

	tests := []struct {
		name       string
		setupMock  func(*MockRepository)
		wantErr    bool
		wantCommit bool
	}{
		{
			name: "new event increments and commits",
			setupMock: func(repo *MockRepository) {
				repo.On("IsEventProcessed", mock.Anything, mock.Anything, event.EventID).Return(false, nil)
				repo.On("IncrementUserStats", mock.Anything, mock.Anything, event.BidderID, int64(1500), event.PlacedAt).Return(nil)
				repo.On("MarkEventProcessed", mock.Anything, mock.Anything, event.EventID).Return(nil)
			},
			wantCommit: true,
		},
		{
			name: "duplicate event is skipped",
			setupMock: func(repo *MockRepository) {
				repo.On("IsEventProcessed", mock.Anything, mock.Anything, event.EventID).Return(true, nil)
			},
		},
		{
			name: "increment failure",
			setupMock: func(repo *MockRepository) {
				repo.On("IsEventProcessed", mock.Anything, mock.Anything, event.EventID).Return(false, nil)
				repo.On("IncrementUserStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			txm := &databasetest.FakeTxManager{}
			tt.setupMock(repo)

			err := NewService(repo, txm).ProcessBidPlaced(context.Background(), event)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCommit, txm.Committed() == 1)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_GetStats(t *testing.T) {
	repo := new(MockRepository)
	known, unknown := uuid.New(), uuid.New()
	repo.On("GetUserStats", mock.Anything, known).Return(&UserStats{UserID: known, BidCount: 2}, nil)
	repo.On("GetUserStats", mock.Anything, unknown).Return(nil, ErrStatsNotFound)
	svc := NewService(repo, &databasetest.FakeTxManager{})

	stats, err := svc.GetStats(context.Background(), known)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.BidCount)

	stats, err = svc.GetStats(context.Background(), unknown)
	require.NoError(t, err)
	assert.Equal(t, unknown, stats.UserID)
	assert.Zero(t, stats.BidCount)
}
