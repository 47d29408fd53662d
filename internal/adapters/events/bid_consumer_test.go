package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/floroz/gavel-listings/internal/domain/userstats"
	"github.com/floroz/gavel-listings/pkg/events"
)

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) ProcessBidPlaced(ctx context.Context, event userstats.BidPlacedEvent) error {
	return m.Called(ctx, event).Error(0)
}

type recordingAck struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (a *recordingAck) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *recordingAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func (a *recordingAck) Reject(_ uint64, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func bidPlacedBody(t *testing.T, bidder, listing uuid.UUID, amount int64, placedAt time.Time) (*events.OutboxEvent, []byte) {
	t.Helper()
	event, err := events.NewOutboxEvent(events.EventBidPlaced, map[string]any{
		"bid_id":     uuid.NewString(),
		"listing_id": listing.String(),
		"bidder_id":  bidder.String(),
		"amount":     amount,
		"placed_at":  placedAt.Format(time.RFC3339Nano),
	})
	require.NoError(t, err)
	return event, event.Payload
}

func TestDecodeBidPlaced(t *testing.T) {
	bidder, listing := uuid.New(), uuid.New()
	placedAt := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	outboxEvent, body := bidPlacedBody(t, bidder, listing, 123456, placedAt)

	got, err := decodeBidPlaced(body)
	require.NoError(t, err)
	assert.Equal(t, outboxEvent.ID, got.EventID)
	assert.Equal(t, bidder, got.BidderID)
	assert.Equal(t, listing, got.ListingID)
	assert.Equal(t, int64(123456), got.Amount)
	assert.True(t, placedAt.Equal(got.PlacedAt))

	t.Run("missing bidder", func(t *testing.T) {
		event, err := events.NewOutboxEvent(events.EventBidPlaced, map[string]any{"amount": 1})
		require.NoError(t, err)
		_, err = decodeBidPlaced(event.Payload)
		assert.ErrorIs(t, err, errMalformedEvent)
	})

	t.Run("not protobuf", func(t *testing.T) {
		_, err := decodeBidPlaced([]byte{0xff, 0xff, 0xff})
		assert.Error(t, err)
	})
}

func TestHandleDelivery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bidder, listing := uuid.New(), uuid.New()
	_, body := bidPlacedBody(t, bidder, listing, 500, time.Now().UTC())

	tests := []struct {
		name         string
		body         []byte
		processErr   error
		wantProcess  bool
		wantAck      bool
		wantRequeued bool
	}{
		{name: "processed events are acked", body: body, wantProcess: true, wantAck: true},
		{name: "processing failure requeues", body: body, processErr: errors.New("db down"), wantProcess: true, wantRequeued: true},
		{name: "undecodable events are dropped", body: []byte("garbage")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := new(MockProcessor)
			if tt.wantProcess {
				processor.On("ProcessBidPlaced", mock.Anything, mock.MatchedBy(func(e userstats.BidPlacedEvent) bool {
					return e.BidderID == bidder && e.Amount == 500
				})).Return(tt.processErr)
			}
			ack := &recordingAck{}
			consumer := NewBidConsumer(nil, processor, "", logger)

			consumer.handleDelivery(context.Background(), amqp.Delivery{
				Acknowledger: ack,
				DeliveryTag:  1,
				RoutingKey:   events.EventBidPlaced,
				Body:         tt.body,
			})

			processor.AssertExpectations(t)
			assert.Equal(t, tt.wantAck, ack.acked)
			assert.Equal(t, !tt.wantAck, ack.nacked)
			assert.Equal(t, tt.wantRequeued, ack.requeued)
		})
	}
}
