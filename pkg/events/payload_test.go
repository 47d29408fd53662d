package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOutboxEvent(t *testing.T) {
	event, err := NewOutboxEvent(EventBidPlaced, map[string]any{
		"listing_id": "l-1",
		"amount":     int64(1250),
	})
	require.NoError(t, err)

	assert.Equal(t, EventBidPlaced, event.EventType)
	assert.Equal(t, OutboxStatusPending, event.Status)
	assert.Nil(t, event.ProcessedAt)

	msg, err := DecodePayload(event.Payload)
	require.NoError(t, err)

	fields := msg.GetFields()
	assert.Equal(t, "l-1", fields["listing_id"].GetStringValue())
	assert.Equal(t, float64(1250), fields["amount"].GetNumberValue())
	assert.Equal(t, event.ID.String(), fields["event_id"].GetStringValue())
	assert.Equal(t, EventBidPlaced, fields["event_type"].GetStringValue())
	assert.NotEmpty(t, fields["occurred_at"].GetStringValue())
}

func TestNewOutboxEvent_RejectsUnsupportedValues(t *testing.T) {
	_, err := NewOutboxEvent(EventListingCreated, map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestDecodePayload_Garbage(t *testing.T) {
	_, err := DecodePayload([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}
