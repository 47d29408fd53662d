package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ContentType of every payload written to the outbox
const ContentType = "application/x-protobuf"

// Event types, also used as routing keys
const (
	EventBidPlaced            = "bid.placed"
	EventListingCreated       = "listing.created"
	EventListingStatusChanged = "listing.status_changed"
)

// NewOutboxEvent encodes fields as a google.protobuf.Struct and wraps them in
// a pending OutboxEvent. The event id is added to the payload under
// "event_id" so consumers can deduplicate deliveries.
func NewOutboxEvent(eventType string, fields map[string]any) (*OutboxEvent, error) {
	id := uuid.New()
	now := time.Now().UTC()

	data := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		data[k] = v
	}
	data["event_id"] = id.String()
	data["event_type"] = eventType
	data["occurred_at"] = now.Format(time.RFC3339Nano)

	msg, err := structpb.NewStruct(data)
	if err != nil {
		return nil, fmt.Errorf("failed to build event payload: %w", err)
	}
	payload, err := proto.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return &OutboxEvent{
		ID:        id,
		EventType: eventType,
		Payload:   payload,
		Status:    OutboxStatusPending,
		CreatedAt: now,
	}, nil
}

// DecodePayload is the inverse of NewOutboxEvent's encoding
func DecodePayload(body []byte) (*structpb.Struct, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &msg, nil
}
