package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/floroz/gavel-listings/internal/domain/userstats"
	"github.com/floroz/gavel-listings/pkg/events"
)

// UserStatsQueue receives bid.placed events for the stats read model
const UserStatsQueue = "user_stats_bids"

var errMalformedEvent = errors.New("malformed bid.placed event")

// BidPlacedProcessor applies a bid.placed event; it must be idempotent
type BidPlacedProcessor interface {
	ProcessBidPlaced(ctx context.Context, event userstats.BidPlacedEvent) error
}

// BidConsumer consumes bid events and updates user statistics
type BidConsumer struct {
	conn      *amqp.Connection
	processor BidPlacedProcessor
	exchange  string
	logger    *slog.Logger
}

func NewBidConsumer(conn *amqp.Connection, processor BidPlacedProcessor, exchange string, logger *slog.Logger) *BidConsumer {
	if exchange == "" {
		exchange = events.DefaultExchange
	}
	return &BidConsumer{
		conn:      conn,
		processor: processor,
		exchange:  exchange,
		logger:    logger,
	}
}

// Run consumes until ctx is cancelled. It returns nil on cancellation.
func (c *BidConsumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if setupErr := c.setupRabbitMQ(ch); setupErr != nil {
		return fmt.Errorf("failed to setup rabbitmq: %w", setupErr)
	}

	msgs, err := ch.Consume(
		UserStatsQueue, // queue
		"",             // consumer tag
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("Waiting for messages...", "queue", UserStatsQueue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("channel closed")
			}
			c.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery acks processed events, drops undecodable ones and
// requeues the rest
func (c *BidConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	event, err := decodeBidPlaced(d.Body)
	if err != nil {
		c.logger.Error("Failed to decode event", "routing_key", d.RoutingKey, "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.Error("Failed to Nack message", "error", nackErr)
		}
		return
	}

	if err := c.processor.ProcessBidPlaced(ctx, event); err != nil {
		c.logger.Error("Failed to process event", "event_id", event.EventID, "error", err)
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error("Failed to Nack message (requeue)", "error", nackErr)
		}
		return
	}

	if ackErr := d.Ack(false); ackErr != nil {
		c.logger.Error("Failed to Ack message", "error", ackErr)
		return
	}
	c.logger.Info("Processed event", "event_id", event.EventID, "bidder_id", event.BidderID)
}

func (c *BidConsumer) setupRabbitMQ(ch *amqp.Channel) error {
	if err := events.DeclareExchange(ch, c.exchange); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(
		UserStatsQueue, // name
		true,           // durable
		false,          // delete when unused
		false,          // exclusive
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return err
	}

	return ch.QueueBind(
		q.Name,                // queue name
		events.EventBidPlaced, // routing key
		c.exchange,            // exchange
		false,
		nil,
	)
}

func decodeBidPlaced(body []byte) (userstats.BidPlacedEvent, error) {
	msg, err := events.DecodePayload(body)
	if err != nil {
		return userstats.BidPlacedEvent{}, err
	}
	fields := msg.GetFields()

	var event userstats.BidPlacedEvent
	if event.EventID, err = uuidField(fields, "event_id"); err != nil {
		return event, err
	}
	if event.BidderID, err = uuidField(fields, "bidder_id"); err != nil {
		return event, err
	}
	if event.ListingID, err = uuidField(fields, "listing_id"); err != nil {
		return event, err
	}

	amount, ok := fields["amount"].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return event, fmt.Errorf("%w: amount missing", errMalformedEvent)
	}
	event.Amount = int64(amount.NumberValue)

	placedAt, err := time.Parse(time.RFC3339Nano, fields["placed_at"].GetStringValue())
	if err != nil {
		return event, fmt.Errorf("%w: placed_at: %v", errMalformedEvent, err)
	}
	event.PlacedAt = placedAt
	return event, nil
}

func uuidField(fields map[string]*structpb.Value, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(fields[name].GetStringValue())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s: %v", errMalformedEvent, name, err)
	}
	return id, nil
}
