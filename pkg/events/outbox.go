package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/gavel-listings/pkg/database"
)

// OutboxStatus defines the status of an event in the outbox
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusPublished  OutboxStatus = "published"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// OutboxEvent is a domain event stored next to the state change that produced it
type OutboxEvent struct {
	ID          uuid.UUID    `db:"id"`
	EventType   string       `db:"event_type"`
	Payload     []byte       `db:"payload"`
	Status      OutboxStatus `db:"status"`
	CreatedAt   time.Time    `db:"created_at"`
	ProcessedAt *time.Time   `db:"processed_at"`
}

// OutboxWriter appends events inside the caller's transaction
type OutboxWriter interface {
	SaveEvent(ctx context.Context, tx pgx.Tx, event *OutboxEvent) error
}

// OutboxRepository is what the relay needs to drain the outbox
type OutboxRepository interface {
	GetPendingEvents(ctx context.Context, tx pgx.Tx, limit int) ([]*OutboxEvent, error)
	UpdateEventStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status OutboxStatus) error
}

// EventPublisher defines the interface for publishing events to a broker
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// RelayConfig tunes the polling loop
type RelayConfig struct {
	BatchSize int
	Interval  time.Duration
	Exchange  string
}

// OutboxRelay polls the outbox table and publishes pending events
type OutboxRelay struct {
	outboxRepo OutboxRepository
	publisher  EventPublisher
	txManager  database.TransactionManager
	cfg        RelayConfig
	logger     *slog.Logger
}

// NewOutboxRelay creates a new outbox relay. Zero config values fall back to
// a batch of 10, a one second interval and the default exchange.
func NewOutboxRelay(
	outboxRepo OutboxRepository,
	publisher EventPublisher,
	txManager database.TransactionManager,
	cfg RelayConfig,
	logger *slog.Logger,
) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	return &OutboxRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		txManager:  txManager,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run drains the outbox until ctx is cancelled
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("Error processing outbox batch", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessBatch publishes up to BatchSize pending events and returns how many
// were published. A publish failure rolls the whole batch back so the events
// stay pending for the next tick.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	tx, err := r.txManager.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	events, err := r.outboxRepo.GetPendingEvents(ctx, tx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	for _, event := range events {
		// Routing key is the event type
		if err := r.publisher.Publish(ctx, r.cfg.Exchange, event.EventType, event.Payload); err != nil {
			return 0, fmt.Errorf("failed to publish event %s: %w", event.ID, err)
		}
		if err := r.outboxRepo.UpdateEventStatus(ctx, tx, event.ID, OutboxStatusPublished); err != nil {
			return 0, fmt.Errorf("failed to update event status %s: %w", event.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("Published outbox events", "count", len(events))
	return len(events), nil
}
