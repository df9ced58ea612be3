package orders

import (
	"context"
	"log"
	"time"
)

// EventPublisher sends a raw event payload to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// OutboxRelay forwards committed events from the outbox to the broker.
// A row is marked published only after a successful publish, so a broker
// outage delays delivery instead of losing it.
type OutboxRelay struct {
	repo      Repository
	publisher EventPublisher
	interval  time.Duration
	batch     int
}

func NewOutboxRelay(repo Repository, publisher EventPublisher, interval time.Duration, batch int) *OutboxRelay {
	if batch <= 0 {
		batch = 100
	}
	return &OutboxRelay{repo: repo, publisher: publisher, interval: interval, batch: batch}
}

// Run polls until the context is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RelayOnce(ctx); err != nil {
				log.Printf("Outbox relay pass failed: %v", err)
			}
		}
	}
}

// RelayOnce publishes one batch of pending events. The first publish failure
// stops the pass; remaining rows stay pending for the next tick.
func (r *OutboxRelay) RelayOnce(ctx context.Context) error {
	events, err := r.repo.FetchPendingEvents(ctx, r.batch)
	if err != nil {
		return err
	}

	for _, ev := range events {
		if err := r.publisher.Publish(ctx, ev.Payload); err != nil {
			log.Printf("Failed to publish outbox event %d (order %s): %v", ev.ID, ev.OrderID, err)
			return err
		}
		if err := r.repo.MarkPublished(ctx, ev.ID); err != nil {
			// Already published; a redundant redelivery on restart is
			// acceptable under at-least-once semantics.
			return err
		}
	}
	return nil
}
