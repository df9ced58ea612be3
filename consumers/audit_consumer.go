package consumers

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"orderflow/auditlog"
	"orderflow/middlewares"
	"orderflow/models"
	"orderflow/rabbitmq"
)

// AuditConsumer projects OrderCreated events into the audit log store.
type AuditConsumer struct {
	store auditlog.Store
}

func NewAuditConsumer(store auditlog.Store) *AuditConsumer {
	return &AuditConsumer{store: store}
}

// Start consumes the audit queue until the context is cancelled or the
// delivery channel closes.
func (c *AuditConsumer) Start(ctx context.Context, rmq *rabbitmq.RabbitMQ) error {
	msgs, err := rmq.Consume(rmq.Cfg.AuditQueue, "audit-worker")
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Printf("Audit delivery channel closed")
					return
				}
				c.ProcessMessage(ctx, msg)
			}
		}
	}()

	return nil
}

// ProcessMessage handles one delivery. The audit log write is the whole unit
// of work: the message is acked only after the record is stored. A store
// failure nacks with requeue so the broker redelivers; a payload that cannot
// be decoded is nacked without requeue and lands in the dead-letter queue.
func (c *AuditConsumer) ProcessMessage(ctx context.Context, msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in audit processing: %v", r)
		}
	}()

	var event models.OrderCreatedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("Invalid order created payload: %v", err)
		middlewares.RecordAuditEvent("dead_lettered")
		if err := msg.Nack(false, false); err != nil {
			log.Printf("Failed to nack malformed message: %v", err)
		}
		return
	}

	log.Printf("Processing order created event: order=%s customer=%s", event.OrderID, event.CustomerID)

	rec := auditlog.NewRecord(event)
	if err := c.store.Upsert(ctx, rec); err != nil {
		log.Printf("Failed to store audit record for order %s: %v", event.OrderID, err)
		middlewares.RecordAuditEvent("requeued")
		if err := msg.Nack(false, true); err != nil {
			log.Printf("Failed to nack message: %v", err)
		}
		return
	}

	middlewares.RecordAuditEvent("stored")
	if err := msg.Ack(false); err != nil {
		log.Printf("Failed to ack message for order %s: %v", event.OrderID, err)
	}
}
