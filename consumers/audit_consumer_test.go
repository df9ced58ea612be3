package consumers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/auditlog"
	"orderflow/models"
)

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

type fakeStore struct {
	records map[string]auditlog.Record
	failErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]auditlog.Record)}
}

func (s *fakeStore) Upsert(ctx context.Context, rec auditlog.Record) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.records[rec.OrderID+"/"+rec.EventType] = rec
	return nil
}

func (s *fakeStore) FindWindow(ctx context.Context, from, to time.Time) ([]auditlog.Record, error) {
	var out []auditlog.Record
	for _, rec := range s.records {
		if !rec.CreatedAt.Before(from) && rec.CreatedAt.Before(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func delivery(t *testing.T, ack amqp.Acknowledger, event models.OrderCreatedEvent) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func sampleEvent() models.OrderCreatedEvent {
	return models.OrderCreatedEvent{
		OrderID:     "order-1",
		CustomerID:  "customer-1",
		ProductID:   "p1",
		ProductName: "Mug, Plate",
		Quantity:    3,
		TotalPrice:  251.25,
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestProcessMessageStoresRecord(t *testing.T) {
	store := newFakeStore()
	consumer := NewAuditConsumer(store)
	ack := &fakeAcknowledger{}

	consumer.ProcessMessage(context.Background(), delivery(t, ack, sampleEvent()))

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	require.Len(t, store.records, 1)

	rec := store.records["order-1/OrderCreated"]
	assert.Equal(t, "order-1", rec.OrderID)
	assert.Equal(t, "customer-1", rec.CustomerID)
	assert.Equal(t, "p1", rec.ProductID)
	assert.Equal(t, "Mug, Plate", rec.ProductName)
	assert.Equal(t, "OrderCreated", rec.EventType)
	assert.Equal(t, 3, rec.Quantity)
	assert.Equal(t, 251.25, rec.TotalPrice)
	assert.Equal(t, sampleEvent().CreatedAt, rec.CreatedAt)
}

func TestProcessMessageDuplicateDelivery(t *testing.T) {
	store := newFakeStore()
	consumer := NewAuditConsumer(store)

	consumer.ProcessMessage(context.Background(), delivery(t, &fakeAcknowledger{}, sampleEvent()))
	consumer.ProcessMessage(context.Background(), delivery(t, &fakeAcknowledger{}, sampleEvent()))

	// Redelivery upserts the same key instead of appending a second record.
	assert.Len(t, store.records, 1)
}

func TestProcessMessageStoreFailureRequeues(t *testing.T) {
	store := newFakeStore()
	store.failErr = assert.AnError
	consumer := NewAuditConsumer(store)
	ack := &fakeAcknowledger{}

	consumer.ProcessMessage(context.Background(), delivery(t, ack, sampleEvent()))

	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)
	assert.Empty(t, store.records)
}

func TestProcessMessageMalformedPayload(t *testing.T) {
	store := newFakeStore()
	consumer := NewAuditConsumer(store)
	ack := &fakeAcknowledger{}

	consumer.ProcessMessage(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte("not-json"),
	})

	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "malformed payloads go to the DLQ, not back on the queue")
	assert.Empty(t, store.records)
}
