package auditlog

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"orderflow/config"
	"orderflow/models"
)

// Record is the append-only audit projection of an OrderCreated event.
type Record struct {
	ID          string    `bson:"_id,omitempty"`
	OrderID     string    `bson:"order_id"`
	CustomerID  string    `bson:"customer_id"`
	ProductID   string    `bson:"product_id"`
	ProductName string    `bson:"product_name"`
	EventType   string    `bson:"event_type"`
	Quantity    int       `bson:"quantity"`
	TotalPrice  float64   `bson:"total_price"`
	CreatedAt   time.Time `bson:"created_at"`
}

// NewRecord maps an integration event 1:1 into an audit record.
func NewRecord(event models.OrderCreatedEvent) Record {
	return Record{
		OrderID:     event.OrderID,
		CustomerID:  event.CustomerID,
		ProductID:   event.ProductID,
		ProductName: event.ProductName,
		EventType:   models.EventTypeOrderCreated,
		Quantity:    event.Quantity,
		TotalPrice:  event.TotalPrice,
		CreatedAt:   event.CreatedAt,
	}
}

// Store persists audit records and serves time-window queries.
type Store interface {
	// Upsert writes the record keyed by (order_id, event_type), so a
	// redelivered event overwrites its own record instead of duplicating it.
	Upsert(ctx context.Context, rec Record) error
	// FindWindow returns records with created_at in [from, to).
	FindWindow(ctx context.Context, from, to time.Time) ([]Record, error)
}

type mongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(client *mongo.Client, cfg *config.Config) Store {
	return &mongoStore{
		collection: client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection),
	}
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureIndexes backs the dedup key and the report window query.
func EnsureIndexes(ctx context.Context, client *mongo.Client, cfg *config.Config) error {
	collection := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_id", Value: 1}, {Key: "event_type", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create audit log indexes: %w", err)
	}
	return nil
}

func (s *mongoStore) Upsert(ctx context.Context, rec Record) error {
	filter := bson.M{"order_id": rec.OrderID, "event_type": rec.EventType}
	update := bson.M{"$set": bson.M{
		"order_id":     rec.OrderID,
		"customer_id":  rec.CustomerID,
		"product_id":   rec.ProductID,
		"product_name": rec.ProductName,
		"event_type":   rec.EventType,
		"quantity":     rec.Quantity,
		"total_price":  rec.TotalPrice,
		"created_at":   rec.CreatedAt,
	}}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert audit record: %w", err)
	}
	return nil
}

func (s *mongoStore) FindWindow(ctx context.Context, from, to time.Time) ([]Record, error) {
	filter := bson.M{"created_at": bson.M{"$gte": from, "$lt": to}}

	cursor, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query audit window: %w", err)
	}
	defer cursor.Close(ctx)

	var records []Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode audit records: %w", err)
	}
	return records, nil
}
