package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orderflow/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OutboxEvent is a serialized integration event awaiting relay to the broker.
type OutboxEvent struct {
	ID      int64
	OrderID string
	Payload []byte
}

// Repository is the durable order store plus the event outbox.
type Repository interface {
	// CreateOrder persists the order, its items and the given integration
	// event in a single transaction.
	CreateOrder(ctx context.Context, order *models.Order, event models.OrderCreatedEvent) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)

	FetchPendingEvents(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkPublished(ctx context.Context, id int64) error
}

type mysqlRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &mysqlRepository{db: db}
}

func (r *mysqlRepository) CreateOrder(ctx context.Context, order *models.Order, event models.OrderCreatedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order created event: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, address_line, city, country, city_code, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.CustomerID,
		order.ShippingAddress.AddressLine, order.ShippingAddress.City,
		order.ShippingAddress.Country, order.ShippingAddress.CityCode,
		order.Status, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, image_url, quantity, price)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			order.ID, item.ProductID, item.ProductName, item.ImageURL, item.Quantity, item.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	// The outbox row rides the same transaction as the order, so a committed
	// order always has its event queued even if the broker is down.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox (order_id, payload, created_at) VALUES (?, ?, ?)`,
		order.ID, payload, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *mysqlRepository) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, address_line, city, country, city_code, status, created_at
		 FROM orders WHERE id = ?`, orderID,
	).Scan(
		&order.ID, &order.CustomerID,
		&order.ShippingAddress.AddressLine, &order.ShippingAddress.City,
		&order.ShippingAddress.Country, &order.ShippingAddress.CityCode,
		&order.Status, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("query order: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, product_name, image_url, quantity, price
		 FROM order_items WHERE order_id = ? ORDER BY id ASC`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.ImageURL, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return &order, nil
}

func (r *mysqlRepository) ListOrders(ctx context.Context) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.customer_id, o.address_line, o.city, o.country, o.city_code, o.status, o.created_at,
		       oi.product_id, oi.product_name, oi.image_url, oi.quantity, oi.price
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		ORDER BY o.created_at DESC, oi.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	ordersMap := make(map[string]*models.Order)
	ordered := make([]*models.Order, 0)

	for rows.Next() {
		var (
			order       models.Order
			productID   sql.NullString
			productName sql.NullString
			imageURL    sql.NullString
			quantity    sql.NullInt64
			price       sql.NullFloat64
		)
		if err := rows.Scan(
			&order.ID, &order.CustomerID,
			&order.ShippingAddress.AddressLine, &order.ShippingAddress.City,
			&order.ShippingAddress.Country, &order.ShippingAddress.CityCode,
			&order.Status, &order.CreatedAt,
			&productID, &productName, &imageURL, &quantity, &price,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		existing, ok := ordersMap[order.ID]
		if !ok {
			existing = &order
			ordersMap[order.ID] = existing
			ordered = append(ordered, existing)
		}

		if productID.Valid {
			existing.Items = append(existing.Items, models.OrderItem{
				ProductID:   productID.String,
				ProductName: productName.String,
				ImageURL:    imageURL.String,
				Quantity:    int(quantity.Int64),
				Price:       price.Float64,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return ordered, nil
}

func (r *mysqlRepository) FetchPendingEvents(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, payload FROM outbox
		 WHERE published_at IS NULL ORDER BY id ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *mysqlRepository) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET published_at = ? WHERE id = ?`, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox event published: %w", err)
	}
	return nil
}
