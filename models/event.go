package models

import (
	"strings"
	"time"
)

const EventTypeOrderCreated = "OrderCreated"

// OrderCreatedEvent is the integration event published after an order commits.
// It is an immutable fact; consumers must tolerate redelivery.
type OrderCreatedEvent struct {
	OrderID     string    `json:"order_id"`
	CustomerID  string    `json:"customer_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	TotalPrice  float64   `json:"total_price"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewOrderCreatedEvent derives the event from a committed order: first
// product id, comma-joined product names, summed quantity, derived total.
func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	event := OrderCreatedEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Quantity:   o.TotalQuantity(),
		TotalPrice: o.TotalPrice(),
		CreatedAt:  o.CreatedAt,
	}

	if len(o.Items) > 0 {
		event.ProductID = o.Items[0].ProductID
		names := make([]string, 0, len(o.Items))
		for _, item := range o.Items {
			names = append(names, item.ProductName)
		}
		event.ProductName = strings.Join(names, ", ")
	}

	return event
}
