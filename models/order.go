package models

import (
	"time"
)

// StatusPending is the sole order state in scope; every created order
// starts and stays here.
const StatusPending = "pending"

// Address is the shipping address embedded in an order.
type Address struct {
	AddressLine string `json:"address_line"`
	City        string `json:"city" binding:"required"`
	Country     string `json:"country" binding:"required"`
	CityCode    int    `json:"city_code"`
}

type Order struct {
	ID              string      `json:"id"`
	CustomerID      string      `json:"customer_id"`
	ShippingAddress Address     `json:"shipping_address"`
	Status          string      `json:"status"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"created_at"`
}

type OrderItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	ImageURL    string  `json:"image_url,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

func (i OrderItem) Subtotal() float64 {
	return float64(i.Quantity) * i.Price
}

// TotalPrice is always derived from the line items, never stored on its own.
func (o *Order) TotalPrice() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}

func (o *Order) TotalQuantity() int {
	var total int
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}
