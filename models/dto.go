package models

import (
	"time"
)

type CreateOrderRequest struct {
	CustomerID      string             `json:"customer_id" binding:"required"`
	ShippingAddress Address            `json:"shipping_address" binding:"required"`
	Items           []OrderItemRequest `json:"items" binding:"dive"`
}

type OrderItemRequest struct {
	ProductID   string  `json:"product_id" binding:"required"`
	ProductName string  `json:"product_name" binding:"required"`
	ImageURL    string  `json:"image_url"`
	Quantity    int     `json:"quantity" binding:"required,gt=0"`
	Price       float64 `json:"price" binding:"gte=0"`
}

type OrderResponse struct {
	ID              string            `json:"id"`
	CustomerID      string            `json:"customer_id"`
	ShippingAddress Address           `json:"shipping_address"`
	Status          string            `json:"status"`
	Total           float64           `json:"total"`
	CreatedAt       time.Time         `json:"created_at"`
	Items           []OrderItemDetail `json:"items"`
}

type OrderItemDetail struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	ImageURL    string  `json:"image_url,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Subtotal    float64 `json:"subtotal"`
}

// ToResponse maps an order to its read contract with derived totals.
func (o *Order) ToResponse() OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		ShippingAddress: o.ShippingAddress,
		Status:          o.Status,
		Total:           o.TotalPrice(),
		CreatedAt:       o.CreatedAt,
		Items:           make([]OrderItemDetail, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, OrderItemDetail{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ImageURL:    item.ImageURL,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Subtotal:    item.Subtotal(),
		})
	}
	return resp
}
