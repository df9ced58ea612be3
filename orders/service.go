package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"orderflow/models"
)

// ErrCustomerNotFound is the business rejection for an order against an
// unknown (or unverifiable, under fail-closed) customer.
var ErrCustomerNotFound = errors.New("customer not found")

// CustomerVerifier reports whether a customer id exists.
type CustomerVerifier interface {
	Exists(ctx context.Context, customerID string) bool
}

// Service orchestrates order creation: verify customer, persist order plus
// its integration event transactionally, and hand off publication to the
// outbox relay.
type Service struct {
	repo     Repository
	customer CustomerVerifier
}

func NewService(repo Repository, customer CustomerVerifier) *Service {
	return &Service{repo: repo, customer: customer}
}

// CreateOrder returns the generated order id. The customer check is a hard
// gate: when it reports false, nothing is persisted and nothing is published.
// An empty item list is accepted and yields a zero-total order.
func (s *Service) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (string, error) {
	if !s.customer.Exists(ctx, req.CustomerID) {
		return "", ErrCustomerNotFound
	}

	order := &models.Order{
		ID:              uuid.New().String(),
		CustomerID:      req.CustomerID,
		ShippingAddress: req.ShippingAddress,
		Status:          models.StatusPending,
		CreatedAt:       time.Now(),
		Items:           make([]models.OrderItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ImageURL:    item.ImageURL,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}

	event := models.NewOrderCreatedEvent(order)

	if err := s.repo.CreateOrder(ctx, order, event); err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}

	return order.ID, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}

func (s *Service) ListOrders(ctx context.Context) ([]*models.Order, error) {
	return s.repo.ListOrders(ctx)
}
