package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"orderflow/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateOrder(ctx context.Context, order *models.Order, event models.OrderCreatedEvent) error {
	args := m.Called(ctx, order, event)
	return args.Error(0)
}

func (m *MockRepository) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockRepository) ListOrders(ctx context.Context) ([]*models.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *MockRepository) FetchPendingEvents(ctx context.Context, limit int) ([]OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]OutboxEvent), args.Error(1)
}

func (m *MockRepository) MarkPublished(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type stubVerifier struct {
	exists bool
	calls  int
}

func (s *stubVerifier) Exists(ctx context.Context, customerID string) bool {
	s.calls++
	return s.exists
}

func validRequest() models.CreateOrderRequest {
	return models.CreateOrderRequest{
		CustomerID: "customer-1",
		ShippingAddress: models.Address{
			AddressLine: "1 Main St",
			City:        "Istanbul",
			Country:     "TR",
			CityCode:    34,
		},
		Items: []models.OrderItemRequest{
			{ProductID: "p1", ProductName: "Mug", Quantity: 2, Price: 100.50},
			{ProductID: "p2", ProductName: "Plate", Quantity: 1, Price: 50.25},
		},
	}
}

func TestCreateOrderSuccess(t *testing.T) {
	repo := new(MockRepository)
	verifier := &stubVerifier{exists: true}
	svc := NewService(repo, verifier)

	repo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	orderID, err := svc.CreateOrder(context.Background(), validRequest())

	assert.NoError(t, err)
	assert.NotEmpty(t, orderID)
	repo.AssertNumberOfCalls(t, "CreateOrder", 1)

	order := repo.Calls[0].Arguments.Get(1).(*models.Order)
	event := repo.Calls[0].Arguments.Get(2).(models.OrderCreatedEvent)

	assert.Equal(t, orderID, order.ID)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, 251.25, order.TotalPrice())
	assert.Equal(t, orderID, event.OrderID)
	assert.Equal(t, "customer-1", event.CustomerID)
	assert.Equal(t, "p1", event.ProductID)
	assert.Equal(t, "Mug, Plate", event.ProductName)
	assert.Equal(t, 3, event.Quantity)
	assert.Equal(t, 251.25, event.TotalPrice)
	assert.Equal(t, order.CreatedAt, event.CreatedAt)
}

func TestCreateOrderCustomerNotFound(t *testing.T) {
	repo := new(MockRepository)
	verifier := &stubVerifier{exists: false}
	svc := NewService(repo, verifier)

	orderID, err := svc.CreateOrder(context.Background(), validRequest())

	assert.ErrorIs(t, err, ErrCustomerNotFound)
	assert.Empty(t, orderID)
	assert.Equal(t, 1, verifier.calls)
	// Hard gate: no persistence, no event.
	repo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrderEmptyItems(t *testing.T) {
	repo := new(MockRepository)
	verifier := &stubVerifier{exists: true}
	svc := NewService(repo, verifier)

	repo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	req := validRequest()
	req.Items = nil

	orderID, err := svc.CreateOrder(context.Background(), req)

	assert.NoError(t, err)
	assert.NotEmpty(t, orderID)

	order := repo.Calls[0].Arguments.Get(1).(*models.Order)
	event := repo.Calls[0].Arguments.Get(2).(models.OrderCreatedEvent)
	assert.Empty(t, order.Items)
	assert.Equal(t, 0.0, order.TotalPrice())
	assert.Zero(t, event.Quantity)
	assert.Zero(t, event.TotalPrice)
}

func TestCreateOrderPersistenceFailure(t *testing.T) {
	repo := new(MockRepository)
	verifier := &stubVerifier{exists: true}
	svc := NewService(repo, verifier)

	repo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	orderID, err := svc.CreateOrder(context.Background(), validRequest())

	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, orderID)
}
