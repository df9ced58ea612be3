package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderflow/middlewares"
	"orderflow/models"
	"orderflow/orders"
)

type OrderController struct {
	service *orders.Service
}

func NewOrderController(service *orders.Service) *OrderController {
	return &OrderController{service: service}
}

func (o *OrderController) CreateOrder(c *gin.Context) {
	defer func() {
		success := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("create", success)
	}()

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orderID, err := o.service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, orders.ErrCustomerNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Customer not found"})
			return
		}
		log.Printf("Failed to create order: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order_id": orderID})
}

func (o *OrderController) ListOrders(c *gin.Context) {
	defer func() {
		success := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("list", success)
	}()

	orderList, err := o.service.ListOrders(c.Request.Context())
	if err != nil {
		log.Printf("Failed to list orders: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	responses := make([]models.OrderResponse, 0, len(orderList))
	for _, order := range orderList {
		responses = append(responses, order.ToResponse())
	}

	c.JSON(http.StatusOK, responses)
}

func (o *OrderController) GetOrderDetails(c *gin.Context) {
	defer func() {
		success := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("details", success)
	}()

	orderID := c.Param("id")

	order, err := o.service.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		log.Printf("Failed to get order %s: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, order.ToResponse())
}
