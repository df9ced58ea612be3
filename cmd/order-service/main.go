package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orderflow/clients"
	"orderflow/config"
	"orderflow/controllers"
	"orderflow/database"
	"orderflow/middlewares"
	"orderflow/orders"
	"orderflow/rabbitmq"
)

func main() {
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	rmq, err := rabbitmq.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("RabbitMQ initialization failed: %v", err)
	}
	defer rmq.Close()

	if err := rmq.SetupTopology(); err != nil {
		log.Fatalf("Failed to setup RabbitMQ topology: %v", err)
	}

	repo := orders.NewRepository(db)
	customerClient := clients.NewCustomerClient(cfg)
	service := orders.NewService(repo, customerClient)

	relay := orders.NewOutboxRelay(repo, rmq, cfg.OutboxInterval, cfg.OutboxBatch)
	go relay.Run(ctx)

	controller := controllers.NewOrderController(service)

	r := gin.Default()
	r.Use(middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/api")
	authGroup.Use(middlewares.AuthMiddleware(cfg.JWTSecret))
	{
		authGroup.POST("/orders", controller.CreateOrder)
		authGroup.GET("/orders", controller.ListOrders)
		authGroup.GET("/orders/:id", controller.GetOrderDetails)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	go func() {
		log.Printf("Order service starting on port %s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down order service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
