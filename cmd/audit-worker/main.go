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
	"github.com/redis/go-redis/v9"

	"orderflow/auditlog"
	"orderflow/config"
	"orderflow/consumers"
	"orderflow/notifier"
	"orderflow/rabbitmq"
	"orderflow/reporting"
)

func main() {
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	mongoClient, err := auditlog.Connect(connectCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("MongoDB initialization failed: %v", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongoClient.Disconnect(disconnectCtx)
	}()

	if err := auditlog.EnsureIndexes(ctx, mongoClient, cfg); err != nil {
		log.Fatalf("Audit log index creation failed: %v", err)
	}
	store := auditlog.NewMongoStore(mongoClient, cfg)

	rmq, err := rabbitmq.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("RabbitMQ initialization failed: %v", err)
	}
	defer rmq.Close()

	if err := rmq.SetupTopology(); err != nil {
		log.Fatalf("Failed to setup RabbitMQ topology: %v", err)
	}

	consumer := consumers.NewAuditConsumer(store)
	if err := consumer.Start(ctx, rmq); err != nil {
		log.Fatalf("Failed to start audit consumer: %v", err)
	}
	log.Printf("Audit consumer listening on queue %s", cfg.AuditQueue)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	mailer := notifier.NewEmailNotifier(cfg)
	reporter := reporting.NewReporter(store, mailer, cfg.ReportWindow)
	scheduler := reporting.NewScheduler(reporter, reporting.NewRedisLocker(redisClient), cfg.ReportCron, cfg.ReportLease)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start report scheduler: %v", err)
	}
	defer scheduler.Stop()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.WorkerPort,
		Handler: r,
	}

	go func() {
		log.Printf("Audit worker starting on port %s", cfg.WorkerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start worker server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down audit worker")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Worker shutdown error: %v", err)
	}
}
