package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventory-sync-service/config"
	"inventory-sync-service/internal/api"
	"inventory-sync-service/internal/broker"
	"inventory-sync-service/internal/detector"
	"inventory-sync-service/internal/redisclient"
	"inventory-sync-service/internal/scheduler"
	"inventory-sync-service/internal/service"
	"inventory-sync-service/internal/store"
	"inventory-sync-service/internal/util"
	"inventory-sync-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting inventory sync service")

	tp, err := util.InitTracer("inventory-sync-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	stuckTimeout := time.Duration(cfg.Sync.StuckRunTimeoutSeconds) * time.Second

	var locker service.Locker
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, stuckTimeout)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		locker = redisClient
		log.Println("Redis connected, distributed run lock enabled")
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventoryEvent)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	det := detector.New(detector.Config{
		PriceEpsilon:      cfg.Sync.PriceEpsilon,
		LowStockThreshold: cfg.Sync.LowStockThreshold,
	})

	provider := service.NewHTTPProvider(
		cfg.Sync.ProviderBaseURL,
		time.Duration(cfg.Sync.ProviderTimeoutSeconds)*time.Second,
	)

	orchestrator := service.NewOrchestrator(db, det, provider, eventPublisher, locker)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	syncScheduler := scheduler.New(
		orchestrator,
		db,
		cfg.Sync.SupplierIDs,
		time.Duration(cfg.Sync.IntervalSeconds)*time.Second,
		stuckTimeout,
	)
	go func() {
		if err := syncScheduler.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	requestConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSyncRequests, cfg.Kafka.ConsumerGroup)
	requestWorker := worker.NewSyncRequestWorker(requestConsumer, orchestrator)
	go func() {
		if err := requestWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Sync request worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(orchestrator, db)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	requestWorker.Stop()

	log.Println("Server exited")
}
