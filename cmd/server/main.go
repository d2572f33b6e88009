package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkarpov/adboard-backend/internal/api"
	"github.com/mkarpov/adboard-backend/internal/config"
	"github.com/mkarpov/adboard-backend/internal/handler"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/kafka"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/observability"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/redis"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/storage"
	"github.com/mkarpov/adboard-backend/internal/repository/mongodb"
	core "github.com/mkarpov/adboard-backend/internal/repository/postgres"
	service "github.com/mkarpov/adboard-backend/internal/services"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	observability.InitLogger()
	observability.InitMetrics()
	tracerShutdown := observability.InitTracing("adboard-backend")
	defer tracerShutdown(context.Background())

	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping Postgres: %v", err)
	}

	mongoCtx, mongoCancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoURI))
	mongoCancel()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())

	fileStorage, err := storage.NewMinioStorage(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket)
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}

	userRepo := core.NewPostgresUserRepository(db)
	adRepo := core.NewPostgresAdvertisementRepository(db)
	transactionRepo := core.NewPostgresTransactionRepository(db)
	descriptionRepo := mongodb.NewDescriptionRepository(mongoClient.Database(cfg.MongoDatabase))
	redisClient := redis.NewClient(cfg.RedisAddr)
	defer redisClient.Close()
	kafkaProducer := kafka.NewProducer(cfg.KafkaBrokers)
	defer kafkaProducer.Close()

	trigger := service.NewPromotionTrigger(adRepo)
	authService := service.NewAuthService(userRepo, redisClient, cfg.JWTSecret)
	if err := authService.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}
	walletService := service.NewWalletService(userRepo, redisClient)
	promotionService := service.NewPromotionService(transactionRepo, adRepo, trigger, kafkaProducer)
	advertisementService := service.NewAdvertisementService(adRepo, descriptionRepo, fileStorage, redisClient)

	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	promotionConsumer := kafka.NewConsumer(cfg.KafkaBrokers, "adboard-promotions", adRepo)
	go promotionConsumer.Consume(consumerCtx)
	defer promotionConsumer.Close()
	defer consumerCancel()

	h := handler.NewHandler(authService, walletService, promotionService, advertisementService)
	router := api.SetupRouter(h, redisClient, cfg.JWTSecret)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
