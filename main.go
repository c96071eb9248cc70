package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/exam-session-service/internal/config"
	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/handlers"
	"github.com/SAP-F-2025/exam-session-service/internal/proctor"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/session"
	"github.com/SAP-F-2025/exam-session-service/internal/store"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
	"github.com/SAP-F-2025/exam-session-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Failed to initialize Redis, drafts will not survive restarts", "error", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		CasdoorConfig: casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		},
	})

	// Initialize validator
	v := validator.New()

	// Initialize services
	examService := services.NewExamService(repo, logger, v)
	exportService := services.NewExportService(examService, logger)

	// Draft storage: Redis when available, in-memory otherwise
	var kv store.DurableKeyValueStore
	if redisClient != nil {
		kv = store.NewRedisStore(redisClient, "session-svc:draft:")
	} else {
		kv = store.NewMemoryStore()
	}
	drafts := session.NewDraftStore(kv, logger)

	// Event publishing (optional)
	var publisher events.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = events.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Warn("Failed to initialize Kafka publisher, events disabled", "error", err)
			publisher = nil
		}
	}

	// Proctoring (optional): frames are relayed from clients to the
	// classifier service
	var relay *proctor.FrameRelay
	var device session.MediaDevice
	var classifier session.AnomalyClassifier
	if cfg.ProctorClassifierURL != "" {
		relay = proctor.NewFrameRelay(logger)
		device = relay
		classifier = proctor.NewHTTPClassifier(cfg.ProctorClassifierURL, logger)
	}

	// Session manager: connectivity is judged by reachability of the
	// backing database
	manager := session.NewManager(session.Dependencies{
		ExamService: examService,
		Drafts:      drafts,
		Probe: session.ProbeFunc(func(ctx context.Context) bool {
			return repo.Ping(ctx) == nil
		}),
		Device:          device,
		Classifier:      classifier,
		Events:          publisher,
		Logger:          logger,
		MonitorInterval: cfg.MonitorInterval,
	})

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(
		manager,
		examService,
		exportService,
		relay,
		v,
		logger,
		cfg.Casdoor,
		repo.User(),
	)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Stop live sessions; drafts and deadlines stay in storage so
	// students can resume after restart
	manager.Shutdown()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if err := repo.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close Redis", "error", err)
		}
	}

	logger.Info("Server exited")
}
