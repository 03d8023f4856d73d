package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/config"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/database"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/handler"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/middleware"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/models"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/queue"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/repository"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/router"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/service"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Assignment{}, &models.Submission{}, &models.Feedback{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
	}

	provider, err := ai.NewProvider(ai.FactoryConfig{
		Provider:  cfg.AIProvider,
		APIKey:    cfg.OpenAIAPIKey,
		BaseURL:   cfg.OpenAIBaseURL,
		Model:     cfg.AIModel,
		MaxTokens: cfg.AIMaxTokens,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("failed to create ai provider: %v", err)
	}

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	gradingService := service.NewGradingService(assignmentRepo, provider, logger)
	feedbackService := service.NewFeedbackService(feedbackRepo, logger)

	store := buildStore(cfg, redisClient)
	jobQueue := queue.New(store, submissionRepo, feedbackRepo, gradingService, natsConn, queue.Config{
		Workers:     cfg.QueueWorkers,
		MaxAttempts: cfg.QueueMaxAttempts,
		BackoffBase: cfg.QueueBackoffBase,
	}, logger)
	jobQueue.Start(context.Background())

	queueHandler := handler.NewQueueHandler(jobQueue, logger)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		QueueHandler:    queueHandler,
		FeedbackHandler: feedbackHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, jobQueue, natsConn, redisClient, cfg.ShutdownGrace, logger)
}

func buildStore(cfg config.Config, redisClient *redis.Client) queue.Store {
	if cfg.QueueBackend == "redis" {
		return queue.NewRedisStore(redisClient, "")
	}
	return queue.NewMemoryStore(0)
}

// waitForShutdown drains the system on SIGINT/SIGTERM: stop accepting HTTP
// traffic, let in-flight grading jobs finish within the grace period, then
// release broker and store connections.
func waitForShutdown(app *fiber.App, jobQueue *queue.Queue, natsConn *nats.Conn, redisClient *redis.Client, grace time.Duration, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutdown signal received, draining")

	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelHTTP()
	if err := app.ShutdownWithContext(httpCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), grace)
	defer cancelDrain()
	if err := jobQueue.Shutdown(drainCtx); err != nil {
		logger.Error().Err(err).Msg("queue drain incomplete")
	}

	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			logger.Warn().Err(err).Msg("failed to drain nats connection")
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}

	logger.Info().Msg("server stopped")
}
