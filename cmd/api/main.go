package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/resume-agent/backend/internal/api/handlers"
	"github.com/resume-agent/backend/internal/compose"
	"github.com/resume-agent/backend/internal/content"
	"github.com/resume-agent/backend/internal/conversation"
	"github.com/resume-agent/backend/internal/delivery"
	"github.com/resume-agent/backend/internal/ingestion"
	"github.com/resume-agent/backend/internal/jd"
	"github.com/resume-agent/backend/internal/keywords"
	"github.com/resume-agent/backend/internal/llm"
	"github.com/resume-agent/backend/internal/metrics"
	"github.com/resume-agent/backend/internal/middleware/ratelimit"
	"github.com/resume-agent/backend/internal/middleware/security"
	"github.com/resume-agent/backend/internal/middleware/validation"
	"github.com/resume-agent/backend/internal/review"
	"github.com/resume-agent/backend/internal/scoring"
	"github.com/resume-agent/backend/internal/session"
	sessionredis "github.com/resume-agent/backend/internal/session/redis"
	"github.com/resume-agent/backend/internal/storage/sqlite"
	"github.com/resume-agent/backend/pkg/config"
	appLogger "github.com/resume-agent/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Resume Review Agent API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	extractor := keywords.NewExtractor()
	contentStore := content.NewStore(extractor)

	processor := ingestion.NewProcessor(sqliteClient, contentStore)
	err = processor.EnsureDefaultContent(context.Background())
	if err != nil {
		appLogger.Fatal("Failed to seed default content", zap.Error(err))
	}

	var sessionStore session.Store
	redisStore, err := sessionredis.NewStore(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		appLogger.Warn("Redis unavailable, falling back to in-memory sessions", zap.Error(err))
		sessionStore = session.NewMemoryStore()
	} else {
		sessionStore = redisStore
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)
	if llmClient == nil {
		appLogger.Warn("LLM API key not set, reviews will use template narratives only")
	}

	var sender conversation.Sender
	if cfg.Delivery.AccountSID != "" && cfg.Delivery.AuthToken != "" {
		twilioSender := delivery.NewTwilioSender(cfg.Delivery.AccountSID, cfg.Delivery.AuthToken, cfg.Delivery.FromNumber)
		if cfg.Delivery.BaseURL != "" {
			twilioSender.SetBaseURL(cfg.Delivery.BaseURL)
		}
		sender = twilioSender
	} else {
		appLogger.Warn("Twilio credentials not set, outbound messages will be logged only")
		sender = delivery.LogSender{}
	}

	scorer := scoring.NewScorer(extractor, contentStore, cfg.Scoring.MaxChunks)
	composer := compose.NewComposer(cfg.Conversation.MaxMessageChars)

	machine := conversation.NewMachine(conversation.Config{
		RateCap:          cfg.Conversation.RateCap,
		RateWindow:       time.Duration(cfg.Conversation.RateWindowHours) * time.Hour,
		InactivityWindow: time.Duration(cfg.Conversation.InactivityMinutes) * time.Minute,
	}, contentStore.Label)

	engine := conversation.NewEngine(sessionStore, machine, composer, sender, sqliteClient)

	fetcher := jd.NewFetcher(time.Duration(cfg.JobParser.TimeoutSec) * time.Second)
	textExtractor := review.NewHTTPTextExtractor(time.Duration(cfg.JobParser.TimeoutSec) * time.Second)

	reviewService := review.NewService(scorer, contentStore, textExtractor, fetcher, llmClient, sqliteClient, engine)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 60,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	webhookHandler := handlers.NewWebhookHandler(reviewService, engine, composer, sender)
	reviewHandler := handlers.NewReviewHandler(reviewService, sqliteClient)
	newsletterHandler := handlers.NewNewsletterHandler(processor)
	sessionHandler := handlers.NewSessionHandler(sessionStore)
	wsHandler := handlers.NewWebSocketHandler(reviewService, engine)

	api := app.Group("/api/v1")

	api.Post("/webhook/whatsapp", webhookHandler.HandleWhatsApp)

	api.Post("/reviews", reviewHandler.HandleReview)
	api.Get("/reviews/history", reviewHandler.GetReviewHistory)

	api.Post("/newsletter/articles", newsletterHandler.UploadArticle)

	api.Get("/sessions/:id", sessionHandler.GetSession)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		if contentStore.Len() == 0 {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "content not loaded",
			})
		}
		return c.JSON(fiber.Map{
			"status": "ready",
			"chunks": contentStore.Len(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/console", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
