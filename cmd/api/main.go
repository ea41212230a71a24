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
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/helpbot/backend/internal/api/handlers"
	"github.com/helpbot/backend/internal/cache/redis"
	"github.com/helpbot/backend/internal/engine"
	"github.com/helpbot/backend/internal/metrics"
	"github.com/helpbot/backend/internal/storage/sqlite"
	"github.com/helpbot/backend/pkg/config"
	appLogger "github.com/helpbot/backend/pkg/logger"
	"github.com/helpbot/backend/pkg/retry"
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

	appLogger.Info("Starting helpbot API server")
	metrics.Init()

	store, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer store.Close()

	if err := store.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	seedKnowledgeBase(store, cfg.SQLite.SeedCSV)

	var cache engine.PopularCache
	if cfg.Redis.Enabled {
		var redisClient *redis.Client
		retryCfg := retry.DefaultConfig()
		retryCfg.Logger = appLogger.Log
		err := retry.Do(context.Background(), retryCfg, func() error {
			var connErr error
			redisClient, connErr = redis.NewClient(
				cfg.Redis.Host,
				cfg.Redis.Port,
				cfg.Redis.Password,
				cfg.Redis.DB,
				time.Duration(cfg.Redis.TTLSec)*time.Second,
			)
			return connErr
		})
		if err != nil {
			appLogger.Warn("Redis unavailable, running without popular-list cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			cache = redisClient
		}
	}

	eng := engine.New(store, cache, engine.Options{
		RateLimit:      cfg.Engine.RateLimit,
		RateWindow:     time.Duration(cfg.Engine.RateWindowSec) * time.Second,
		PerPage:        cfg.Engine.PerPage,
		MatchThreshold: cfg.Engine.MatchThreshold,
		PopularLimit:   cfg.Engine.PopularLimit,
		HelpListLimit:  cfg.Engine.HelpListLimit,
	}, appLogger.Log)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	chatHandler := handlers.NewChatHandler(eng)
	knowledgeHandler := handlers.NewKnowledgeHandler(eng, store)
	wsHandler := handlers.NewWebSocketHandler(eng)

	api := app.Group("/api/v1/chatbot")

	api.Post("/chat", chatHandler.HandleChat)
	api.Post("/feedback", chatHandler.HandleFeedback)
	api.Get("/top-questions", knowledgeHandler.TopQuestions)
	api.Get("/answer/:id", knowledgeHandler.Answer)
	api.Get("/analytics", knowledgeHandler.Analytics)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.Handler())

	app.Get("/api/v1/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

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

// seedKnowledgeBase imports the CSV seed only when the questions table
// is empty, so restarts never duplicate records.
func seedKnowledgeBase(store *sqlite.Client, csvPath string) {
	ctx := context.Background()

	count, err := store.CountRecords(ctx)
	if err != nil {
		appLogger.Fatal("Failed to count knowledge records", zap.Error(err))
	}
	if count > 0 {
		return
	}

	if _, err := os.Stat(csvPath); os.IsNotExist(err) {
		appLogger.Warn("Seed CSV not found, starting with an empty knowledge base",
			zap.String("path", csvPath),
		)
		return
	}

	inserted, err := store.ImportCSV(ctx, csvPath)
	if err != nil {
		appLogger.Fatal("Failed to seed knowledge base", zap.Error(err))
	}
	appLogger.Info("Knowledge base seeded",
		zap.String("path", csvPath),
		zap.Int("records", inserted),
	)
}
