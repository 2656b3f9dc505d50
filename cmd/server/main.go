package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/drip-forwarder/internal/api"
	"github.com/ignite/drip-forwarder/internal/condition"
	"github.com/ignite/drip-forwarder/internal/config"
	"github.com/ignite/drip-forwarder/internal/connection"
	"github.com/ignite/drip-forwarder/internal/credentials"
	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/drip"
	"github.com/ignite/drip-forwarder/internal/feed"
	"github.com/ignite/drip-forwarder/internal/notes"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
	"github.com/ignite/drip-forwarder/internal/repository/postgres"
)

func main() {
	configPath := "config/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.Redact())

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Failed to connect to database: %v", err)
	}
	pingCancel()
	logger.Info("database connected")

	// Connection-status cache: Redis when configured, in-process otherwise
	var redisClient *redis.Client
	var statusCache connection.StatusCache = connection.NewMemoryCache()
	if cfg.Connection.Cache == "redis" && cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		statusCache = connection.NewRedisCache(redisClient)
		logger.Info("connection cache: redis", "addr", cfg.Redis.Addr)
	} else {
		logger.Info("connection cache: memory")
	}

	// Repositories
	settingsRepo := postgres.NewSettingsRepo(db)
	feedRepo := postgres.NewFeedRepo(db)
	noteRepo := postgres.NewNoteRepo(db)
	feedErrorRepo := postgres.NewFeedErrorRepo(db)

	// Drip client and credential plumbing
	dripClient := drip.NewClient(cfg.Drip)
	store := credentials.NewStore(settingsRepo)
	validator := connection.NewValidator(dripClient, statusCache, cfg.Connection)
	initializer := connection.NewInitializer(store, validator)
	catalog := drip.NewCatalog(dripClient, store, cfg.Drip.CatalogTTL())
	store.Subscribe(validator)
	store.Subscribe(initializer)
	store.Subscribe(catalog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seeded, err := store.Seed(ctx, domain.Credentials{APIToken: cfg.Drip.APIToken, AccountID: cfg.Drip.AccountID})
	if err != nil {
		logger.Error("seeding settings from config failed", "error", err)
	} else if seeded {
		logger.Info("settings seeded from config")
	}

	renderer, err := notes.NewRenderer(cfg.Notes)
	if err != nil {
		log.Fatalf("Failed to parse note templates: %v", err)
	}

	processor := feed.NewProcessor(feed.Dependencies{
		Feeds:       feedRepo,
		Credentials: store,
		Conditions:  condition.NewEvaluator(),
		Sender:      dripClient,
		Errors:      feedErrorRepo,
		Notes:       noteRepo,
		Formatter:   renderer,
	})

	var background api.BackgroundTask
	if interval := cfg.Drip.CatalogRefresh(); interval > 0 {
		go catalog.Start(ctx, interval)
		background = catalog
	}

	handlers := api.NewHandlers(api.Services{
		Processor:   processor,
		Settings:    store,
		Tester:      validator,
		Feedback:    connection.NewFeedbackService(store, validator),
		Initializer: initializer,
		Choices:     connection.NewChoiceService(initializer, store, catalog),
		Feeds:       feed.NewService(feedRepo),
		Notes:       noteRepo,
		FeedErrors:  feedErrorRepo,
	})

	var health *api.HealthChecker
	if redisClient != nil {
		health = api.NewHealthChecker(db, redisClient, background)
	} else {
		health = api.NewHealthChecker(db, nil, background)
	}
	server := api.NewServer(cfg.Server, handlers, health)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	logger.Info("shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
