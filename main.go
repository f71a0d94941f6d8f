package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-reconciliation/internal/auth"
	"ms-reconciliation/internal/config"
	"ms-reconciliation/internal/database/migrations"
	"ms-reconciliation/internal/kafka"
	"ms-reconciliation/internal/logger"
	"ms-reconciliation/internal/models"
	"ms-reconciliation/internal/notification"
	"ms-reconciliation/internal/notification/notification_api"
	"ms-reconciliation/internal/platform"
	"ms-reconciliation/internal/platform/localstore"
)

func connectLocalStore(cfg *config.Config, log *logger.Logger) *bun.DB {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	log.Info("DATABASE", "PostgreSQL connection successful")

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	return bun.NewDB(sqldb, pgdialect.New())
}

func buildStore(cfg *config.Config, log *logger.Logger) (platform.Store, func()) {
	switch cfg.Platform.Mode {
	case config.StoreModeLocal:
		bunDB := connectLocalStore(cfg, log)

		runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to run migrations: %v", err))
		}
		if err := runner.Close(); err != nil {
			log.Warn("DATABASE", fmt.Sprintf("Error closing migrator: %v", err))
		}

		log.Info("STORE", "Using local payment store")
		return localstore.NewStore(bunDB, log), func() { bunDB.Close() }

	case config.StoreModePlatform:
		redisClient, err := auth.InitializeTokenCache(cfg.Redis.Addr, log)
		var cache *auth.RedisTokenCache
		if err != nil {
			log.Warn("AUTH", fmt.Sprintf("Token cache unavailable, every platform call will fetch a fresh token: %v", err))
		} else {
			cache = auth.NewRedisTokenCache(redisClient)
		}

		httpClient := &http.Client{Timeout: time.Second * 10}
		tokens := auth.NewTokenSource(cfg.Platform, httpClient, cache, log)
		client := platform.NewClient(cfg.Platform.APIURL, cfg.Platform.ProjectKey, httpClient, tokens, log)

		log.Info("STORE", fmt.Sprintf("Using remote platform at %s (project %s)", cfg.Platform.APIURL, cfg.Platform.ProjectKey))
		cleanup := func() {
			if redisClient != nil {
				redisClient.Close()
			}
		}
		return client, cleanup

	default:
		log.Fatal("CONFIG", fmt.Sprintf("Unknown STORE_MODE %q", cfg.Platform.Mode))
		return nil, nil
	}
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Payment Reconciliation Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	store, cleanup := buildStore(cfg, log)
	defer cleanup()

	var validator notification.Validator
	if cfg.HMAC.Enabled {
		hmacValidator, err := notification.NewHMACValidator(cfg.HMAC.Key)
		if err != nil {
			log.Fatal("CONFIG", fmt.Sprintf("Invalid HMAC key: %v", err))
		}
		validator = hmacValidator
		log.Info("SECURITY", "HMAC signature validation enabled")
	} else {
		log.Warn("SECURITY", "HMAC signature validation disabled")
	}

	var producer *kafka.Producer
	var publisher notification.OutcomePublisher
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Reconciled, log)
		publisher = producer
		log.Info("KAFKA", "Kafka producer initialized successfully")

		requiredTopics := []string{
			cfg.Kafka.Topics.Notifications,
			cfg.Kafka.Topics.Reconciled,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		log.Info("KAFKA", "Kafka disabled, running pure HTTP intake")
	}

	service := notification.NewReconciliationService(store, validator, publisher, log, notification.PlannerConfig{
		RemoveSensitiveData: cfg.Engine.RemoveSensitiveData,
		MethodDisplayNames:  notification.DefaultMethodDisplayNames,
		Log:                 log,
	})

	handler := notification_api.NewHandler(service, log, cfg.Platform.Mode)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// --- Public Routes ---
	r.Get("/health", handler.HealthChi)
	r.Post("/api/notifications", handler.HandleNotificationsChi)
	log.Info("ROUTER", "Webhook endpoint registered at /api/notifications")

	// --- Protected Routes ---
	if cfg.Keycloak.URL != "" {
		issuer := fmt.Sprintf("%s/realms/%s", cfg.Keycloak.URL, cfg.Keycloak.Realm)
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(issuer))
			r.Post("/api/admin/notifications/replay", handler.ReplayNotificationChi)
		})
		log.Info("ROUTER", "Admin replay endpoint registered behind OIDC")
	} else {
		log.Warn("ROUTER", "KEYCLOAK_URL not set, admin replay endpoint disabled")
	}

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Notifications, cfg.Kafka.GroupID, log)
		go consumer.Start(consumerCtx, func(ctx context.Context, n *models.Notification) {
			_ = service.ProcessNotification(ctx, n)
		})
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Payment Reconciliation Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}

	stopConsumer()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Error closing consumer: %v", err))
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Error closing producer: %v", err))
		}
	}

	log.Info("APP", "Shutdown complete")
}
