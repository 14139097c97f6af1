package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"academy/internal/config"
	"academy/internal/database"
	"academy/internal/events"
	"academy/internal/logging"
	"academy/internal/notify"
	"academy/internal/payment"
	"academy/internal/repositories"
	"academy/internal/server"
	"academy/internal/services"
	"academy/internal/storage"
	"academy/pkg/rabbitmq"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// loadConfig reads configuration and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initSentry enables error reporting when SENTRY_DSN is set. The returned
// func flushes buffered events.
func initSentry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
		Environment:      cfg.AppEnv,
	})
	if err != nil {
		slog.Error("sentry init failed", "error", err)
		return func() {}
	}
	slog.Info("sentry initialized", "environment", cfg.AppEnv)
	return func() { sentry.Flush(2 * time.Second) }
}

// app holds every long-lived dependency built from the configuration.
type app struct {
	cfg   *config.Config
	db    *gorm.DB
	mq    *rabbitmq.Client
	redis *redis.Client

	users  repositories.UserRepository
	orders repositories.OrderRepository

	services server.Services
}

// newApp opens the database and the optional infrastructure, then wires
// repositories and services. RabbitMQ and Redis are skipped when their
// URLs are empty; failing to reach a configured one is logged and the
// feature is disabled.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: events.Exchange})
		if err != nil {
			slog.Error("rabbitmq unavailable, order events disabled", "error", err)
		} else {
			a.mq = mq
			publisher = events.NewAMQPPublisher(mq)
		}
	}

	var store storage.ContentStore
	if cfg.S3Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg.AWSRegion, cfg.S3Bucket)
		if err != nil {
			slog.Error("object store unavailable, serving inline content only", "error", err)
		} else {
			store = s3Store
		}
	}
	if store != nil && cfg.RedisURL != "" {
		rdb, err := storage.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("redis unavailable, content cache disabled", "error", err)
		} else {
			a.redis = rdb
			store = storage.NewCachedStore(store, rdb, cfg.ContentCacheTTL)
		}
	}

	userRepo := repositories.NewGORMUserRepository(db)
	courseRepo := repositories.NewGORMCourseRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	progressRepo := repositories.NewGORMProgressRepository(db)
	a.users = userRepo
	a.orders = orderRepo

	gateway := payment.NewRazorpayClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	access := services.NewAccessService(courseRepo, orderRepo)

	a.services = server.Services{
		Auth:    services.NewAuthService(userRepo, cfg.JWTSecret),
		Catalog: services.NewCatalogService(courseRepo),
		Cart:    services.NewCartService(courseRepo, orderRepo),
		Orders: services.NewOrderService(services.OrderServiceDeps{
			Orders:     orderRepo,
			Courses:    courseRepo,
			Webhooks:   repositories.NewGORMWebhookEventRepository(db),
			Gateway:    gateway,
			Verifier:   payment.NewVerifier(cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret),
			Publisher:  publisher,
			Currency:   cfg.Currency,
			KeyID:      cfg.RazorpayKeyID,
			PendingTTL: cfg.PendingOrderTTL,
		}),
		Content:      services.NewContentService(access, progressRepo, store),
		Progress:     services.NewProgressService(access, progressRepo),
		Subscription: services.NewSubscriptionService(repositories.NewGORMSubscriptionRepository(db), gateway),
	}
	return a, nil
}

// mailer picks SendGrid when an API key is configured.
func (a *app) mailer() notify.Mailer {
	if a.cfg.SendgridAPIKey == "" {
		return notify.NopMailer{}
	}
	return notify.NewSendgridMailer(a.cfg.SendgridAPIKey, a.cfg.MailFrom)
}

func (a *app) Close() {
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			slog.Error("rabbitmq close error", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if err := database.Close(a.db); err != nil {
		slog.Error("database close error", "error", err)
	}
}
