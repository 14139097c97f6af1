package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime settings for the academy service.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseDSN    string

	JWTSecret string

	RabbitMQURL string

	RazorpayBaseURL       string
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	Currency              string

	AWSRegion       string
	S3Bucket        string
	RedisURL        string
	ContentCacheTTL time.Duration

	PendingOrderTTL      time.Duration
	ReconcileSchedule    string
	SubscriptionSchedule string

	SendgridAPIKey string
	MailFrom       string

	SentryDSN string
}

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return FromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=academy port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1")
	v.SetDefault("RAZORPAY_KEY_ID", "")
	v.SetDefault("RAZORPAY_KEY_SECRET", "")
	v.SetDefault("RAZORPAY_WEBHOOK_SECRET", "")
	v.SetDefault("PAYMENT_CURRENCY", "INR")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_S3_BUCKET", "academy-content-bucket")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CONTENT_CACHE_TTL", "10m")
	v.SetDefault("PENDING_ORDER_TTL", "24h")
	v.SetDefault("RECONCILE_SCHEDULE", "@every 15m")
	v.SetDefault("SUBSCRIPTION_SCHEDULE", "0 * * * *")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM", "no-reply@academy.local")
	v.SetDefault("SENTRY_DSN", "")
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		AppPort:  v.GetString("APP_PORT"),
		AppEnv:   v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),

		DatabaseDriver: v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),

		JWTSecret: v.GetString("JWT_SECRET"),

		RabbitMQURL: v.GetString("RABBITMQ_URL"),

		RazorpayBaseURL:       v.GetString("RAZORPAY_BASE_URL"),
		RazorpayKeyID:         v.GetString("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     v.GetString("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: v.GetString("RAZORPAY_WEBHOOK_SECRET"),
		Currency:              v.GetString("PAYMENT_CURRENCY"),

		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("AWS_S3_BUCKET"),
		RedisURL:        v.GetString("REDIS_URL"),
		ContentCacheTTL: v.GetDuration("CONTENT_CACHE_TTL"),

		PendingOrderTTL:      v.GetDuration("PENDING_ORDER_TTL"),
		ReconcileSchedule:    v.GetString("RECONCILE_SCHEDULE"),
		SubscriptionSchedule: v.GetString("SUBSCRIPTION_SCHEDULE"),

		SendgridAPIKey: v.GetString("SENDGRID_API_KEY"),
		MailFrom:       v.GetString("MAIL_FROM"),

		SentryDSN: v.GetString("SENTRY_DSN"),
	}
}

// Validate reports missing secrets the service cannot run without.
func (c *Config) Validate() error {
	required := map[string]string{
		"JWT_SECRET":              c.JWTSecret,
		"RAZORPAY_KEY_SECRET":     c.RazorpayKeySecret,
		"RAZORPAY_WEBHOOK_SECRET": c.RazorpayWebhookSecret,
	}
	for key, val := range required {
		if val == "" {
			return fmt.Errorf("%s environment variable is required", key)
		}
	}
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.PendingOrderTTL <= 0 {
		return fmt.Errorf("PENDING_ORDER_TTL must be positive")
	}
	return nil
}
