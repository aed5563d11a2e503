package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	Env              string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	RedisURL         string
	StripeSecretKey  string
	StripeWebhookKey string
	JWTSecret        string
	EmailProvider    string // "resend" or "smtp"
	ResendAPIKey     string
	EmailFrom        string
	FallbackEmail    string // operator address used when an event carries no email
	SMTPHost         string
	SMTPPort         string
	SMTPUser         string
	SMTPPass         string
	OrderAmount      int64  // default order total in minor units
	OrderCurrency    string // ISO-4217 lowercase
	PostcodesBaseURL string
	AppBaseURL       string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("APP_ENV", "development"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		StripeSecretKey:  os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookKey: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		EmailProvider:    getEnv("EMAIL_PROVIDER", "resend"),
		ResendAPIKey:     os.Getenv("RESEND_API_KEY"),
		EmailFrom:        getEnv("EMAIL_FROM", "Subterrain <orders@subterrain.store>"),
		FallbackEmail:    getEnv("FALLBACK_ORDER_EMAIL", "orders@subterrain.store"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getEnv("SMTP_PORT", "587"),
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPass:         os.Getenv("SMTP_PASS"),
		OrderAmount:      2499,
		OrderCurrency:    "gbp",
		PostcodesBaseURL: getEnv("POSTCODES_BASE_URL", "https://api.postcodes.io"),
		AppBaseURL:       getEnv("APP_BASE_URL", "http://localhost:8080"),
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" {
		return nil, fmt.Errorf("missing required postgres environment variables")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	// A missing Stripe secret is an operator error surfaced per-request as a 500,
	// not a boot failure. The issuance endpoint checks it on every call.
	if cfg.StripeSecretKey == "" || cfg.StripeWebhookKey == "" {
		log.Println("warning: STRIPE_SECRET_KEY or STRIPE_WEBHOOK_SECRET not set; payment endpoints will refuse requests")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
