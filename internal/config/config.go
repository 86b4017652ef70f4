package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the full application configuration.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Stripe   StripeConfig
	Auth     AuthConfig
}

// AppConfig configures the HTTP server and runtime environment.
type AppConfig struct {
	Port            string
	Env             string
	FrontendBaseURL string
	LogLevel        string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	DSN string
}

// RedisConfig configures the optional cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig configures the optional event producer.
type KafkaConfig struct {
	Brokers []string
}

// StripeConfig holds the billing provider keys.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// AuthConfig holds the token-signing secret.
type AuthConfig struct {
	JWTSecret      string
	TokenTTLHours  int
	BCryptCost     int
	LoginRatePerIP float64
}

// IsProduction reports whether the app runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Load reads configuration from the environment. Outside production a .env
// file is loaded first if present.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// Missing .env is fine, env vars may be set directly
		_ = godotenv.Load()
	}

	cfg := &Config{
		App: AppConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             getEnv("APP_ENV", "development"),
			FrontendBaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:3000"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			ReadTimeout:     getEnvInt("HTTP_READ_TIMEOUT", 10),
			WriteTimeout:    getEnvInt("HTTP_WRITE_TIMEOUT", 10),
			ShutdownTimeout: getEnvInt("HTTP_SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			DSN: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			TokenTTLHours:  getEnvInt("JWT_TTL_HOURS", 72),
			BCryptCost:     getEnvInt("BCRYPT_COST", 10),
			LoginRatePerIP: getEnvFloat("LOGIN_RATE_PER_IP", 1),
		},
	}

	if cfg.Database.DSN == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
