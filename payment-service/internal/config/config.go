package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	HTTPPort  string
	DBHost    string
	DBPort    int
	DBUser    string
	DBPass    string
	DBName    string
	Migration string
	MenuSeed  string

	RedisAddr    string
	KafkaBrokers string

	GatewayBaseURL   string
	GatewayKeyID     string
	GatewayKeySecret string
	GatewaySimulated bool
	GatewayTimeout   time.Duration

	IdempotencyTTL          time.Duration
	IntentTTL               time.Duration
	MaxVerificationAttempts int
	ExpirySweepInterval     time.Duration
	OutboxInterval          time.Duration

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// Load reads the environment, optionally seeded from a .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:       getEnv("APP_ENV", "development"),
		HTTPPort:  getEnv("HTTP_PORT", "8080"),
		DBHost:    getEnv("DB_HOST", "localhost"),
		DBPort:    getEnvInt("DB_PORT", 5432),
		DBUser:    getEnv("DB_USER", "postgres"),
		DBPass:    getEnv("DB_PASSWORD", "postgres"),
		DBName:    getEnv("DB_NAME", "canteen"),
		Migration: getEnv("MIGRATIONS_DIR", "./payment-service/internal/repository/migrations"),
		MenuSeed:  getEnv("MENU_SEED_FILE", ""),

		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),

		GatewayBaseURL:   getEnv("GATEWAY_BASE_URL", "https://api.razorpay.com"),
		GatewayKeyID:     getEnv("GATEWAY_KEY_ID", ""),
		GatewayKeySecret: getEnv("GATEWAY_KEY_SECRET", ""),
		GatewaySimulated: getEnvBool("GATEWAY_SIMULATED", false),
		GatewayTimeout:   getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),

		IdempotencyTTL:          getEnvDuration("IDEMPOTENCY_TTL", 15*time.Minute),
		IntentTTL:               getEnvDuration("INTENT_TTL", 30*time.Minute),
		MaxVerificationAttempts: getEnvInt("MAX_VERIFICATION_ATTEMPTS", 5),
		ExpirySweepInterval:     getEnvDuration("EXPIRY_SWEEP_INTERVAL", time.Minute),
		OutboxInterval:          getEnvDuration("OUTBOX_INTERVAL", time.Second),

		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 10),
	}
}

// Simulated reports whether the gateway should be simulated because no credentials are configured.
func (c *Config) Simulated() bool {
	return c.GatewaySimulated || c.GatewayKeyID == "" || c.GatewayKeySecret == ""
}

// SignerSecret is the webhook secret; simulated gateways fall back to a fixed development secret.
func (c *Config) SignerSecret() string {
	if c.GatewayKeySecret == "" && c.Simulated() {
		return "simulated-secret"
	}
	return c.GatewayKeySecret
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
