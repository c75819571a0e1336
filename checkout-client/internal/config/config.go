package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env             string
	ServiceURL      string
	UserID          string
	Mechanism       string
	Headless        bool
	ScriptURL       string
	RequestTimeout  time.Duration
	CheckoutTimeout time.Duration
	VerifyAttempts  int
	VerifyBackoff   time.Duration
}

// Load reads the environment, optionally seeded from a .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:             getEnv("APP_ENV", "development"),
		ServiceURL:      getEnv("PAYMENT_SERVICE_URL", "http://localhost:8080"),
		UserID:          getEnv("CANTEEN_USER_ID", ""),
		Mechanism:       getEnv("CHECKOUT_MECHANISM", "auto"),
		Headless:        getEnvBool("CHECKOUT_HEADLESS", false),
		ScriptURL:       getEnv("CHECKOUT_SCRIPT_URL", ""),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		CheckoutTimeout: getEnvDuration("CHECKOUT_TIMEOUT", 45*time.Second),
		VerifyAttempts:  getEnvInt("VERIFY_ATTEMPTS", 3),
		VerifyBackoff:   getEnvDuration("VERIFY_BACKOFF", 500*time.Millisecond),
	}
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
