package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env             string
	ServiceURL      string
	MerchantID      string
	TerminalID      string
	KafkaBrokers    []string
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	WriteTimeout    time.Duration
}

// Load reads the environment, optionally seeded from a .env file.
func Load() *Config {
	_ = godotenv.Load()

	hostname, _ := os.Hostname()
	return &Config{
		Env:             getEnv("APP_ENV", "development"),
		ServiceURL:      getEnv("PAYMENT_SERVICE_URL", "http://localhost:8080"),
		MerchantID:      getEnv("MERCHANT_ID", ""),
		TerminalID:      getEnv("TERMINAL_ID", hostname),
		KafkaBrokers:    splitList(getEnv("KAFKA_BROKERS", "")),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 15*time.Second),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
