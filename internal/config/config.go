package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	SMTP      SMTPConfig
	Gateway   GatewayConfig
	Scheduler SchedulerConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
}

type DatabaseConfig struct {
	Connection   string
	QueryTimeout time.Duration
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

// GatewayConfig holds what we need to verify payment-gateway webhook
// signatures. The gateway itself is an external collaborator.
type GatewayConfig struct {
	ServerKey string
}

type SchedulerConfig struct {
	SweepInterval time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Database: DatabaseConfig{
			Connection:   getEnv("DB_CONNECTION_STRING", ""),
			QueryTimeout: getEnvAsDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "CoachMembership"),
		},
		Gateway: GatewayConfig{
			ServerKey: getEnv("PAYMENT_GATEWAY_SERVER_KEY", ""),
		},
		Scheduler: SchedulerConfig{
			SweepInterval: getEnvAsDuration("RECONCILE_SWEEP_INTERVAL", 24*time.Hour),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
