package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// OCR provider: "tesseract" (HTTP server) or "mock"
	OCRProvider            string
	OCRBaseURL             string
	OCRConfidenceThreshold float64
	OCRRequestTimeout      time.Duration

	// Evidence state machine
	EvidenceMaxReplacements int

	// Anomaly accumulator
	AnomalyNotifyThreshold int

	// Maintenance scheduling
	MaintenanceLookaheadKm   int64
	MaintenanceLookaheadDays int
	SweepEnabled             bool
	SweepInterval            time.Duration

	// Outbound notifications: "whatsapp" or "mock"
	NotifyProvider        string
	WhatsAppToken         string
	WhatsAppPhoneNumberID string
	NotifyRetryDelay      time.Duration

	// Inbound chat channel (Telegram)
	ChatEnabled      bool
	TelegramBotToken string

	// Storage Configuration
	StorageProvider string // "local" or "r2"

	// Local Storage (development)
	LocalStoragePath string
	LocalStorageURL  string

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		// OCR defaults to the mock provider for development
		OCRProvider:            getEnv("OCR_PROVIDER", "mock"),
		OCRBaseURL:             getEnv("OCR_BASE_URL", "http://localhost:8884"),
		OCRConfidenceThreshold: getEnvFloat("OCR_CONFIDENCE_THRESHOLD", 60),
		OCRRequestTimeout:      getEnvDuration("OCR_REQUEST_TIMEOUT", 30*time.Second),

		EvidenceMaxReplacements: getEnvInt("EVIDENCE_MAX_REPLACEMENTS", 2),

		AnomalyNotifyThreshold: getEnvInt("ANOMALY_NOTIFY_THRESHOLD", 3),

		MaintenanceLookaheadKm:   int64(getEnvInt("MAINTENANCE_LOOKAHEAD_KM", 1000)),
		MaintenanceLookaheadDays: getEnvInt("MAINTENANCE_LOOKAHEAD_DAYS", 30),
		SweepEnabled:             getEnvBool("SWEEP_ENABLED", true),
		SweepInterval:            getEnvDuration("SWEEP_INTERVAL", 24*time.Hour),

		NotifyProvider:        getEnv("NOTIFY_PROVIDER", "mock"),
		WhatsAppToken:         getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		NotifyRetryDelay:      getEnvDuration("NOTIFY_RETRY_DELAY", 2*time.Second),

		ChatEnabled:      getEnvBool("CHAT_ENABLED", false),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		// R2 configuration (production only)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Validate OCR provider configuration
	if cfg.OCRProvider != "tesseract" && cfg.OCRProvider != "mock" {
		return nil, fmt.Errorf("OCR_PROVIDER must be either 'tesseract' or 'mock', got: %s", cfg.OCRProvider)
	}

	// Validate notification provider configuration
	if cfg.NotifyProvider == "whatsapp" {
		if cfg.WhatsAppToken == "" {
			return nil, fmt.Errorf("WHATSAPP_TOKEN is required when NOTIFY_PROVIDER is 'whatsapp'")
		}
		if cfg.WhatsAppPhoneNumberID == "" {
			return nil, fmt.Errorf("WHATSAPP_PHONE_NUMBER_ID is required when NOTIFY_PROVIDER is 'whatsapp'")
		}
	} else if cfg.NotifyProvider != "mock" {
		return nil, fmt.Errorf("NOTIFY_PROVIDER must be either 'whatsapp' or 'mock', got: %s", cfg.NotifyProvider)
	}

	// Validate chat channel configuration
	if cfg.ChatEnabled && cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required when CHAT_ENABLED is true")
	}

	// Validate storage configuration
	if cfg.StorageProvider == "r2" {
		if cfg.R2AccountID == "" {
			return nil, fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2AccessKeyID == "" {
			return nil, fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2SecretAccessKey == "" {
			return nil, fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2BucketName == "" {
			return nil, fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	} else if cfg.StorageProvider != "local" {
		return nil, fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", cfg.StorageProvider)
	}

	if cfg.EvidenceMaxReplacements < 1 {
		return nil, fmt.Errorf("EVIDENCE_MAX_REPLACEMENTS must be at least 1")
	}
	if cfg.AnomalyNotifyThreshold < 1 {
		return nil, fmt.Errorf("ANOMALY_NOTIFY_THRESHOLD must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
