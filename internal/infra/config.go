package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	StoragePath    string
	StorageBaseURL string
	GeoIPDBPath    string

	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiVision     string
	GeminiImageModel string
	GeminiEmbedModel string

	SearchAPIKey   string
	SearchEngineID string

	SemanticEnabled   bool
	SemanticThreshold float64

	GenRateLimitPerMin int
	PlaceholderURL     string
	AllowedOrigins     string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	WorkerPollInterval time.Duration
}

// LoadConfig loads configuration from the environment, reading a local
// .env file first when present, and applies defaults where needed.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StoragePath:    getEnv("STORAGE_PATH", "./data/images"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiVision:     getEnv("GEMINI_VISION_MODEL", "gemini-2.5-flash"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiEmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),

		SearchAPIKey:   os.Getenv("GOOGLE_CSE_API_KEY"),
		SearchEngineID: os.Getenv("GOOGLE_CSE_ENGINE_ID"),

		SemanticEnabled:   getEnvBool("SEMANTIC_ENABLED", false),
		SemanticThreshold: getEnvFloat("SEMANTIC_THRESHOLD", 0.7),

		GenRateLimitPerMin: getEnvInt("GEN_RATE_LIMIT_PER_MINUTE", 5),
		PlaceholderURL:     getEnv("PLACEHOLDER_IMAGE_URL", "https://via.placeholder.com/1024x1024.png?text=Image+Not+Available"),
		AllowedOrigins:     getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		WorkerPollInterval: time.Second * time.Duration(getEnvInt("WORKER_POLL_INTERVAL_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.GenRateLimitPerMin < 1 {
		return nil, fmt.Errorf("GEN_RATE_LIMIT_PER_MINUTE must be at least 1")
	}

	if cfg.SemanticThreshold <= 0 || cfg.SemanticThreshold > 1 {
		return nil, fmt.Errorf("SEMANTIC_THRESHOLD must be in (0,1]")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
