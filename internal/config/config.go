package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	// Meta messaging platform
	VerifyToken     string
	PageAccessToken string
	PageID          string
	GraphAPIBase    string

	// Groq (OpenAI-compatible) completion API
	GroqAPIKey      string
	GroqModel       string
	GroqTemperature float64
	GroqMaxTokens   int

	// Dedup cache
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	DedupTTL           time.Duration
	DedupMaxReconnects int

	// Order persistence (Google Sheets)
	SheetsSpreadsheetID   string
	SheetsRange           string
	SheetsCredentialsFile string

	// Knowledge base for reply context
	KnowledgeFile string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		VerifyToken:     getEnv("VERIFY_TOKEN", ""),
		PageAccessToken: getEnv("PAGE_ACCESS_TOKEN", ""),
		PageID:          getEnv("PAGE_ID", ""),
		GraphAPIBase:    getEnv("GRAPH_API_BASE", ""),

		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		GroqModel:       getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqTemperature: getEnvAsFloat("GROQ_TEMPERATURE", 0.7),
		GroqMaxTokens:   getEnvAsInt("GROQ_MAX_TOKENS", 800),

		RedisAddr:          getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		DedupTTL:           getEnvAsDuration("DEDUP_TTL", 15*time.Second),
		DedupMaxReconnects: getEnvAsInt("DEDUP_MAX_RECONNECTS", 5),

		SheetsSpreadsheetID:   getEnv("SHEETS_SPREADSHEET_ID", ""),
		SheetsRange:           getEnv("SHEETS_RANGE", "Orders!A:G"),
		SheetsCredentialsFile: getEnv("SHEETS_CREDENTIALS_FILE", ""),

		KnowledgeFile: getEnv("KNOWLEDGE_FILE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
