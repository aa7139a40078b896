package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Pipeline PipelineConfig
	LLM      LLMConfig
	Memory   MemoryConfig
	Tracing  TracingConfig
	Keys     APIKeys
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
}

type DatabaseConfig struct {
	Connection       string
	StatementTimeout time.Duration
	AllowedSchemas   []string
}

type PipelineConfig struct {
	RepairCeiling     int
	SearchTimeout     time.Duration
	TopicContextTurns int
}

type LLMConfig struct {
	Provider    string // "openai", "gemini" or "ollama"
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	LogFilePath string // raw prompt and reply trail, kept out of the main log
}

type MemoryConfig struct {
	Store      string // "memory" or "redis"
	RedisURL   string
	SessionTTL time.Duration
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

type APIKeys struct {
	JWTSecret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection:       getEnv("DB_CONNECTION_STRING", ""),
			StatementTimeout: getEnvAsDuration("SQL_STATEMENT_TIMEOUT", 30*time.Second),
			AllowedSchemas:   getEnvAsList("ALLOWED_SCHEMAS", []string{"parcels", "geographic_features", "infrastructure_features"}),
		},
		Pipeline: PipelineConfig{
			RepairCeiling:     getEnvAsInt("REPAIR_CEILING", 3),
			SearchTimeout:     getEnvAsDuration("SEARCH_TIMEOUT", 60*time.Second),
			TopicContextTurns: getEnvAsInt("TOPIC_CONTEXT_TURNS", 6),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "openai"),
			Model:       getEnv("LLM_MODEL", ""),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.2),
			LogFilePath: getEnv("LLM_LOG_FILE_PATH", "logs/llm.log"),
		},
		Memory: MemoryConfig{
			Store:      getEnv("CONVERSATION_STORE", "memory"),
			RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379"),
			SessionTTL: getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		},
		Tracing: TracingConfig{
			Enabled:  getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Keys: APIKeys{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
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

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
