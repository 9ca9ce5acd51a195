// Package config provides configuration for the journaling service.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Completion service
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	Temperature   float64
	MaxTokens     int
	LLMTimeout    time.Duration

	// Recall
	RecallDelay time.Duration
}

// Load loads configuration from a .env file (if present) and environment
// variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	return &Config{
		HTTPPort:      getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:   getEnv("DATABASE_URL", "file:whisperwell.db?cache=shared&mode=rwc"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		Temperature:   getEnvFloat("OPENAI_TEMPERATURE", 0.7),
		MaxTokens:     getEnvInt("OPENAI_MAX_TOKENS", 1000),
		LLMTimeout:    time.Duration(getEnvInt("LLM_TIMEOUT_MS", 30000)) * time.Millisecond,
		RecallDelay:   time.Duration(getEnvInt("RECALL_DELAY_MS", 2000)) * time.Millisecond,
	}
}

// Validate checks that required settings are present. The API key is the only
// required secret; it is never logged.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
