// Package config gathers process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all process tunables. Values come from environment
// variables, optionally loaded from a .env file at startup.
type Config struct {
	Port         string
	DataDir      string
	DatabasePath string

	OpenAIAPIKey string
	WhisperModel string
	ChatModel    string

	WorkerConcurrency int
	StarterCredits    int64
	AnonymousLimit    int64
}

// Load reads the configuration, applying defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DataDir:           getEnv("DATA_DIR", "./data"),
		DatabasePath:      getEnv("DATABASE_PATH", ""),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		WhisperModel:      getEnv("WHISPER_MODEL", "whisper-1"),
		ChatModel:         getEnv("CHAT_MODEL", "gpt-4o-mini"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		StarterCredits:    int64(getEnvInt("STARTER_CREDITS", 3)),
		AnonymousLimit:    int64(getEnvInt("ANONYMOUS_FREE_LIMIT", 3)),
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = cfg.DataDir + "/transcribe.db"
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
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
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
