package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chat backend.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	RedisAddr      string
	RedisUsername  string
	RedisPassword  string
	RedisDB        int
	StoreOpTimeout time.Duration

	DatabaseURL string

	GroqAPIKey        string
	GroqBaseURL       string
	GroqModel         string
	GroqTemperature   float64
	GroqMaxTokens     int
	CompletionTimeout time.Duration

	SystemPrompt     string
	HistoryWindow    int
	AuthStaticTokens string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "honeychat"),
		AllowAnyOrigin:    false,
		RedisAddr:         trimmedEnv("REDIS_ADDR"),
		RedisUsername:     envOrDefault("REDIS_USERNAME", "default"),
		RedisPassword:     trimmedEnv("REDIS_PASSWORD"),
		RedisDB:           0,
		DatabaseURL:       trimmedEnv("DATABASE_URL"),
		GroqAPIKey:        trimmedEnv("GROQ_API_KEY"),
		GroqBaseURL:       envOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:         envOrDefault("GROQ_MODEL", "llama-3.1-8b-instant"),
		GroqTemperature:   0.7,
		GroqMaxTokens:     1024,
		SystemPrompt:      envOrDefault("CHAT_SYSTEM_PROMPT", "You are a helpful shopping assistant for the LaxmiHoney store."),
		HistoryWindow:     10,
		AuthStaticTokens:  trimmedEnv("AUTH_STATIC_TOKENS"),
		ShutdownTimeout:   15 * time.Second,
		StoreOpTimeout:    3 * time.Second,
		CompletionTimeout: 30 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.StoreOpTimeout, err = durationFromEnv("STORE_OP_TIMEOUT", cfg.StoreOpTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionTimeout, err = durationFromEnv("GROQ_TIMEOUT", cfg.CompletionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RedisDB, err = intFromEnv("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return Config{}, err
	}
	cfg.GroqMaxTokens, err = intFromEnv("GROQ_MAX_TOKENS", cfg.GroqMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.GroqTemperature, err = floatFromEnv("GROQ_TEMPERATURE", cfg.GroqTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWindow, err = intFromEnv("CHAT_HISTORY_WINDOW", cfg.HistoryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("CHAT_HISTORY_WINDOW must be positive")
	}
	if cfg.GroqMaxTokens <= 0 {
		return Config{}, fmt.Errorf("GROQ_MAX_TOKENS must be positive")
	}
	if cfg.GroqTemperature < 0 || cfg.GroqTemperature > 2 {
		return Config{}, fmt.Errorf("GROQ_TEMPERATURE must be within [0, 2]")
	}
	if cfg.StoreOpTimeout < 100*time.Millisecond {
		return Config{}, fmt.Errorf("STORE_OP_TIMEOUT must be at least 100ms")
	}
	if cfg.RedisDB < 0 {
		return Config{}, fmt.Errorf("REDIS_DB must be >= 0")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
