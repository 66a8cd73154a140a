// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all server configuration. Values come from environment
// variables (a .env file is loaded by main before this runs).
type Config struct {
	// HTTPPort is the port the API server listens on.
	HTTPPort string

	// AllowedOrigins are the origins permitted by the CORS middleware.
	// Empty means same-origin only.
	AllowedOrigins []string

	// OpenAIAPIKey authenticates requests to the OpenAI API.
	OpenAIAPIKey string

	// OpenAIBaseURL overrides the OpenAI endpoint (proxies, test servers).
	// Empty uses the SDK default.
	OpenAIBaseURL string

	// GeminiAPIKey authenticates requests to the Gemini API.
	// Empty disables the Gemini gateway; Gemini models are rejected
	// as unsupported.
	GeminiAPIKey string

	// TitleModel is the cheap/fast model used for chat title generation.
	TitleModel string

	// StreamMaxTokens is the token limit applied to streaming requests
	// that don't set one. Some model generations refuse to stream without
	// an explicit limit.
	StreamMaxTokens int

	// HistoryWindow caps how many trailing messages are replayed as
	// conversation history. 0 replays the full history.
	HistoryWindow int

	// ChatTTL is how long an anonymous chat may sit idle before the
	// cleanup loop deletes it.
	ChatTTL time.Duration

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration
}

// LoadFromEnv builds a Config from environment variables, applying defaults.
func LoadFromEnv() (*Config, error) {
	streamMax, err := intEnv("STREAM_MAX_TOKENS", 4096)
	if err != nil {
		return nil, err
	}
	historyWindow, err := intEnv("HISTORY_WINDOW", 0)
	if err != nil {
		return nil, err
	}
	chatTTL, err := durationEnv("CHAT_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cleanupInterval, err := durationEnv("CLEANUP_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:        getEnvOrDefault("HTTP_PORT", "8080"),
		AllowedOrigins:  splitEnv("ALLOWED_ORIGINS"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		TitleModel:      getEnvOrDefault("TITLE_MODEL", "gpt-5-nano"),
		StreamMaxTokens: streamMax,
		HistoryWindow:   historyWindow,
		ChatTTL:         chatTTL,
		CleanupInterval: cleanupInterval,
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func intEnv(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitEnv(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
