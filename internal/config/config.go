package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             string
	HTTPTimeout      time.Duration
	TranslateTimeout time.Duration
	LogLevel         slog.Level
	MaxUploadBytes   int64
	SessionTTL       time.Duration
	ThresholdsFile   string

	// LLMProvider is "gemini", "openai" or "none".
	LLMProvider   string
	LLMModel      string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func FromEnv() Config {
	lvl := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return Config{
		Port:             envOr("PORT", "8080"),
		HTTPTimeout:      seconds("HTTP_TIMEOUT_SECONDS", 15*time.Second),
		TranslateTimeout: seconds("TRANSLATE_TIMEOUT_SECONDS", 20*time.Second),
		LogLevel:         lvl,
		MaxUploadBytes:   int64(intOr("MAX_UPLOAD_MB", 25)) << 20,
		SessionTTL:       time.Duration(intOr("SESSION_TTL_MINUTES", 60)) * time.Minute,
		ThresholdsFile:   envOr("THRESHOLDS_FILE", "thresholds.yaml"),
		LLMProvider:      envOr("LLM_PROVIDER", "gemini"),
		LLMModel:         os.Getenv("LLM_MODEL"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func intOr(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil && v > 0 {
		return v
	}
	return def
}

func seconds(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			return d
		}
	}
	return def
}
