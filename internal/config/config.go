package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the summarization bot service.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float64

	StoragePath string
	DatabaseURL string

	FetchTimeout     time.Duration
	DownloadTimeout  time.Duration
	MaxDownloadBytes int64

	ScrapeMaxChars int
	PromptMaxChars int

	TriggerPhrase string

	MetricsNamespace string
	LogLevel         string
}

// BindAddr returns the listen address in host:port form.
func (c Config) BindAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		Host:              envOrDefault("HOST", "0.0.0.0"),
		Port:              3000,
		OpenAIAPIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:       envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxTokens:   500,
		OpenAITemperature: 0.7,
		StoragePath:       envOrDefault("MEMORY_STORAGE_PATH", "./memory-data"),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		FetchTimeout:      10 * time.Second,
		DownloadTimeout:   30 * time.Second,
		MaxDownloadBytes:  10 << 20,
		ScrapeMaxChars:    3000,
		PromptMaxChars:    15000,
		TriggerPhrase:     envOrDefault("TRIGGER_PHRASE", "@bot"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "summarizebot"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		ShutdownTimeout:   15 * time.Second,
	}

	var err error
	cfg.Port, err = intFromEnv("PORT", cfg.Port)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAIMaxTokens, err = intFromEnv("OPENAI_MAX_TOKENS", cfg.OpenAIMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAITemperature, err = floatFromEnv("OPENAI_TEMPERATURE", cfg.OpenAITemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.FetchTimeout, err = durationFromEnv("FETCH_TIMEOUT", cfg.FetchTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.DownloadTimeout, err = durationFromEnv("DOWNLOAD_TIMEOUT", cfg.DownloadTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxDownloadBytes, err = int64FromEnv("MAX_DOWNLOAD_BYTES", cfg.MaxDownloadBytes)
	if err != nil {
		return Config{}, err
	}
	cfg.ScrapeMaxChars, err = intFromEnv("SCRAPE_MAX_CHARS", cfg.ScrapeMaxChars)
	if err != nil {
		return Config{}, err
	}
	cfg.PromptMaxChars, err = intFromEnv("PROMPT_MAX_CHARS", cfg.PromptMaxChars)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("PORT must be between 1 and 65535")
	}
	if cfg.FetchTimeout <= 0 {
		return Config{}, fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if cfg.DownloadTimeout <= 0 {
		return Config{}, fmt.Errorf("DOWNLOAD_TIMEOUT must be positive")
	}
	if cfg.MaxDownloadBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_DOWNLOAD_BYTES must be positive")
	}
	if cfg.ScrapeMaxChars <= 0 {
		return Config{}, fmt.Errorf("SCRAPE_MAX_CHARS must be positive")
	}
	if cfg.PromptMaxChars <= 0 {
		return Config{}, fmt.Errorf("PROMPT_MAX_CHARS must be positive")
	}
	if strings.TrimSpace(cfg.TriggerPhrase) == "" {
		return Config{}, fmt.Errorf("TRIGGER_PHRASE must not be empty")
	}
	if strings.TrimSpace(cfg.StoragePath) == "" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("MEMORY_STORAGE_PATH must not be empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
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
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func int64FromEnv(key string, fallback int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}
