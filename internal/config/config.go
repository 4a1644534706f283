// Package config provides application configuration management.
// It loads settings from a .env file and environment variables and validates
// them before the server starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// R2SourcePrefix marks a CATALOG_SOURCE that lives in the R2 bucket.
const R2SourcePrefix = "r2://"

// KnownLLMProviders lists the provider names accepted by LLM_PROVIDERS.
var KnownLLMProviders = []string{"gemini", "groq", "cerebras"}

// Config holds all application configuration
type Config struct {
	// Server
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Data
	DataDir       string // Directory holding the SQLite database
	CatalogSource string // Local CSV path (optionally .zst) or r2://<key>
	CatalogWatch  bool   // Reload the catalog when a local source changes

	DescriptionCacheTTL time.Duration // How long generated course overviews are reused

	// LLM
	LLMProviders   []string // Provider order for fallback
	LLMTimeout     time.Duration
	GeminiAPIKey   string
	GroqAPIKey     string
	CerebrasAPIKey string
	GeminiModels   []string // Empty means genai defaults
	GroqModels     []string
	CerebrasModels []string

	// Retrieval
	RetrievalMinMatch float64 // Minimum match percent (0-100)
	RetrievalTopN     int

	// Dialogue
	GuidedRefinement bool          // Ask for level after a bare subject query
	SessionTTL       time.Duration // Idle time before a conversation is forgotten

	// Per-session chat rate limits
	ChatRateBurst  float64 // Token bucket capacity
	ChatRateRefill float64 // Tokens per second
	ChatRateDaily  int     // 0 disables the daily cap

	// Metrics auth (empty password = no auth)
	MetricsUsername string
	MetricsPassword string

	// LINE channel (optional)
	LineChannelSecret string
	LineChannelToken  string

	// R2
	R2Endpoint        string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string

	// Sentry
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentrySampleRate  float64

	// Better Stack
	BetterStackToken    string
	BetterStackEndpoint string
}

// Load reads configuration from environment variables.
// It attempts to load .env file first, then reads from env vars.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		DataDir:       getEnv(EnvDataDir, getDefaultDataDir()),
		CatalogSource: getEnv(EnvCatalogSource, filepath.Join(getDefaultDataDir(), "udemy_courses.csv")),
		CatalogWatch:  getBoolEnv(EnvCatalogWatch, false),

		DescriptionCacheTTL: getDurationEnv(EnvDescriptionCacheTTL, 7*24*time.Hour),

		LLMProviders:   getListEnv(EnvLLMProviders, KnownLLMProviders),
		LLMTimeout:     getDurationEnv(EnvLLMTimeout, LLMRequest),
		GeminiAPIKey:   getEnv(EnvGeminiAPIKey, ""),
		GroqAPIKey:     getEnv(EnvGroqAPIKey, ""),
		CerebrasAPIKey: getEnv(EnvCerebrasAPIKey, ""),
		GeminiModels:   getListEnv(EnvGeminiModels, nil),
		GroqModels:     getListEnv(EnvGroqModels, nil),
		CerebrasModels: getListEnv(EnvCerebrasModels, nil),

		RetrievalMinMatch: getFloatEnv(EnvRetrievalMinMatch, 50),
		RetrievalTopN:     getIntEnv(EnvRetrievalTopN, 10),

		GuidedRefinement: getBoolEnv(EnvGuidedRefinement, true),
		SessionTTL:       getDurationEnv(EnvSessionTTL, 30*time.Minute),

		ChatRateBurst:  getFloatEnv(EnvChatRateBurst, 20),
		ChatRateRefill: getFloatEnv(EnvChatRateRefill, 0.5),
		ChatRateDaily:  getIntEnv(EnvChatRateDaily, 500),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),

		R2Endpoint:        getEnv(EnvR2Endpoint, ""),
		R2AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		R2Bucket:          getEnv(EnvR2Bucket, ""),

		SentryToken:       getEnv(EnvSentryToken, ""),
		SentryHost:        getEnv(EnvSentryHost, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if c.CatalogSource == "" {
		errs = append(errs, errors.New("CATALOG_SOURCE is required"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %v", c.ShutdownTimeout))
	}
	if c.DescriptionCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("DESCRIPTION_CACHE_TTL must be positive, got %v", c.DescriptionCacheTTL))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, fmt.Errorf("LLM_TIMEOUT must be positive, got %v", c.LLMTimeout))
	}
	for _, p := range c.LLMProviders {
		if !slices.Contains(KnownLLMProviders, p) {
			errs = append(errs, fmt.Errorf("LLM_PROVIDERS contains unknown provider %q", p))
		}
	}
	if c.RetrievalMinMatch < 0 || c.RetrievalMinMatch > 100 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_MIN_MATCH must be within [0, 100], got %v", c.RetrievalMinMatch))
	}
	if c.RetrievalTopN <= 0 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_TOP_N must be positive, got %d", c.RetrievalTopN))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %v", c.SessionTTL))
	}
	if c.ChatRateBurst <= 0 {
		errs = append(errs, fmt.Errorf("CHAT_RATE_BURST must be positive, got %v", c.ChatRateBurst))
	}
	if c.ChatRateRefill < 0 {
		errs = append(errs, fmt.Errorf("CHAT_RATE_REFILL cannot be negative, got %v", c.ChatRateRefill))
	}
	if c.ChatRateDaily < 0 {
		errs = append(errs, fmt.Errorf("CHAT_RATE_DAILY cannot be negative, got %d", c.ChatRateDaily))
	}
	if (c.LineChannelSecret == "") != (c.LineChannelToken == "") {
		errs = append(errs, errors.New("LINE_CHANNEL_SECRET and LINE_CHANNEL_ACCESS_TOKEN must be set together"))
	}
	if c.CatalogFromR2() && !c.HasR2() {
		errs = append(errs, errors.New("CATALOG_SOURCE uses r2:// but R2 credentials are incomplete"))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("SENTRY_SAMPLE_RATE must be within [0, 1], got %v", c.SentrySampleRate))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping blanks.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "courses.db")
}

// HasLLMProvider returns true if at least one LLM provider is configured.
func (c *Config) HasLLMProvider() bool {
	return c.GeminiAPIKey != "" || c.GroqAPIKey != "" || c.CerebrasAPIKey != ""
}

// HasLINE reports whether the LINE webhook should be mounted.
func (c *Config) HasLINE() bool {
	return c.LineChannelSecret != "" && c.LineChannelToken != ""
}

// HasR2 reports whether every R2 credential is present.
func (c *Config) HasR2() bool {
	return c.R2Endpoint != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2Bucket != ""
}

// CatalogFromR2 reports whether the catalog source is an R2 object key.
func (c *Config) CatalogFromR2() bool {
	return strings.HasPrefix(c.CatalogSource, R2SourcePrefix)
}

// CatalogR2Key returns the object key of an r2:// catalog source.
func (c *Config) CatalogR2Key() string {
	return strings.TrimPrefix(c.CatalogSource, R2SourcePrefix)
}
