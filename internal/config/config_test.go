package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                "10000",
		LogLevel:            "info",
		ShutdownTimeout:     GracefulShutdown,
		DataDir:             "/tmp/data",
		CatalogSource:       "/tmp/data/udemy_courses.csv",
		DescriptionCacheTTL: 24 * time.Hour,
		LLMProviders:        KnownLLMProviders,
		LLMTimeout:          LLMRequest,
		RetrievalMinMatch:   50,
		RetrievalTopN:       10,
		SessionTTL:          30 * time.Minute,
		ChatRateBurst:       20,
		ChatRateRefill:      0.5,
		ChatRateDaily:       500,
		SentrySampleRate:    1,
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvCatalogSource, "courses.csv")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "10000", cfg.Port)
	assert.InDelta(t, 50.0, cfg.RetrievalMinMatch, 1e-9)
	assert.Equal(t, 10, cfg.RetrievalTopN)
	assert.True(t, cfg.GuidedRefinement)
	assert.Equal(t, KnownLLMProviders, cfg.LLMProviders)
	assert.Equal(t, LLMRequest, cfg.LLMTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.DescriptionCacheTTL)
	assert.False(t, cfg.HasLINE())
	assert.False(t, cfg.CatalogFromR2())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvCatalogSource, "courses.csv")
	t.Setenv(EnvRetrievalMinMatch, "35.5")
	t.Setenv(EnvRetrievalTopN, "5")
	t.Setenv(EnvGuidedRefinement, "false")
	t.Setenv(EnvLLMProviders, " Groq, gemini ,")
	t.Setenv(EnvSessionTTL, "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 35.5, cfg.RetrievalMinMatch, 1e-9)
	assert.Equal(t, 5, cfg.RetrievalTopN)
	assert.False(t, cfg.GuidedRefinement)
	assert.Equal(t, []string{"groq", "gemini"}, cfg.LLMProviders)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvCatalogSource, "courses.csv")
	t.Setenv(EnvRetrievalTopN, "ten")
	t.Setenv(EnvCatalogWatch, "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.RetrievalTopN)
	assert.False(t, cfg.CatalogWatch)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing port", func(c *Config) { c.Port = "" }, "PORT is required"},
		{"min match out of range", func(c *Config) { c.RetrievalMinMatch = 120 }, "RETRIEVAL_MIN_MATCH"},
		{"top n zero", func(c *Config) { c.RetrievalTopN = 0 }, "RETRIEVAL_TOP_N"},
		{"unknown provider", func(c *Config) { c.LLMProviders = []string{"gemini", "claude"} }, `unknown provider "claude"`},
		{"half LINE config", func(c *Config) { c.LineChannelSecret = "s" }, "must be set together"},
		{"r2 source without credentials", func(c *Config) { c.CatalogSource = "r2://catalog/udemy.csv.zst" }, "R2 credentials"},
		{"negative daily limit", func(c *Config) { c.ChatRateDaily = -1 }, "CHAT_RATE_DAILY"},
		{"zero description ttl", func(c *Config) { c.DescriptionCacheTTL = 0 }, "DESCRIPTION_CACHE_TTL"},
		{"sentry sample rate", func(c *Config) { c.SentrySampleRate = 2 }, "SENTRY_SAMPLE_RATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_JoinsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Port = ""
	cfg.DataDir = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, 2, strings.Count(err.Error(), "is required"))
}

func TestCatalogR2Key(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.CatalogSource = "r2://catalog/udemy.csv.zst"
	cfg.R2Endpoint, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2Bucket = "https://r2", "id", "secret", "bucket"

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.CatalogFromR2())
	assert.Equal(t, "catalog/udemy.csv.zst", cfg.CatalogR2Key())
}

func TestSQLitePath(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	assert.True(t, strings.HasSuffix(cfg.SQLitePath(), "courses.db"))
}
