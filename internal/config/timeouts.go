package config

import "time"

// HTTP server timeouts
const (
	// HTTPRead bounds reading a request, including the small JSON bodies of
	// /api/chat and the LINE webhook.
	HTTPRead = 10 * time.Second

	// HTTPWrite must cover ChatTurn plus response serialization.
	HTTPWrite = 65 * time.Second

	// HTTPIdle is the keep-alive idle timeout.
	HTTPIdle = 120 * time.Second
)

// Conversation timeouts
const (
	// ChatTurn bounds a single dialogue turn. A turn may make up to three LLM
	// calls (intent, parse, response text), each bounded by LLMRequest.
	ChatTurn = 60 * time.Second

	// LLMRequest is the default per-call LLM timeout, including retries.
	LLMRequest = 15 * time.Second

	// LINELoadingSeconds is how long the LINE loading animation is requested for.
	LINELoadingSeconds = 20

	// LINEReplyRPS caps Messaging API reply calls across all chats.
	LINEReplyRPS = 50
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Background job intervals
const (
	// MetricsUpdateInterval is how often gauge metrics are refreshed.
	MetricsUpdateInterval = time.Minute

	// RateLimiterCleanupInterval is how often idle per-session limiters are removed.
	RateLimiterCleanupInterval = 5 * time.Minute

	// CatalogReloadDebounce coalesces bursts of file events from editors and
	// copy tools into a single reload.
	CatalogReloadDebounce = 2 * time.Second

	// CatalogImport bounds a full catalog load and index build.
	CatalogImport = 5 * time.Minute
)

// Health and shutdown
const (
	// ReadinessCheckTimeout bounds the database ping in /readyz.
	ReadinessCheckTimeout = 3 * time.Second

	// GracefulShutdown is the default timeout for graceful server shutdown.
	GracefulShutdown = 30 * time.Second
)
