package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	// Data
	EnvDataDir       = "DATA_DIR"
	EnvCatalogSource = "CATALOG_SOURCE"
	EnvCatalogWatch  = "CATALOG_WATCH"

	EnvDescriptionCacheTTL = "DESCRIPTION_CACHE_TTL"

	// LLM
	EnvLLMProviders   = "LLM_PROVIDERS"
	EnvLLMTimeout     = "LLM_TIMEOUT"
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvGroqAPIKey     = "GROQ_API_KEY"
	EnvCerebrasAPIKey = "CEREBRAS_API_KEY"
	EnvGeminiModels   = "GEMINI_MODELS"
	EnvGroqModels     = "GROQ_MODELS"
	EnvCerebrasModels = "CEREBRAS_MODELS"

	// Retrieval and dialogue
	EnvRetrievalMinMatch = "RETRIEVAL_MIN_MATCH"
	EnvRetrievalTopN     = "RETRIEVAL_TOP_N"
	EnvGuidedRefinement  = "DIALOGUE_GUIDED_REFINEMENT"
	EnvSessionTTL        = "SESSION_TTL"

	// Rate limits
	EnvChatRateBurst  = "CHAT_RATE_BURST"
	EnvChatRateRefill = "CHAT_RATE_REFILL"
	EnvChatRateDaily  = "CHAT_RATE_DAILY"

	// Metrics auth
	EnvMetricsUsername = "METRICS_USERNAME"
	EnvMetricsPassword = "METRICS_PASSWORD"

	// LINE channel
	EnvLineChannelSecret      = "LINE_CHANNEL_SECRET"
	EnvLineChannelAccessToken = "LINE_CHANNEL_ACCESS_TOKEN"

	// R2 catalog source
	EnvR2Endpoint        = "R2_ENDPOINT"
	EnvR2AccessKeyID     = "R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "R2_SECRET_ACCESS_KEY"
	EnvR2Bucket          = "R2_BUCKET"

	// Sentry
	EnvSentryToken       = "SENTRY_TOKEN"
	EnvSentryHost        = "SENTRY_HOST"
	EnvSentryEnvironment = "SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "SENTRY_SAMPLE_RATE"

	// Better Stack
	EnvBetterStackToken    = "BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "BETTERSTACK_ENDPOINT"
)
