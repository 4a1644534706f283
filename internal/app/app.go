// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/garyellow/course-advisor/internal/buildinfo"
	"github.com/garyellow/course-advisor/internal/catalog"
	"github.com/garyellow/course-advisor/internal/config"
	"github.com/garyellow/course-advisor/internal/dialogue"
	"github.com/garyellow/course-advisor/internal/genai"
	"github.com/garyellow/course-advisor/internal/logger"
	"github.com/garyellow/course-advisor/internal/metrics"
	"github.com/garyellow/course-advisor/internal/r2client"
	"github.com/garyellow/course-advisor/internal/ratelimit"
	"github.com/garyellow/course-advisor/internal/retrieval"
	"github.com/garyellow/course-advisor/internal/sentry"
	"github.com/garyellow/course-advisor/internal/storage"
	"github.com/garyellow/course-advisor/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	db             *storage.DB
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	source         catalog.Source
	retriever      *retrieval.Engine
	llm            *genai.Chain
	engine         *dialogue.Engine
	sessions       *dialogue.Store
	details        *courseDetails
	chatLimiter    *ratelimit.KeyedLimiter
	lineLimiter    *ratelimit.KeyedLimiter
	webhookHandler *webhook.Handler // nil when LINE is not configured
	server         *http.Server
	importMu       sync.Mutex     // Serializes catalog imports
	wg             sync.WaitGroup // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", "course-advisor")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Set as default logger so package-level slog.*Context() calls carry
	// session and request ids.
	slog.SetDefault(log.Logger)

	log.WithField("version", buildinfo.String()).Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Version,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed, error reporting disabled")
	} else if sentry.IsEnabled() {
		log.WithField("host", cfg.SentryHost).Info("Error reporting enabled")
	}

	db, err := storage.New(ctx, cfg.SQLitePath(), cfg.DescriptionCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).WithField("cache_ttl", cfg.DescriptionCacheTTL).Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)

	app, err := newApplication(ctx, cfg, log, db, registry)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.routes(),
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// newApplication wires the conversation stack on top of an open database.
func newApplication(ctx context.Context, cfg *config.Config, log *logger.Logger, db *storage.DB, registry *prometheus.Registry) (*Application, error) {
	m := metrics.New(registry)

	var objects catalog.ObjectDownloader
	if cfg.HasR2() {
		client, err := r2client.New(ctx, r2client.Config{
			Endpoint:    cfg.R2Endpoint,
			AccessKeyID: cfg.R2AccessKeyID,
			SecretKey:   cfg.R2SecretAccessKey,
			BucketName:  cfg.R2Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("r2: %w", err)
		}
		objects = client
	}
	source, err := catalog.NewSource(cfg.CatalogSource, objects)
	if err != nil {
		return nil, fmt.Errorf("catalog source: %w", err)
	}

	retriever := retrieval.NewEngine(retrieval.Options{
		MinMatchPercent: cfg.RetrievalMinMatch,
		TopN:            cfg.RetrievalTopN,
	}, m)

	var llm *genai.Chain
	if cfg.HasLLMProvider() {
		llm = genai.NewChainFromConfig(ctx, buildLLMConfig(cfg), log, m)
	}
	writer := genai.NewWriter(llm, retriever)

	engine := dialogue.NewEngine(dialogue.Config{
		Parser:           genai.NewQueryParser(llm),
		Classifier:       genai.NewIntentClassifier(llm),
		Writer:           writer,
		Retriever:        retriever,
		Logger:           log,
		Metrics:          m,
		GuidedRefinement: cfg.GuidedRefinement,
	})

	app := &Application{
		cfg:       cfg,
		logger:    log,
		db:        db,
		metrics:   m,
		registry:  registry,
		source:    source,
		retriever: retriever,
		llm:       llm,
		engine:    engine,
		sessions:  dialogue.NewStore(cfg.SessionTTL, m),
		details:   newCourseDetails(retriever, db, writer, m, log),
		chatLimiter: ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
			Name:          "chat",
			Burst:         cfg.ChatRateBurst,
			RefillRate:    cfg.ChatRateRefill,
			DailyLimit:    cfg.ChatRateDaily,
			CleanupPeriod: config.RateLimiterCleanupInterval,
			Metrics:       m,
		}),
	}

	if cfg.HasLINE() {
		if err := app.initWebhook(); err != nil {
			app.chatLimiter.Stop()
			return nil, fmt.Errorf("webhook: %w", err)
		}
		log.Info("LINE webhook enabled")
	}

	return app, nil
}

func (a *Application) initWebhook() error {
	client, err := webhook.NewMessenger(a.cfg.LineChannelToken)
	if err != nil {
		return err
	}
	a.lineLimiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "line",
		Burst:         a.cfg.ChatRateBurst,
		RefillRate:    a.cfg.ChatRateRefill,
		DailyLimit:    a.cfg.ChatRateDaily,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       a.metrics,
	})
	a.webhookHandler, err = webhook.NewHandler(a.cfg.LineChannelSecret, client, a.engine, a.sessions, a.details,
		webhook.WithLogger(a.logger),
		webhook.WithMetrics(a.metrics),
		webhook.WithChatLimiter(a.lineLimiter),
		webhook.WithReplyRate(config.LINEReplyRPS),
	)
	if err != nil {
		a.lineLimiter.Stop()
	}
	return err
}

// buildLLMConfig creates an LLMConfig from the application config.
func buildLLMConfig(cfg *config.Config) genai.LLMConfig {
	llmCfg := genai.DefaultLLMConfig()

	llmCfg.Gemini.APIKey = cfg.GeminiAPIKey
	llmCfg.Groq.APIKey = cfg.GroqAPIKey
	llmCfg.Cerebras.APIKey = cfg.CerebrasAPIKey

	if len(cfg.GeminiModels) > 0 {
		llmCfg.Gemini.Models = cfg.GeminiModels
	}
	if len(cfg.GroqModels) > 0 {
		llmCfg.Groq.Models = cfg.GroqModels
	}
	if len(cfg.CerebrasModels) > 0 {
		llmCfg.Cerebras.Models = cfg.CerebrasModels
	}
	if cfg.LLMTimeout > 0 {
		llmCfg.Timeout = cfg.LLMTimeout
	}
	if len(cfg.LLMProviders) > 0 {
		providers := make([]genai.Provider, 0, len(cfg.LLMProviders))
		for _, p := range cfg.LLMProviders {
			switch p {
			case "gemini":
				providers = append(providers, genai.ProviderGemini)
			case "groq":
				providers = append(providers, genai.ProviderGroq)
			case "cerebras":
				providers = append(providers, genai.ProviderCerebras)
			default:
				slog.Warn("ignoring unknown provider", "name", p)
			}
		}
		if len(providers) > 0 {
			llmCfg.Providers = providers
		}
	}

	return llmCfg
}

// Run starts the HTTP server and background jobs.
//
// Shutdown order:
//  1. Receive shutdown signal (SIGINT/SIGTERM)
//  2. Cancel context so background jobs stop
//  3. Wait for background jobs (catalog import, watcher, metrics)
//  4. Close resources (HTTP server, webhook handler, LLM clients, database, rate limiters)
//
// Jobs finish before the database closes so an import never writes to a
// closed handle.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startBackgroundJobs starts all background goroutines tracked by WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.loadCatalog(ctx)
		if a.cfg.CatalogWatch {
			a.watchCatalog(ctx)
		}
	})
	a.wg.Go(func() {
		a.updateGaugeMetrics(ctx)
	})
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops the HTTP server and releases resources. Call it after
// background jobs have returned.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if a.webhookHandler != nil {
		a.logger.Info("Waiting for webhook events to complete...")
		if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
		}
	}

	a.logger.Info("Closing resources...")
	a.closeResources()

	sentry.Flush(2 * time.Second)
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

func (a *Application) closeResources() {
	if err := a.llm.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "llm").Error("Component close error")
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}
	a.chatLimiter.Stop()
	if a.lineLimiter != nil {
		a.lineLimiter.Stop()
	}
	a.sessions.Flush()
}

// updateGaugeMetrics periodically records session and limiter gauges.
func (a *Application) updateGaugeMetrics(ctx context.Context) {
	a.logger.Debug("Gauge metrics job started")
	defer a.logger.Debug("Gauge metrics job stopped")

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.recordGaugeMetrics()
		}
	}
}

func (a *Application) recordGaugeMetrics() {
	a.metrics.SetSessionsActive(a.sessions.Count())
	a.metrics.SetRateLimiterKeys("chat", a.chatLimiter.ActiveCount())
	if a.lineLimiter != nil {
		a.metrics.SetRateLimiterKeys("line", a.lineLimiter.ActiveCount())
	}
}
