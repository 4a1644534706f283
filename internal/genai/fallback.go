package genai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyellow/course-advisor/internal/logger"
	"github.com/garyellow/course-advisor/internal/metrics"
)

// Chain tries generators in order. Each generator is retried on transient
// errors; other failures move on to the next generator.
type Chain struct {
	generators []Generator
	retry      RetryConfig
	timeout    time.Duration
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// NewChain creates a chain over generators. A zero timeout means no
// per-call deadline beyond the caller's context.
func NewChain(generators []Generator, retry RetryConfig, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *Chain {
	return &Chain{
		generators: generators,
		retry:      retry,
		timeout:    timeout,
		log:        log.WithModule("genai"),
		metrics:    m,
	}
}

// Len returns the number of generators in the chain.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.generators)
}

// Generate returns the first successful generation.
func (c *Chain) Generate(ctx context.Context, req Request) (string, error) {
	if c.Len() == 0 {
		return "", ErrNoProvider
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var errs []error
	for i, g := range c.generators {
		if i > 0 {
			c.metrics.RecordLLMFallback(req.Operation)
			c.log.InfoContext(ctx, "Falling back to next model",
				"operation", req.Operation,
				"provider", g.Provider(),
				"model", g.Model())
		}

		start := time.Now()
		var text string
		err := WithRetry(ctx, c.retry, func(attempt int, err error) {
			c.log.DebugContext(ctx, "Retrying generation",
				"provider", g.Provider(),
				"model", g.Model(),
				"attempt", attempt,
				"error", err)
		}, func() error {
			var genErr error
			text, genErr = g.Generate(ctx, req)
			return genErr
		})
		c.metrics.RecordLLM(g.Provider().String(), req.Operation, statusLabel(err), time.Since(start))
		if err == nil {
			return text, nil
		}

		errs = append(errs, err)
		c.log.WithError(err).WarnContext(ctx, "Generation failed",
			"operation", req.Operation,
			"provider", g.Provider(),
			"model", g.Model(),
			"action", ClassifyError(err))

		if ctx.Err() != nil || ClassifyError(err) == ActionFail {
			break
		}
	}
	return "", fmt.Errorf("all models failed: %w", errors.Join(errs...))
}

// Close closes every generator.
func (c *Chain) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, g := range c.generators {
		if err := g.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
