package webhook

import (
	"time"

	"github.com/garyellow/course-advisor/internal/logger"
	"github.com/garyellow/course-advisor/internal/metrics"
	"github.com/garyellow/course-advisor/internal/ratelimit"
)

// HandlerOption configures optional Handler behavior.
type HandlerOption func(*Handler)

func WithLogger(log *logger.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = log
	}
}

func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithChatLimiter throttles each LINE chat independently.
func WithChatLimiter(l *ratelimit.KeyedLimiter) HandlerOption {
	return func(h *Handler) {
		h.chatLimiter = l
	}
}

// WithReplyRate caps outgoing Messaging API calls across all chats.
func WithReplyRate(rps float64) HandlerOption {
	return func(h *Handler) {
		if rps > 0 {
			h.replyLimiter = ratelimit.New(rps, rps)
		}
	}
}

// WithTurnTimeout bounds the work done for a single event.
func WithTurnTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.turnTimeout = d
		}
	}
}

// WithLoadingSeconds sets the loading animation length; 0 disables it.
func WithLoadingSeconds(seconds int32) HandlerOption {
	return func(h *Handler) {
		h.loadingSeconds = seconds
	}
}

// WithMaxEvents caps how many events of one delivery are processed.
func WithMaxEvents(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxEvents = n
		}
	}
}
