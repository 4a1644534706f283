package genai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ErrorAction is what the model chain does after a failed call.
type ErrorAction int

const (
	// ActionRetry retries the same model after a backoff.
	ActionRetry ErrorAction = iota
	// ActionFallback skips to the next model or provider.
	ActionFallback
	// ActionFail stops the chain.
	ActionFail
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// ErrNoProvider is returned when no model is configured.
var ErrNoProvider = errors.New("genai: no LLM provider configured")

// ErrEmptyResponse is returned when a model answers with no text.
var ErrEmptyResponse = errors.New("genai: empty response from model")

// LLMError wraps an upstream error with its provider and HTTP status.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
	Model      string
}

func (e *LLMError) Error() string {
	msg := string(e.Provider) + "/" + e.Model + ": " + e.Err.Error()
	if e.StatusCode > 0 {
		msg += " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return msg
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// ClassifyError maps an error to an action:
//   - transient errors (429, 5xx, timeouts, network) are retried
//   - quota exhaustion and model-specific rejections fall back
//   - cancellation fails immediately
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}
	if errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}
	if errors.Is(err, ErrEmptyResponse) {
		return ActionFallback
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "quota", "daily limit", "monthly limit", "billing"):
		return ActionFallback
	case containsAny(msg, "429", "rate limit", "too many requests", "resource_exhausted"):
		return ActionRetry
	case containsAny(msg, "500", "502", "503", "504", "unavailable", "internal server error",
		"bad gateway", "gateway timeout", "overloaded", "capacity"):
		return ActionRetry
	case containsAny(msg, "408", "409", "timeout", "deadline", "connection"):
		return ActionRetry
	case containsAny(msg, "400", "401", "403", "404", "422", "invalid", "unauthorized",
		"unauthenticated", "forbidden", "permission denied", "not found", "unprocessable"):
		// The next model or provider may still accept the request.
		return ActionFallback
	default:
		return ActionRetry
	}
}

func classifyStatusCode(code int) ErrorAction {
	switch {
	case code == http.StatusTooManyRequests,
		code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code >= 500 && code < 600:
		return ActionRetry
	case code >= 400 && code < 500:
		return ActionFallback
	default:
		return ActionRetry
	}
}

// IsRetryable returns true if the error is transient.
func IsRetryable(err error) bool {
	return ClassifyError(err) == ActionRetry
}

// statusLabel maps an error to the status label of the LLM request metric.
func statusLabel(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		switch code := llmErr.StatusCode; {
		case code == http.StatusTooManyRequests:
			return "rate_limit"
		case code >= 500:
			return "server_error"
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return "auth_error"
		case code == http.StatusBadRequest:
			return "invalid_request"
		}
	}

	switch ClassifyError(err) {
	case ActionFallback:
		return "rejected"
	case ActionRetry:
		return "transient_error"
	default:
		return "error"
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// wrapError attaches provider, model and status to err.
func wrapError(err error, provider Provider, model string, statusCode int) error {
	if err == nil {
		return nil
	}
	return &LLMError{Err: err, StatusCode: statusCode, Provider: provider, Model: model}
}
