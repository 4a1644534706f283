package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/garyellow/course-advisor/internal/catalog"
	"github.com/garyellow/course-advisor/internal/dialogue"
)

// Client is what the chat screen talks to.
type Client interface {
	Send(ctx context.Context, message string) (dialogue.Reply, error)
	Describe(ctx context.Context, courseID int) (catalog.Course, string, error)
}

// HTTPClient talks to a running server's /api endpoints.
type HTTPClient struct {
	baseURL   string
	sessionID string
	http      *http.Client
}

// NewHTTPClient creates a client bound to one conversation.
func NewHTTPClient(baseURL, sessionID string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessionID: sessionID,
		http:      &http.Client{Timeout: timeout},
	}
}

// SessionID returns the conversation id.
func (c *HTTPClient) SessionID() string { return c.sessionID }

// Send implements Client.
func (c *HTTPClient) Send(ctx context.Context, message string) (dialogue.Reply, error) {
	body, err := json.Marshal(map[string]string{"session_id": c.sessionID, "message": message})
	if err != nil {
		return dialogue.Reply{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return dialogue.Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		SessionID string         `json:"session_id"`
		Reply     dialogue.Reply `json:"reply"`
	}
	if err := c.do(req, &out); err != nil {
		return dialogue.Reply{}, err
	}
	return out.Reply, nil
}

// Describe implements Client.
func (c *HTTPClient) Describe(ctx context.Context, courseID int) (catalog.Course, string, error) {
	endpoint := c.baseURL + "/api/courses/" + url.PathEscape(strconv.Itoa(courseID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return catalog.Course{}, "", err
	}

	var out struct {
		Course      catalog.Course `json:"course"`
		Description string         `json:"description"`
	}
	if err := c.do(req, &out); err != nil {
		return catalog.Course{}, "", err
	}
	return out.Course, out.Description, nil
}

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code       int
	Message    string
	RetryAfter string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
	if e.RetryAfter != "" {
		msg += " (retry in " + e.RetryAfter + "s)"
	}
	return msg
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		var body struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &body) != nil || body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Code: resp.StatusCode, Message: body.Error, RetryAfter: resp.Header.Get("Retry-After")}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
