package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestSessionIDContext(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		if got := GetSessionID(context.Background()); got != "" {
			t.Errorf("Expected empty string, got %s", got)
		}
	})

	t.Run("with session ID", func(t *testing.T) {
		t.Parallel()
		ctx := WithSessionID(context.Background(), "sess-1")
		if got := GetSessionID(ctx); got != "sess-1" {
			t.Errorf("Expected sess-1, got %s", got)
		}
	})

	t.Run("empty value is treated as missing", func(t *testing.T) {
		t.Parallel()
		ctx := WithSessionID(context.Background(), "")
		if got := GetSessionID(ctx); got != "" {
			t.Errorf("Expected empty string, got %s", got)
		}
	})
}

func TestChatIDContext(t *testing.T) {
	t.Parallel()

	ctx := WithChatID(context.Background(), "U1234567890")
	if got := GetChatID(ctx); got != "U1234567890" {
		t.Errorf("Expected U1234567890, got %s", got)
	}
	if got := GetChatID(context.Background()); got != "" {
		t.Errorf("Expected empty string, got %s", got)
	}
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	if _, ok := GetRequestID(context.Background()); ok {
		t.Error("Expected ok=false on empty context")
	}

	ctx := WithRequestID(context.Background(), "req-123")
	id, ok := GetRequestID(ctx)
	if !ok || id != "req-123" {
		t.Errorf("GetRequestID() = (%q, %v), want (req-123, true)", id, ok)
	}
}

func TestChannelContext(t *testing.T) {
	t.Parallel()

	ctx := WithChannel(context.Background(), ChannelLINE)
	if got := GetChannel(ctx); got != ChannelLINE {
		t.Errorf("GetChannel() = %q, want %q", got, ChannelLINE)
	}
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithSessionID(parent, "sess-9")
	parent = WithChatID(parent, "C1")
	parent = WithRequestID(parent, "req-9")
	parent = WithChannel(parent, ChannelHTTP)
	cancel()

	detached := PreserveTracing(parent)

	if detached.Err() != nil {
		t.Errorf("detached context should not be cancelled, got %v", detached.Err())
	}
	if _, ok := detached.Deadline(); ok {
		t.Error("detached context should have no deadline")
	}
	if got := GetSessionID(detached); got != "sess-9" {
		t.Errorf("session ID = %q, want sess-9", got)
	}
	if got := GetChatID(detached); got != "C1" {
		t.Errorf("chat ID = %q, want C1", got)
	}
	if got, _ := GetRequestID(detached); got != "req-9" {
		t.Errorf("request ID = %q, want req-9", got)
	}
	if got := GetChannel(detached); got != ChannelHTTP {
		t.Errorf("channel = %q, want %q", got, ChannelHTTP)
	}
}

func TestPreserveTracing_EmptyContext(t *testing.T) {
	t.Parallel()

	detached := PreserveTracing(context.Background())
	if GetSessionID(detached) != "" || GetChannel(detached) != "" {
		t.Error("expected no tracing values on detached empty context")
	}
}
