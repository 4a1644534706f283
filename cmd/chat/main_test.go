package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/course-advisor/internal/tui"
)

func TestLoadChatConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    chatConfig
		wantErr bool
	}{
		{
			name: "missing file uses defaults",
			want: chatConfig{TimeoutSecs: defaultTimeoutSecs, Title: defaultTitle},
		},
		{
			name:    "values override defaults",
			content: "server: http://localhost:10000\nsession_id: abc\ntimeout_secs: 5\ntitle: Advisor\n",
			want:    chatConfig{Server: "http://localhost:10000", SessionID: "abc", TimeoutSecs: 5, Title: "Advisor"},
		},
		{
			name:    "non-positive timeout falls back",
			content: "timeout_secs: -1\n",
			want:    chatConfig{TimeoutSecs: defaultTimeoutSecs, Title: defaultTitle},
		},
		{
			name:    "malformed yaml",
			content: "server: [unterminated\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "chat.yaml")
			if tt.content != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			}

			cfg, err := loadChatConfig(path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *cfg)
		})
	}
}

func TestChatConfigTimeout(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 5*time.Second, (&chatConfig{TimeoutSecs: 5}).timeout())
}

func TestNewClient_Server(t *testing.T) {
	t.Parallel()
	cfg := &chatConfig{Server: "http://localhost:10000", SessionID: "abc", TimeoutSecs: 1}

	client, closeFn, err := newClient(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	httpClient, ok := client.(*tui.HTTPClient)
	require.True(t, ok)
	assert.Equal(t, "abc", httpClient.SessionID())
}
