package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatCompletionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "test-model",
  "choices": [{"index": 0, "finish_reason": "stop",
    "message": {"role": "assistant", "content": " {\"keywords\":[\"python\"]} "}}],
  "usage": {"prompt_tokens": 3, "completion_tokens": 5, "total_tokens": 8}
}`

// newCapturingGenerator points a generator at a server that records each
// request body and answers with a fixed completion.
func newCapturingGenerator(t *testing.T) (*openaiGenerator, *[]map[string]any) {
	t.Helper()
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var body map[string]any
		assert.NoError(t, json.Unmarshal(raw, &body))
		bodies = append(bodies, body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletionBody)
	}))
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithBaseURL(srv.URL+"/"),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return &openaiGenerator{client: client, model: "test-model", provider: ProviderGroq}, &bodies
}

func TestOpenAIGenerator_ResponseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		json       bool
		wantFormat any
	}{
		{name: "json requested", json: true, wantFormat: map[string]any{"type": "json_object"}},
		{name: "plain text", json: false, wantFormat: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, bodies := newCapturingGenerator(t)

			text, err := g.Generate(context.Background(), Request{
				Operation:       OpParse,
				Prompt:          "extract filters",
				JSON:            tt.json,
				MaxOutputTokens: 64,
			})
			require.NoError(t, err)
			assert.JSONEq(t, `{"keywords":["python"]}`, text)

			require.Len(t, *bodies, 1)
			body := (*bodies)[0]
			assert.Equal(t, "test-model", body["model"])
			assert.Equal(t, tt.wantFormat, body["response_format"])
		})
	}
}
