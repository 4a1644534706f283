package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/garyellow/course-advisor/internal/config"
	"github.com/garyellow/course-advisor/internal/dialogue"
	"github.com/garyellow/course-advisor/internal/logger"
	"github.com/garyellow/course-advisor/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogCSV = `course_id,course_title,url,is_paid,price,num_subscribers,num_reviews,num_lectures,level,content_duration,published_timestamp,subject
1,Learn Python Programming,https://example.com/1,True,200,1200,40,30,Beginner Level,4,2017-01-18T20:58:58Z,Web Development
2,Python for Data Science,https://example.com/2,True,500,800,20,45,Intermediate Level,9,2016-05-02T10:00:00Z,Business Finance
3,Complete Python Bootcamp,https://example.com/3,False,Free,5000,300,80,All Levels,20,2015-03-09T16:34:20Z,Web Development
4,Guitar for Beginners,https://example.com/4,False,Free,900,15,12,Beginner Level,2,2014-07-01T08:00:00Z,Musical Instruments
5,Advanced Guitar Techniques,https://example.com/5,True,50,300,9,25,Expert Level,6,2016-11-20T12:00:00Z,Musical Instruments
6,Excel for Business,https://example.com/6,True,20,2500,110,40,All Levels,5,2017-02-14T09:30:00Z,Business Finance
`

type testApp struct {
	*Application
	router *gin.Engine
}

// setupTestApp creates an Application on a temp directory with an offline
// dialogue stack. The catalog is not imported.
func setupTestApp(t *testing.T, mutate ...func(*config.Config)) *testApp {
	t.Helper()
	cfg := newTestConfig(t, mutate...)

	ctx := context.Background()
	db, err := storage.New(ctx, cfg.SQLitePath(), cfg.DescriptionCacheTTL)
	require.NoError(t, err)

	a, err := newApplication(ctx, cfg, logger.New("error"), db, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(a.closeResources)

	return &testApp{Application: a, router: a.routes()}
}

// newTestConfig writes the test catalog to a temp directory and returns a
// config pointing at it.
func newTestConfig(t *testing.T, mutate ...func(*config.Config)) *config.Config {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "courses.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testCatalogCSV), 0o600))

	cfg := &config.Config{
		Port:                "0",
		LogLevel:            "error",
		ShutdownTimeout:     time.Second,
		DataDir:             dir,
		CatalogSource:       csvPath,
		DescriptionCacheTTL: time.Hour,
		LLMTimeout:          time.Second,
		RetrievalMinMatch:   50,
		RetrievalTopN:       10,
		SessionTTL:          time.Hour,
		ChatRateBurst:       100,
		ChatRateRefill:      10,
		MetricsUsername:     "prometheus",
	}
	for _, fn := range mutate {
		fn(cfg)
	}
	return cfg
}

func (a *testApp) importCatalog(t *testing.T) {
	t.Helper()
	require.NoError(t, a.Application.importCatalog(context.Background()))
}

func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *testApp) chat(t *testing.T, sessionID, message string) chatResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/chat", chatRequest{SessionID: sessionID, Message: message})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[chatResponse](t, w)
}

func TestLivenessCheck(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		w := app.do(t, method, "/livez", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	body := decode[map[string]any](t, app.do(t, http.MethodGet, "/livez", nil))
	assert.Equal(t, "alive", body["status"])
}

func TestReadinessCheck(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)

	w := app.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "catalog index loading", decode[map[string]any](t, w)["reason"])

	app.importCatalog(t)

	w = app.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ready", body["status"])
	index := body["index"].(map[string]any)
	assert.InDelta(t, 6, index["courses"], 0)
	features := body["features"].(map[string]any)
	assert.Equal(t, false, features["llm"])
	assert.Equal(t, false, features["line"])
}

func TestReadinessCheck_DatabaseClosed(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	app.importCatalog(t)
	require.NoError(t, app.db.Close())

	w := app.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "database unavailable", decode[map[string]any](t, w)["reason"])
}

func TestChat_RejectedUntilIndexReady(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)

	w := app.do(t, http.MethodPost, "/api/chat", chatRequest{Message: "python"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
}

func TestChat_RecommendationFlow(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	app.importCatalog(t)

	first := app.chat(t, "", "python web development")
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, dialogue.KindResults, first.Reply.Kind)
	assert.Equal(t, 2, first.Reply.Total)
	require.Len(t, first.Reply.Results, 2)
	assert.Equal(t, 1, first.Reply.Results[0].Course.ID)

	// The same session remembers the search.
	w := app.do(t, http.MethodGet, "/api/sessions/"+first.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[dialogue.Snapshot](t, w)
	assert.Equal(t, first.SessionID, snap.ID)
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, "python web development", snap.State.LastQuery)

	second := app.chat(t, first.SessionID, "hello")
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, dialogue.KindChitChat, second.Reply.Kind)
}

func TestChat_Validation(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	app.importCatalog(t)

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", "not an object"},
		{"message too long", chatRequest{Message: strings.Repeat("a", 1001)}},
		{"reserved session id", chatRequest{SessionID: "line:U123", Message: "python"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(t, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestChat_RateLimited(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t, func(cfg *config.Config) {
		cfg.ChatRateBurst = 1
		cfg.ChatRateRefill = 0.01
	})
	app.importCatalog(t)

	app.chat(t, "session-a", "hello")

	w := app.do(t, http.MethodPost, "/api/chat", chatRequest{SessionID: "session-a", Message: "hello"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Other sessions have their own bucket.
	app.chat(t, "session-b", "hello")
}

func TestSessionResults_Paging(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t, func(cfg *config.Config) { cfg.RetrievalMinMatch = 0 })
	app.importCatalog(t)

	resp := app.chat(t, "pager", "python web development")
	require.Equal(t, dialogue.KindResults, resp.Reply.Kind)
	total := len(resp.Reply.Results)
	require.Greater(t, total, 2)

	w := app.do(t, http.MethodGet, "/api/sessions/pager/results?page=2&size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[resultsResponse](t, w)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.Size)
	assert.Equal(t, (total+1)/2, page.Pages)
	assert.Equal(t, resp.Reply.Results[2].Course.ID, page.Results[0].Course.ID)

	beyond := decode[resultsResponse](t, app.do(t, http.MethodGet, "/api/sessions/pager/results?page=99", nil))
	assert.Empty(t, beyond.Results)

	for _, query := range []string{"page=0", "page=x", "size=0", "size=51"} {
		w := app.do(t, http.MethodGet, "/api/sessions/pager/results?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}

	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/api/sessions/unknown/results", nil).Code)
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	app.importCatalog(t)

	app.chat(t, "to-delete", "hello")

	assert.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, "/api/sessions/to-delete", nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodDelete, "/api/sessions/to-delete", nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/api/sessions/to-delete", nil).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodDelete, "/api/sessions/line:U1", nil).Code)
}

func TestGetCourse(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	app.importCatalog(t)

	w := app.do(t, http.MethodGet, "/api/courses/3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[courseResponse](t, w)
	assert.Equal(t, "complete python bootcamp", body.Course.Title)
	assert.False(t, body.Course.IsPaid)
	assert.NotEmpty(t, body.Description)

	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/api/courses/999", nil).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/api/courses/abc", nil).Code)
}

func TestCatalogStats(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	app.importCatalog(t)

	w := app.do(t, http.MethodGet, "/api/catalog/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.InDelta(t, 6, body["courses"], 0)
	assert.InDelta(t, 2, body["free"], 0)
	assert.Equal(t, app.source.String(), body["source"])
	assert.Contains(t, body, "imported_at")
	assert.Contains(t, body, "index")
}

func TestImportCatalog_FailureKeepsIndex(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	app.importCatalog(t)
	before := app.retriever.Index()

	path := app.source.String()
	require.NoError(t, os.WriteFile(path, []byte("course_id,course_title\n"), 0o600))

	require.Error(t, app.Application.importCatalog(context.Background()))
	assert.Same(t, before, app.retriever.Index())
}

func TestLoadCatalog_RestoresFromDatabase(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	app.importCatalog(t)

	// A fresh index engine with a broken source falls back to stored rows.
	require.NoError(t, os.Remove(app.source.String()))
	app.retriever.Swap(nil)
	require.False(t, app.retriever.Ready())

	app.loadCatalog(context.Background())
	require.True(t, app.retriever.Ready())
	assert.Equal(t, 6, app.retriever.Index().Len())
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	open := setupTestApp(t)
	w := open.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	guarded := setupTestApp(t, func(cfg *config.Config) { cfg.MetricsPassword = "secret" })
	assert.Equal(t, http.StatusUnauthorized, guarded.do(t, http.MethodGet, "/metrics", nil).Code)
}

func TestRoutes_WebhookOnlyWithLINE(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodPost, "/webhook", nil).Code)

	line := setupTestApp(t, func(cfg *config.Config) {
		cfg.LineChannelSecret = "secret"
		cfg.LineChannelToken = "token"
	})
	require.NotNil(t, line.webhookHandler)
	// The webhook waits for the catalog like the chat API.
	assert.Equal(t, http.StatusServiceUnavailable, line.do(t, http.MethodPost, "/webhook", nil).Code)
}

func TestBuildLLMConfig(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		LLMProviders: []string{"groq", "gemini"},
		LLMTimeout:   7 * time.Second,
		GroqAPIKey:   "groq-key",
		GroqModels:   []string{"custom-model"},
	}

	llmCfg := buildLLMConfig(cfg)
	assert.Len(t, llmCfg.Providers, 2)
	assert.Equal(t, "groq", llmCfg.Providers[0].String())
	assert.Equal(t, []string{"custom-model"}, llmCfg.Groq.Models)
	assert.NotEmpty(t, llmCfg.Gemini.Models, "defaults kept")
	assert.Equal(t, 7*time.Second, llmCfg.Timeout)
	assert.Len(t, llmCfg.ConfiguredProviders(), 1)
}
