package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnup/eventscout/internal/inference"
	"github.com/lnup/eventscout/internal/logging"
	"github.com/lnup/eventscout/internal/retry"
)

const geminiOK = `{
  "candidates": [{
    "content": {"parts": [{"text": "[{\"title\":"}, {"text": "\"Jazz\"}]"}]},
    "finishReason": "STOP",
    "groundingMetadata": {"groundingChunks": [
      {"web": {"uri": "https://example.com/jazz", "title": "example.com"}},
      {"retrievedContext": {}},
      {"web": {"uri": "https://club.de/programm"}}
    ]}
  }],
  "usageMetadata": {"promptTokenCount": 100, "candidatesTokenCount": 40, "totalTokenCount": 140}
}`

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func testPolicy(rec *sleepRecorder) retry.Policy {
	p := retry.DefaultPolicy()
	p.Sleep = rec.sleep
	return p
}

func newTestGemini(t *testing.T, handler http.HandlerFunc, rec *sleepRecorder) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGeminiClient(GeminiConfig{
		Endpoint: srv.URL,
		Model:    "gemini-2.5-flash",
		Timeout:  5 * time.Second,
		Retry:    testPolicy(rec),
	}, logging.Discard())
}

func TestGeminiGenerateSuccess(t *testing.T) {
	var body map[string]any
	var path, key string
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.URL.Query().Get("key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, geminiOK)
	}, &sleepRecorder{})

	system := TextContent("system")
	res, err := client.Generate(context.Background(), Request{
		APIKey:            "secret",
		SystemInstruction: &system,
		Contents:          []Content{TextContent("prompt")},
		Tools:             []Tool{WebSearchTool()},
	})
	require.NoError(t, err)

	assert.Equal(t, "/gemini-2.5-flash:generateContent", path)
	assert.Equal(t, "secret", key)
	assert.Equal(t, `[{"title":"Jazz"}]`, res.Text)
	assert.Equal(t, []string{"https://example.com/jazz", "https://club.de/programm"}, res.GroundingURLs)
	assert.Equal(t, 140, res.Usage.TotalTokens)
	assert.Equal(t, 1, res.Attempts)

	gen := body["generationConfig"].(map[string]any)
	assert.Equal(t, 0.2, gen["temperature"])
	assert.Equal(t, float64(8192), gen["maxOutputTokens"])
	_, hasMime := gen["response_mime_type"]
	assert.False(t, hasMime, "tools and JSON mime type are mutually exclusive")
	assert.Contains(t, body, "system_instruction")
	assert.Equal(t, []any{map[string]any{"google_search": map[string]any{}}}, body["tools"])
}

func TestGeminiRequestsJSONWithoutTools(t *testing.T) {
	var body map[string]any
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"[]"}]}}]}`)
	}, &sleepRecorder{})

	res, err := client.Generate(context.Background(), Request{
		APIKey:      "k",
		Contents:    []Content{TextContent("x")},
		Temperature: Float(0.1),
	})
	require.NoError(t, err)
	assert.Equal(t, "[]", res.Text)
	assert.NotNil(t, res.GroundingURLs)
	assert.Empty(t, res.GroundingURLs)

	gen := body["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", gen["response_mime_type"])
	assert.Equal(t, 0.1, gen["temperature"])
	assert.NotContains(t, body, "tools")
}

func TestGeminiRetriesRateLimit(t *testing.T) {
	var calls int32
	rec := &sleepRecorder{}
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"code":429}}`)
			return
		}
		_, _ = io.WriteString(w, geminiOK)
	}, rec)

	res, err := client.Generate(context.Background(), Request{APIKey: "k", Contents: []Content{TextContent("x")}})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.delays)
}

func TestGeminiRateLimitExhausted(t *testing.T) {
	var calls int32
	rec := &sleepRecorder{}
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, rec)

	_, err := client.Generate(context.Background(), Request{APIKey: "k", Contents: []Content{TextContent("x")}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "rate limiting is distinct from upstream errors")
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls), "initial attempt plus 3 retries")
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, rec.delays)
}

func TestGeminiUpstreamErrorNotRetried(t *testing.T) {
	var calls int32
	rec := &sleepRecorder{}
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "API key not valid")
	}, rec)

	_, err := client.Generate(context.Background(), Request{APIKey: "k", Contents: []Content{TextContent("x")}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "API key not valid")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, rec.delays)
}

func TestGeminiMissingKeyFailsBeforeNetwork(t *testing.T) {
	called := false
	client := NewGeminiClient(GeminiConfig{Endpoint: "http://unused", Model: "m"}, logging.Discard(),
		WithDoer(DoerFunc(func(*http.Request) (*http.Response, error) {
			called = true
			return nil, errors.New("unexpected call")
		})))

	_, err := client.Generate(context.Background(), Request{APIKey: "  "})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, called)
}

func TestGeminiTransportErrorPropagates(t *testing.T) {
	client := NewGeminiClient(GeminiConfig{Endpoint: "http://unused", Model: "m", Retry: testPolicy(&sleepRecorder{})}, logging.Discard(),
		WithDoer(DoerFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})))

	_, err := client.Generate(context.Background(), Request{APIKey: "k"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "connection refused"))
}

type recordingCallLogger struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingCallLogger) LogCall(_ context.Context, p inference.LogCallParams) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, p.Operation+":"+p.Status)
}

func TestGeminiLogsCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, geminiOK)
	}))
	defer srv.Close()

	calls := &recordingCallLogger{}
	client := NewGeminiClient(GeminiConfig{Endpoint: srv.URL, Model: "gemini-2.5-flash"}, logging.Discard(),
		WithGeminiCallLogger(calls))

	_, err := client.Generate(context.Background(), Request{APIKey: "k", Operation: "discovery"})
	require.NoError(t, err)
	assert.Equal(t, []string{"discovery:success"}, calls.calls)
}
