package enrichment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnup/eventscout/internal/logging"
)

const chatOK = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "google/gemini-2.5-flash",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "[{\"title\":\"Jazz\"}]"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func TestOpenAIGenerate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		MaxTokens int `json:"max_tokens"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatOK)
	}))
	defer srv.Close()

	client := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, Model: "google/gemini-2.5-flash"}, logging.Discard(), nil, nil)

	system := TextContent("you are a scout")
	res, err := client.Generate(context.Background(), Request{
		APIKey:            "secret",
		SystemInstruction: &system,
		Contents:          []Content{TextContent("part one", "part two")},
		Tools:             []Tool{WebSearchTool()},
	})
	require.NoError(t, err)

	assert.Equal(t, `[{"title":"Jazz"}]`, res.Text)
	assert.Empty(t, res.GroundingURLs)
	assert.Equal(t, 15, res.Usage.TotalTokens)

	assert.Equal(t, "google/gemini-2.5-flash", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "part one\n\npart two", got.Messages[1].Content)
	assert.Equal(t, 8192, got.MaxTokens)
}

func TestOpenAIRateLimitExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit_exceeded"}}`)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	client := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, Model: "m", Retry: testPolicy(rec)}, logging.Discard(), nil, nil)

	_, err := client.Generate(context.Background(), Request{APIKey: "k", Contents: []Content{TextContent("x")}})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, rec.delays)
}

func TestOpenAIUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, Model: "m"}, logging.Discard(), nil, nil)

	_, err := client.Generate(context.Background(), Request{APIKey: "k", Contents: []Content{TextContent("x")}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestOpenAIMissingKey(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{Model: "m"}, logging.Discard(), nil, nil)
	_, err := client.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
