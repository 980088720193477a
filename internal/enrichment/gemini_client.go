package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lnup/eventscout/internal/inference"
	"github.com/lnup/eventscout/internal/metrics"
	"github.com/lnup/eventscout/internal/retry"
)

const providerGemini = "gemini"

// CallLogger records language-model calls for later auditing.
type CallLogger interface {
	LogCall(ctx context.Context, params inference.LogCallParams)
}

// GeminiConfig configures the Gemini generateContent client.
type GeminiConfig struct {
	Endpoint          string // e.g. https://generativelanguage.googleapis.com/v1beta/models
	Model             string
	Timeout           time.Duration // per attempt
	RequestsPerMinute int           // 0 disables pacing
	Retry             retry.Policy
}

// GeminiClient calls the Gemini generateContent endpoint. HTTP 429 is
// retried with exponential backoff; every other failure is returned as is.
type GeminiClient struct {
	doer    Doer
	config  GeminiConfig
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.Collector
	calls   CallLogger
}

// GeminiOption customises a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithDoer replaces the HTTP transport.
func WithDoer(d Doer) GeminiOption {
	return func(c *GeminiClient) { c.doer = d }
}

// WithGeminiMetrics attaches a metrics collector.
func WithGeminiMetrics(m *metrics.Collector) GeminiOption {
	return func(c *GeminiClient) { c.metrics = m }
}

// WithGeminiCallLogger attaches an inference call logger.
func WithGeminiCallLogger(l CallLogger) GeminiOption {
	return func(c *GeminiClient) { c.calls = l }
}

// NewGeminiClient builds a client. A zero Retry policy falls back to
// retry.DefaultPolicy.
func NewGeminiClient(config GeminiConfig, logger *slog.Logger, opts ...GeminiOption) *GeminiClient {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Retry.BackoffFactor == 0 && config.Retry.InitialBackoff == 0 {
		config.Retry = retry.DefaultPolicy()
	}
	config.Retry.Retryable = isRateLimited

	c := &GeminiClient{
		doer:   &http.Client{},
		config: config,
		logger: logger,
	}
	if config.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type geminiRequest struct {
	Contents          []Content        `json:"contents"`
	SystemInstruction *Content         `json:"system_instruction,omitempty"`
	Tools             []Tool           `json:"tools,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason      string `json:"finishReason"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Generate sends req to Gemini and returns the concatenated text of the
// first candidate along with its grounding citations.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return Result{}, ErrNotConfigured
	}

	body, err := json.Marshal(buildGeminiRequest(req))
	if err != nil {
		return Result{}, fmt.Errorf("marshal gemini request: %w", err)
	}

	start := time.Now()
	attempts := 0
	var payload geminiResponse

	err = retry.Do(ctx, c.config.Retry, func(attempt int) error {
		attempts = attempt + 1
		if attempt > 0 {
			c.metrics.IncLLMRetry(providerGemini)
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("wait for rate limiter: %w", err)
			}
		}
		err := c.post(ctx, req.APIKey, body, &payload)
		if err != nil && isRateLimited(err) && attempt < c.config.Retry.MaxRetries {
			c.logger.Warn("gemini rate limited, backing off",
				"operation", req.operation(),
				"attempt", attempts,
				"delay_ms", retry.Backoff(c.config.Retry, attempt).Milliseconds())
		}
		return err
	})
	err = finalizeError(err)

	result := Result{Attempts: attempts}
	if err == nil {
		result = payload.result()
		result.Attempts = attempts
	}
	c.record(ctx, req, result, time.Since(start), err)
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (c *GeminiClient) post(ctx context.Context, apiKey string, body []byte, out *geminiResponse) error {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s",
		strings.TrimRight(c.config.Endpoint, "/"), c.config.Model, url.QueryEscape(apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read gemini response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Provider:   providerGemini,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(raw)), maxErrorBody),
		}
	}

	*out = geminiResponse{}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func (c *GeminiClient) record(ctx context.Context, req Request, result Result, latency time.Duration, err error) {
	status := "success"
	switch {
	case errors.Is(err, ErrRateLimited):
		status = "rate_limited"
	case err != nil:
		status = "error"
	}
	c.metrics.ObserveLLMCall(providerGemini, req.operation(), status, latency)

	if c.calls == nil {
		return
	}
	latencyMs := int(latency.Milliseconds())
	params := inference.LogCallParams{
		Provider:   providerGemini,
		Model:      c.config.Model,
		Operation:  req.operation(),
		TokensUsed: result.Usage.TotalTokens,
		LatencyMs:  &latencyMs,
		Attempts:   result.Attempts,
		Status:     status,
		Metadata: map[string]interface{}{
			"grounded":        len(req.Tools) > 0,
			"grounding_count": len(result.GroundingURLs),
		},
	}
	if err == nil {
		in, out := result.Usage.InputTokens, result.Usage.OutputTokens
		params.InputTokens = &in
		params.OutputTokens = &out
		cost := inference.EstimateCost(c.config.Model, in, out)
		params.CostUSD = &cost
	} else {
		msg := err.Error()
		params.ErrorMessage = &msg
	}
	c.calls.LogCall(ctx, params)
}

func buildGeminiRequest(req Request) geminiRequest {
	out := geminiRequest{
		Contents:          req.Contents,
		SystemInstruction: req.SystemInstruction,
		Tools:             req.Tools,
		GenerationConfig: generationConfig{
			Temperature:     req.temperature(),
			MaxOutputTokens: req.maxOutputTokens(),
		},
	}
	// Gemini rejects a JSON mime type when tools are enabled.
	if len(req.Tools) == 0 {
		out.GenerationConfig.ResponseMimeType = "application/json"
	}
	return out
}

func (p geminiResponse) result() Result {
	res := Result{
		GroundingURLs: []string{},
		Usage: Usage{
			InputTokens:  p.UsageMetadata.PromptTokenCount,
			OutputTokens: p.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  p.UsageMetadata.TotalTokenCount,
		},
	}
	if len(p.Candidates) == 0 {
		return res
	}
	first := p.Candidates[0]
	var sb strings.Builder
	for _, part := range first.Content.Parts {
		sb.WriteString(part.Text)
	}
	res.Text = sb.String()
	res.FinishReason = first.FinishReason
	if first.GroundingMetadata != nil {
		for _, chunk := range first.GroundingMetadata.GroundingChunks {
			if chunk.Web != nil && chunk.Web.URI != "" {
				res.GroundingURLs = append(res.GroundingURLs, chunk.Web.URI)
			}
		}
	}
	return res
}

func isRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// finalizeError unwraps retry exhaustion into the gateway's error vocabulary.
func finalizeError(err error) error {
	if err == nil {
		return nil
	}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		if isRateLimited(exhausted.Err) {
			return fmt.Errorf("%w (gave up after %d attempts)", ErrRateLimited, exhausted.Attempts)
		}
		return exhausted.Err
	}
	return err
}
