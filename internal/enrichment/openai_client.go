package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lnup/eventscout/internal/inference"
	"github.com/lnup/eventscout/internal/metrics"
	"github.com/lnup/eventscout/internal/retry"
)

const providerOpenAI = "openai"

// OpenAIConfig configures an OpenAI-compatible chat completion backend
// such as OpenRouter.
type OpenAIConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Retry   retry.Policy
}

// OpenAIClient implements Generator on the chat completions API. Web-search
// tools are not forwarded, so results never carry grounding citations.
type OpenAIClient struct {
	config     OpenAIConfig
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Collector
	calls      CallLogger
}

// NewOpenAIClient builds a client for the given backend.
func NewOpenAIClient(config OpenAIConfig, logger *slog.Logger, m *metrics.Collector, calls CallLogger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Retry.BackoffFactor == 0 && config.Retry.InitialBackoff == 0 {
		config.Retry = retry.DefaultPolicy()
	}
	config.Retry.Retryable = isOpenAIRateLimited

	return &OpenAIClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
		metrics:    m,
		calls:      calls,
	}
}

// Generate sends the request as a system + user chat exchange.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return Result{}, ErrNotConfigured
	}

	clientConfig := openai.DefaultConfig(req.APIKey)
	if c.config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(c.config.BaseURL, "/")
	}
	clientConfig.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(clientConfig)

	var messages []openai.ChatCompletionMessage
	if req.SystemInstruction != nil {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: joinParts([]Content{*req.SystemInstruction}, "\n"),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: joinParts(req.Contents, "\n\n"),
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: float32(req.temperature()),
		MaxTokens:   req.maxOutputTokens(),
	}

	start := time.Now()
	attempts := 0
	var resp openai.ChatCompletionResponse

	err := retry.Do(ctx, c.config.Retry, func(attempt int) error {
		attempts = attempt + 1
		if attempt > 0 {
			c.metrics.IncLLMRetry(providerOpenAI)
		}
		var err error
		resp, err = client.CreateChatCompletion(ctx, chatReq)
		if err != nil && isOpenAIRateLimited(err) && attempt < c.config.Retry.MaxRetries {
			c.logger.Warn("openai rate limited, backing off",
				"operation", req.operation(),
				"attempt", attempts,
				"delay_ms", retry.Backoff(c.config.Retry, attempt).Milliseconds())
		}
		return err
	})
	err = finalizeOpenAIError(err)

	result := Result{GroundingURLs: []string{}, Attempts: attempts}
	if err == nil {
		if len(resp.Choices) > 0 {
			result.Text = resp.Choices[0].Message.Content
			result.FinishReason = string(resp.Choices[0].FinishReason)
		}
		result.Usage = Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
	}
	c.record(ctx, req, result, time.Since(start), err)
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (c *OpenAIClient) record(ctx context.Context, req Request, result Result, latency time.Duration, err error) {
	status := "success"
	switch {
	case errors.Is(err, ErrRateLimited):
		status = "rate_limited"
	case err != nil:
		status = "error"
	}
	c.metrics.ObserveLLMCall(providerOpenAI, req.operation(), status, latency)

	if c.calls == nil {
		return
	}
	latencyMs := int(latency.Milliseconds())
	params := inference.LogCallParams{
		Provider:   providerOpenAI,
		Model:      c.config.Model,
		Operation:  req.operation(),
		TokensUsed: result.Usage.TotalTokens,
		LatencyMs:  &latencyMs,
		Attempts:   result.Attempts,
		Status:     status,
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

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func isOpenAIRateLimited(err error) bool {
	return openAIStatus(err) == http.StatusTooManyRequests
}

func finalizeOpenAIError(err error) error {
	if err == nil {
		return nil
	}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		if isOpenAIRateLimited(exhausted.Err) {
			return fmt.Errorf("%w (gave up after %d attempts)", ErrRateLimited, exhausted.Attempts)
		}
		err = exhausted.Err
	}
	if status := openAIStatus(err); status != 0 {
		return &APIError{
			Provider:   providerOpenAI,
			StatusCode: status,
			Body:       truncate(err.Error(), maxErrorBody),
		}
	}
	return fmt.Errorf("openai request failed: %w", err)
}
