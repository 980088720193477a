package enrichment

import (
	"log/slog"

	"github.com/lnup/eventscout/internal/config"
	"github.com/lnup/eventscout/internal/metrics"
)

// NewGenerator builds the backend selected by cfg.Provider. Gemini is the
// default; "openai" selects the OpenAI-compatible chat backend.
func NewGenerator(cfg config.LLMConfig, logger *slog.Logger, m *metrics.Collector, calls CallLogger) Generator {
	if cfg.Provider == config.ProviderOpenAI {
		return NewOpenAIClient(OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.Timeout,
		}, logger, m, calls)
	}
	return NewGeminiClient(GeminiConfig{
		Endpoint:          cfg.GeminiEndpoint,
		Model:             cfg.GeminiModel,
		Timeout:           cfg.Timeout,
		RequestsPerMinute: cfg.GeminiRequestsPerMinute,
	}, logger, WithGeminiMetrics(m), WithGeminiCallLogger(calls))
}
