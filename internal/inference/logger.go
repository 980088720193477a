package inference

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/lnup/eventscout/internal/models"
)

// Store persists inference log rows.
type Store interface {
	Create(ctx context.Context, log models.InferenceLog) error
}

// Logger logs language-model calls to the database
type Logger struct {
	store  Store
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewLogger creates a new inference logger
func NewLogger(store Store, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		store:  store,
		logger: logger,
	}
}

// LogCallParams describes a single gateway call.
type LogCallParams struct {
	Provider     string
	Model        string
	Operation    string
	TokensUsed   int
	InputTokens  *int
	OutputTokens *int
	CostUSD      *float64
	LatencyMs    *int
	Attempts     int
	Status       string // "success", "error" or "rate_limited"
	ErrorMessage *string
	Metadata     map[string]interface{}
}

// LogCall records an inference call. The write happens asynchronously so
// the caller is never blocked on the database.
func (l *Logger) LogCall(ctx context.Context, params LogCallParams) {
	if l == nil || l.store == nil {
		return
	}

	var metadataJSON string
	if params.Metadata != nil {
		if jsonBytes, err := json.Marshal(params.Metadata); err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	entry := models.InferenceLog{
		Provider:     params.Provider,
		Model:        params.Model,
		Operation:    params.Operation,
		TokensUsed:   params.TokensUsed,
		InputTokens:  params.InputTokens,
		OutputTokens: params.OutputTokens,
		CostUSD:      params.CostUSD,
		LatencyMs:    params.LatencyMs,
		Attempts:     params.Attempts,
		Status:       params.Status,
		ErrorMessage: params.ErrorMessage,
		Metadata:     metadataJSON,
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.store.Create(context.WithoutCancel(ctx), entry); err != nil {
			l.logger.Error("failed to log inference call", "error", err)
		}
	}()
}

// Wait blocks until every pending write has finished.
func (l *Logger) Wait() {
	if l == nil {
		return
	}
	l.wg.Wait()
}

// EstimateCost gives a rough USD cost per call from token counts.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	// per 1M tokens
	var inputCostPer1M, outputCostPer1M float64

	name := model
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	switch {
	case strings.HasPrefix(name, "gemini-2.5-flash-lite"):
		inputCostPer1M = 0.10
		outputCostPer1M = 0.40
	case strings.HasPrefix(name, "gemini-2.5-flash"):
		inputCostPer1M = 0.30
		outputCostPer1M = 2.50
	case strings.HasPrefix(name, "gemini-2.5-pro"):
		inputCostPer1M = 1.25
		outputCostPer1M = 10.00
	case name == "gpt-4o-mini":
		inputCostPer1M = 0.15
		outputCostPer1M = 0.60
	case name == "gpt-4o":
		inputCostPer1M = 2.50
		outputCostPer1M = 10.00
	default:
		inputCostPer1M = 1.00
		outputCostPer1M = 5.00
	}

	inputCost := (float64(inputTokens) / 1_000_000) * inputCostPer1M
	outputCost := (float64(outputTokens) / 1_000_000) * outputCostPer1M

	return inputCost + outputCost
}
