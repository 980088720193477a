package models

import "time"

// InferenceLog records a single language-model API call.
type InferenceLog struct {
	ID           int       `json:"id"`
	Provider     string    `json:"provider"`  // 'gemini', 'openai'
	Model        string    `json:"model"`     // 'gemini-2.5-flash', ...
	Operation    string    `json:"operation"` // 'discovery', 'extraction'
	TokensUsed   int       `json:"tokens_used"`
	InputTokens  *int      `json:"input_tokens"`
	OutputTokens *int      `json:"output_tokens"`
	CostUSD      *float64  `json:"cost_usd"`
	LatencyMs    *int      `json:"latency_ms"`
	Attempts     int       `json:"attempts"`
	Status       string    `json:"status"` // 'success', 'error', 'rate_limited'
	ErrorMessage *string   `json:"error_message"`
	Metadata     string    `json:"metadata"` // JSONB
	CreatedAt    time.Time `json:"created_at"`
}

// InferenceLogQuery filters inference log listings.
type InferenceLogQuery struct {
	Provider  string
	Operation string
	Status    string
	Limit     int
}
