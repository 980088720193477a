package enrichment

import (
	"context"
	"net/http"
	"strings"
)

const (
	defaultTemperature     = 0.2
	defaultMaxOutputTokens = 8192

	// maxErrorBody bounds how much of an upstream error body is kept.
	maxErrorBody = 500
)

// Generator is the language-model gateway contract: one request in, the
// model's text plus any grounding citations out.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Request describes a single generation call.
type Request struct {
	APIKey            string
	Operation         string // label for logs and metrics, e.g. "discovery"
	Contents          []Content
	SystemInstruction *Content
	Tools             []Tool
	Temperature       *float64
	MaxOutputTokens   int
}

// Content is a block of prompt parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a single text fragment of a Content block.
type Part struct {
	Text string `json:"text"`
}

// Tool declares a capability the model may use while answering.
type Tool struct {
	GoogleSearch *GoogleSearch `json:"google_search,omitempty"`
}

// GoogleSearch enables web-search grounding.
type GoogleSearch struct{}

// WebSearchTool is the grounding tool used by the discovery and extraction adapters.
func WebSearchTool() Tool {
	return Tool{GoogleSearch: &GoogleSearch{}}
}

// Result is the gateway output.
type Result struct {
	Text          string
	GroundingURLs []string
	Usage         Usage
	Attempts      int
	FinishReason  string
}

// Usage reports token consumption when the provider returns it.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Doer executes HTTP requests; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(req *http.Request) (*http.Response, error)

// Do calls f(req).
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// TextContent builds a single Content block from text fragments.
func TextContent(texts ...string) Content {
	parts := make([]Part, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, Part{Text: t})
	}
	return Content{Parts: parts}
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 {
	return &v
}

func (r Request) temperature() float64 {
	if r.Temperature == nil {
		return defaultTemperature
	}
	return *r.Temperature
}

func (r Request) maxOutputTokens() int {
	if r.MaxOutputTokens <= 0 {
		return defaultMaxOutputTokens
	}
	return r.MaxOutputTokens
}

func (r Request) operation() string {
	if r.Operation == "" {
		return "generate"
	}
	return r.Operation
}

func joinParts(contents []Content, sep string) string {
	var texts []string
	for _, c := range contents {
		for _, p := range c.Parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
	}
	return strings.Join(texts, sep)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
