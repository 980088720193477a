package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

const maxExtractionContent = 15000

var (
	// ErrInvalidURL is returned for links that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("url must be an absolute http or https address")

	// ErrEmptyContent is returned when text extraction gets nothing to read.
	ErrEmptyContent = errors.New("content is empty")
)

// Extractor turns a page or a block of pasted text into event candidates.
// It never invents data beyond what the model transcribes, and it leaves
// confidence filtering to the caller.
type Extractor struct {
	gen    Generator
	apiKey string
	logger *slog.Logger
}

// NewExtractor wires an extractor.
func NewExtractor(gen Generator, apiKey string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{gen: gen, apiKey: apiKey, logger: logger}
}

// ExtractFromURL asks the model to open pageURL itself via web search and
// transcribe the events listed there.
func (e *Extractor) ExtractFromURL(ctx context.Context, pageURL string) ([]Candidate, error) {
	if strings.TrimSpace(e.apiKey) == "" {
		return nil, ErrNotConfigured
	}
	pageURL = strings.TrimSpace(pageURL)
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}

	candidates, err := e.extract(ctx, Request{
		APIKey:          e.apiKey,
		Operation:       "extraction_url",
		Contents:        []Content{TextContent(ExtractionPrompt(), ExtractionURLContent(pageURL))},
		Tools:           []Tool{WebSearchTool()},
		Temperature:     Float(0.1),
		MaxOutputTokens: 4096,
	})
	if err != nil {
		return nil, fmt.Errorf("extract events from %s: %w", pageURL, err)
	}
	e.logger.Info("extracted events from url", "url", pageURL, "events", len(candidates))
	return candidates, nil
}

// ExtractFromText transcribes events from raw text. sourceURL is optional
// context for the model.
func (e *Extractor) ExtractFromText(ctx context.Context, text, sourceURL string) ([]Candidate, error) {
	if strings.TrimSpace(e.apiKey) == "" {
		return nil, ErrNotConfigured
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}

	candidates, err := e.extract(ctx, Request{
		APIKey:    e.apiKey,
		Operation: "extraction_text",
		Contents: []Content{TextContent(
			ExtractionPrompt(),
			ExtractionTextContent(truncate(text, maxExtractionContent), strings.TrimSpace(sourceURL)),
		)},
		Temperature:     Float(0.1),
		MaxOutputTokens: 4096,
	})
	if err != nil {
		return nil, fmt.Errorf("extract events from text: %w", err)
	}
	e.logger.Info("extracted events from text", "chars", len(text), "events", len(candidates))
	return candidates, nil
}

func (e *Extractor) extract(ctx context.Context, req Request) ([]Candidate, error) {
	result, err := e.gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	records, err := ExtractJSONArray(result.Text)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(records))
	for _, c := range DecodeCandidates(records) {
		if c.HasExtractionFields() {
			out = append(out, c)
		}
	}
	return out, nil
}
