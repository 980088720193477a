package enrichment

import (
	"context"
	"sync"
)

// MockGenerator is a scripted Generator for tests and offline runs. Each
// call consumes the next response; the last one repeats once the script
// is exhausted.
type MockGenerator struct {
	mu        sync.Mutex
	responses []MockResponse
	calls     []Request
}

// MockResponse is one scripted gateway outcome.
type MockResponse struct {
	Result Result
	Err    error
}

// NewMockGenerator scripts the given responses.
func NewMockGenerator(responses ...MockResponse) *MockGenerator {
	return &MockGenerator{responses: responses}
}

// NewMockGeneratorText scripts a single successful text response.
func NewMockGeneratorText(text string, groundingURLs ...string) *MockGenerator {
	if groundingURLs == nil {
		groundingURLs = []string{}
	}
	return NewMockGenerator(MockResponse{Result: Result{Text: text, GroundingURLs: groundingURLs, Attempts: 1}})
}

// Generate returns the next scripted response and records req.
func (m *MockGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(m.responses) == 0 {
		return Result{GroundingURLs: []string{}}, nil
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp.Result, resp.Err
}

// Calls returns the requests seen so far.
func (m *MockGenerator) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}
