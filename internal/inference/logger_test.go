package inference

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/lnup/eventscout/internal/logging"
	"github.com/lnup/eventscout/internal/models"
)

type recordingStore struct {
	mu   sync.Mutex
	logs []models.InferenceLog
	err  error
}

func (s *recordingStore) Create(_ context.Context, log models.InferenceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return s.err
}

func TestLogCallPersistsEntry(t *testing.T) {
	store := &recordingStore{}
	l := NewLogger(store, logging.Discard())

	in, out, latency := 120, 80, 950
	l.LogCall(context.Background(), LogCallParams{
		Provider:     "gemini",
		Model:        "gemini-2.5-flash",
		Operation:    "discovery",
		TokensUsed:   200,
		InputTokens:  &in,
		OutputTokens: &out,
		LatencyMs:    &latency,
		Attempts:     2,
		Status:       "success",
		Metadata:     map[string]interface{}{"city": "Passau"},
	})
	l.Wait()

	if len(store.logs) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(store.logs))
	}
	got := store.logs[0]
	if got.Provider != "gemini" || got.Operation != "discovery" || got.Attempts != 2 {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.Metadata != `{"city":"Passau"}` {
		t.Fatalf("unexpected metadata %q", got.Metadata)
	}
}

func TestLogCallSwallowsStoreErrors(t *testing.T) {
	store := &recordingStore{err: errors.New("db down")}
	l := NewLogger(store, logging.Discard())

	l.LogCall(context.Background(), LogCallParams{Provider: "gemini", Status: "error"})
	l.Wait()

	if len(store.logs) != 1 {
		t.Fatalf("expected write attempt, got %d", len(store.logs))
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	l.LogCall(context.Background(), LogCallParams{})
	l.Wait()
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		model string
		want  float64
	}{
		{"gemini-2.5-flash", 0.30 + 2.50},
		{"google/gemini-2.5-flash", 0.30 + 2.50},
		{"gemini-2.5-flash-lite", 0.10 + 0.40},
		{"gpt-4o-mini", 0.15 + 0.60},
		{"unknown", 1.00 + 5.00},
	}

	for _, tt := range tests {
		got := EstimateCost(tt.model, 1_000_000, 1_000_000)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("EstimateCost(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}
