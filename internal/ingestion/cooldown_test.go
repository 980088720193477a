package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lnup/eventscout/internal/logging"
	"github.com/lnup/eventscout/internal/models"
)

type failingScanStore struct {
	lookupErr error
	markErr   error
	marked    int
}

func (s *failingScanStore) LastScanned(context.Context, string) (*models.ScanRecord, error) {
	return nil, s.lookupErr
}

func (s *failingScanStore) MarkScanned(context.Context, string, time.Time) error {
	s.marked++
	return s.markErr
}

func newTestGate(store ScanStore, enabled bool, now time.Time) *CooldownGate {
	g := NewCooldownGate(store, time.Hour, enabled, logging.Discard(), nil)
	g.now = func() time.Time { return now }
	return g
}

func TestCooldownGateShouldRun(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	tests := []struct {
		name        string
		lastScanned *time.Time
		want        bool
	}{
		{"never scanned", nil, true},
		{"scanned 30 minutes ago", timePtr(now.Add(-30 * time.Minute)), false},
		{"scanned exactly an hour ago", timePtr(now.Add(-time.Hour)), false},
		{"scanned 61 minutes ago", timePtr(now.Add(-61 * time.Minute)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryScanStore()
			if tt.lastScanned != nil {
				_ = store.MarkScanned(ctx, "passau", *tt.lastScanned)
			}
			gate := newTestGate(store, true, now)
			if got := gate.ShouldRun(ctx, "Passau"); got != tt.want {
				t.Fatalf("ShouldRun = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCooldownGateDisabled(t *testing.T) {
	gate := newTestGate(NewMemoryScanStore(), false, time.Now())
	if gate.ShouldRun(context.Background(), "Passau") {
		t.Fatal("gate without AI backend must never run")
	}

	gate = newTestGate(NewMemoryScanStore(), true, time.Now())
	if gate.ShouldRun(context.Background(), "   ") {
		t.Fatal("gate must not run for an empty city")
	}
}

func TestCooldownGateFailsOpen(t *testing.T) {
	store := &failingScanStore{lookupErr: errors.New("connection reset")}
	gate := newTestGate(store, true, time.Now())
	if !gate.ShouldRun(context.Background(), "Passau") {
		t.Fatal("lookup failure should allow discovery")
	}
}

func TestCooldownGateMarkScanned(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryScanStore()
	gate := newTestGate(store, true, now)

	gate.MarkScanned(context.Background(), " Passau ")

	rec, err := store.LastScanned(context.Background(), "passau")
	if err != nil || rec == nil {
		t.Fatalf("expected stored record, got %v, %v", rec, err)
	}
	if !rec.LastScanned.Equal(now) {
		t.Fatalf("expected %v, got %v", now, rec.LastScanned)
	}
	if gate.ShouldRun(context.Background(), "PASSAU") {
		t.Fatal("freshly scanned city should cool down")
	}

	failing := &failingScanStore{markErr: errors.New("read-only")}
	newTestGate(failing, true, now).MarkScanned(context.Background(), "Passau")
	if failing.marked != 1 {
		t.Fatalf("expected one write attempt, got %d", failing.marked)
	}
}

func timePtr(t time.Time) *time.Time { return &t }
