package ingestion_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lnup/eventscout/internal/enrichment"
	"github.com/lnup/eventscout/internal/ingestion"
	"github.com/lnup/eventscout/internal/logging"
	"github.com/lnup/eventscout/internal/metrics"
	"github.com/lnup/eventscout/internal/models"
)

// pipeline wires the real connector, discoverer and gate against fakes of
// the two external APIs.
type pipeline struct {
	aggregator *ingestion.Aggregator
	generator  *enrichment.MockGenerator
	scans      *ingestion.MemoryScanStore
	tmCalls    *atomic.Int32
}

func newPipeline(t *testing.T, tmBody string, tmStatus int, modelText string, grounding ...string) *pipeline {
	t.Helper()
	logger := logging.Discard()

	tmCalls := new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tmCalls.Add(1)
		w.WriteHeader(tmStatus)
		fmt.Fprint(w, tmBody)
	}))
	t.Cleanup(srv.Close)

	collector, err := metrics.New()
	if err != nil {
		t.Fatalf("metrics.New: %v", err)
	}

	tm := ingestion.NewTicketmasterConnector(ingestion.TicketmasterConfig{
		APIKey:  "tm-key",
		BaseURL: srv.URL,
	}, logger)

	gen := enrichment.NewMockGeneratorText(modelText, grounding...)
	discoverer := enrichment.NewDiscoverer(gen, "gemini-key", enrichment.NewMemoryDiscoveryCache(),
		enrichment.DefaultDiscoveryConfig(), logger, collector)

	scans := ingestion.NewMemoryScanStore()
	gate := ingestion.NewCooldownGate(scans, time.Hour, true, logger, collector)

	agg := ingestion.NewAggregator([]ingestion.Connector{tm}, discoverer, gate, nil,
		ingestion.DefaultAggregatorConfig(), logger, collector)

	return &pipeline{aggregator: agg, generator: gen, scans: scans, tmCalls: tmCalls}
}

func day(offset int) string {
	return time.Now().AddDate(0, 0, offset).Format(models.DateLayout)
}

func TestPipelinePrefersTicketingOverAIDuplicate(t *testing.T) {
	date := day(3)
	tmBody := fmt.Sprintf(`{"_embedded":{"events":[{
		"id":"G1","name":"Jazz Night","url":"https://www.ticketmaster.de/event/G1",
		"dates":{"start":{"localDate":%q,"localTime":"20:00:00"}},
		"classifications":[{"primary":true,"segment":{"name":"Music"},"genre":{"name":"Jazz"}}],
		"_embedded":{"venues":[{"id":"V1","name":"Blue Note","city":{"name":"Passau"}}]}
	}]}}`, date)
	modelText := fmt.Sprintf("```json\n"+`[{"title":"Jazz Night @ Blue Note","date":%q,"time_start":"20:15",
		"venue_name":"Blue Note","city":"passau","category":"concert",
		"source_url":"https://bluenote-passau.de/programm","confidence":0.9}]`+"\n```", date)

	p := newPipeline(t, tmBody, http.StatusOK, modelText, "https://bluenote-passau.de/programm")

	events, err := p.aggregator.FetchEvents(context.Background(), "Passau")
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 merged event, got %d: %+v", len(events), events)
	}
	if events[0].SourceType != models.SourceTypeTicketmaster || events[0].ID != "tm-G1" {
		t.Errorf("expected the ticketing event to win, got %s %s", events[0].SourceType, events[0].ID)
	}

	rec, err := p.scans.LastScanned(context.Background(), "passau")
	if err != nil || rec == nil {
		t.Fatalf("expected city to be marked scanned, got %v, %v", rec, err)
	}

	// Within the cooldown the model is not asked again.
	if _, err := p.aggregator.FetchEvents(context.Background(), "Passau"); err != nil {
		t.Fatalf("second FetchEvents: %v", err)
	}
	if n := len(p.generator.Calls()); n != 1 {
		t.Errorf("expected 1 model call across both runs, got %d", n)
	}
	if n := p.tmCalls.Load(); n != 2 {
		t.Errorf("expected ticketing API on every run, got %d calls", n)
	}
}

func TestPipelineSurvivesTicketingOutage(t *testing.T) {
	first, second := day(5), day(2)
	modelText := fmt.Sprintf(`[
		{"title":"Poetry Slam","date":%q,"time_start":"20:00","venue_name":"Scharfrichterhaus","category":"art",
		 "source_url":"https://scharfrichterhaus.de","confidence":0.8},
		{"title":"Flohmarkt","date":%q,"time_start":"09:00","venue_name":"Domplatz","category":"other",
		 "source_url":"https://passau.de/flohmarkt","confidence":0.95}
	]`, first, second)

	p := newPipeline(t, `{"fault":"unavailable"}`, http.StatusBadRequest, modelText,
		"https://scharfrichterhaus.de", "https://www.passau.de/flohmarkt/")

	events, err := p.aggregator.FetchEvents(context.Background(), "Passau")
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected both AI events, got %d", len(events))
	}
	if events[0].Title != "Flohmarkt" || events[1].Title != "Poetry Slam" {
		t.Errorf("expected date order, got %q then %q", events[0].Title, events[1].Title)
	}
	for _, e := range events {
		if e.SourceType != models.SourceTypeAIDiscovered {
			t.Errorf("unexpected source type %s", e.SourceType)
		}
	}
}
