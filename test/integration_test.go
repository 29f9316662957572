package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/prensa-app/prensa/internal/api"
	"github.com/prensa-app/prensa/internal/config"
	"github.com/prensa-app/prensa/internal/metrics"
	"github.com/prensa-app/prensa/internal/models"
	"github.com/prensa-app/prensa/internal/pipeline"
	"github.com/prensa-app/prensa/internal/summarize"
)

// End-to-end flow over the HTTP surface: ingest raw items, trigger a run,
// inspect status and produced stories. Runs on in-memory storage with the
// mock summarizer, no external services.

type harness struct {
	server  *httptest.Server
	items   *pipeline.MemoryItemRepository
	stories *pipeline.MemoryStoryRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	items := pipeline.NewMemoryItemRepository()
	sources := pipeline.NewMemorySourceRepository()
	topics := pipeline.NewMemoryTopicRepository(
		models.Topic{ID: "topic-general", Slug: "general", NameEn: "General", NameEs: "General"},
		models.Topic{ID: "topic-tech", Slug: "technology", NameEn: "Technology", NameEs: "Tecnología"},
	)
	stories := pipeline.NewMemoryStoryRepository()
	procErrors := pipeline.NewMemoryErrorRepository()

	cfg := config.PipelineConfig{
		DefaultBatchSize:     25,
		MaxBatchSize:         50,
		MaxRetries:           3,
		MinContentLength:     50,
		QualityThreshold:     0.4,
		ReliabilityThreshold: 0.7,
		StaleClaimAfter:      15 * time.Minute,
	}

	registry := metrics.NewRegistry()
	collector, err := metrics.NewPipelineCollector(registry)
	if err != nil {
		t.Fatalf("failed to create collector: %v", err)
	}

	processor := pipeline.NewProcessor(
		items, sources, topics, stories, procErrors,
		summarize.NewMockSummarizer(),
		pipeline.NewIntervalPacer(0),
		cfg, collector, logger,
	)

	mux := http.NewServeMux()
	api.SetupRoutes(mux, api.Deps{
		Runner:     processor,
		Items:      items,
		Inserter:   items,
		ProcErrors: procErrors,
		Stories:    stories,
		Sources:    sources,
		Topics:     topics,
		MaxRetries: cfg.MaxRetries,
		Metrics:    metrics.Handler(registry),
		Logger:     logger,
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &harness{server: server, items: items, stories: stories}
}

func (h *harness) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(h.server.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (h *harness) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(h.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestIngestAndProcessFlow(t *testing.T) {
	h := newHarness(t)

	longBody := strings.Repeat("El gobierno anunció nuevas medidas económicas. ", 20)
	ingest := fmt.Sprintf(`[
		{
			"url": "https://news.example.com/economia",
			"title": "Nuevas medidas económicas",
			"content": %q,
			"fetched_at": "2026-08-01T10:00:00Z",
			"feed": {"name": "Diario Ejemplo", "site_url": "https://news.example.com", "language": "es", "reliability": 0.9}
		},
		{
			"url": "https://news.example.com/corto",
			"title": "Nota breve",
			"content": "muy corto",
			"fetched_at": "2026-08-01T11:00:00Z",
			"feed": {"name": "Diario Ejemplo", "site_url": "https://news.example.com", "language": "es", "reliability": 0.9}
		}
	]`, longBody)

	resp := h.post(t, "/api/items", ingest)
	var ingestResp map[string]int
	decode(t, resp, &ingestResp)
	if resp.StatusCode != http.StatusCreated || ingestResp["stored"] != 2 {
		t.Fatalf("expected 2 items stored, got status %d resp %+v", resp.StatusCode, ingestResp)
	}

	resp = h.post(t, "/api/pipeline/run", `{"limit": 10}`)
	var summary pipeline.RunSummary
	decode(t, resp, &summary)
	if summary.Total != 2 {
		t.Fatalf("expected 2 items processed, got %+v", summary)
	}
	if summary.Succeeded != 1 || summary.Rejected != 1 {
		t.Errorf("expected 1 succeeded / 1 rejected, got %+v", summary)
	}

	var status api.StatusResponse
	decode(t, h.get(t, "/api/pipeline/status"), &status)
	if status.ItemsByStatus[models.ItemStatusProcessed] != 1 {
		t.Errorf("expected 1 processed item, got %+v", status.ItemsByStatus)
	}
	if status.ItemsByStatus[models.ItemStatusRejected] != 1 {
		t.Errorf("expected 1 rejected item, got %+v", status.ItemsByStatus)
	}

	var storiesResp struct {
		Stories []models.Story `json:"stories"`
		Count   int            `json:"count"`
	}
	decode(t, h.get(t, "/api/stories"), &storiesResp)
	if storiesResp.Count != 1 {
		t.Fatalf("expected 1 story, got %d", storiesResp.Count)
	}
	story := storiesResp.Stories[0]
	if !story.Approved {
		t.Error("expected story approved")
	}
	if story.OriginalURL != "https://news.example.com/economia" {
		t.Errorf("unexpected story URL %s", story.OriginalURL)
	}
	if len(story.TopicIDs) == 0 {
		t.Error("expected story classified into at least one topic")
	}

	// A second run finds nothing eligible; nothing is processed twice.
	resp = h.post(t, "/api/pipeline/run", "")
	decode(t, resp, &summary)
	if summary.Total != 0 {
		t.Errorf("expected idle second run, got %+v", summary)
	}
	if h.stories.Count() != 1 {
		t.Errorf("expected story count to stay 1, got %d", h.stories.Count())
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	h := newHarness(t)

	resp := h.get(t, "/healthz")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /healthz, got %d", resp.StatusCode)
	}

	resp = h.get(t, "/metrics")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", resp.StatusCode)
	}
}
