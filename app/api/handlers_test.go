package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trailmark/city-enrichment/app/database"
	"github.com/trailmark/city-enrichment/app/enrichment"
	"github.com/trailmark/city-enrichment/app/geodata"
	"github.com/trailmark/city-enrichment/app/tasks"
)

type stubPlaceRepo struct {
	place *database.Place
	err   error
}

func (r *stubPlaceRepo) GetPlace(placeID string) (*database.Place, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.place != nil && r.place.ID == placeID {
		return r.place, nil
	}
	return nil, nil
}

func (r *stubPlaceRepo) GetPlaceBySlug(slug string) (*database.Place, error) { return nil, nil }

func (r *stubPlaceRepo) ListPlaces() ([]database.Place, error) {
	if r.place == nil {
		return nil, nil
	}
	return []database.Place{*r.place}, nil
}

func (r *stubPlaceRepo) GetPlaceCount() (int, error) { return 1, nil }

func (r *stubPlaceRepo) UpsertPlace(slug, name, country, wikipediaTitle string) (string, bool, error) {
	return "", false, nil
}

func (r *stubPlaceRepo) MarkEnriched(placeID string, enrichedAt time.Time) error { return nil }

func (r *stubPlaceRepo) TryAcquireLock(placeID string, now, staleBefore time.Time) (bool, error) {
	return false, nil
}

func (r *stubPlaceRepo) ReleaseLock(placeID string) error { return nil }

func (r *stubPlaceRepo) SweepStaleLocks(staleBefore time.Time) (int, error) { return 0, nil }

func (r *stubPlaceRepo) GetPlacesDueForEnrichment(staleBefore time.Time, limit int) ([]database.Place, error) {
	return nil, nil
}

type stubEnricher struct {
	report  *enrichment.StatusReport
	content *database.PlaceContent
	history []database.EnrichmentLogEntry
	stats   database.EnrichmentStats
	swept   int
	err     error
}

func (e *stubEnricher) Enrich(ctx context.Context, placeID string, trigger enrichment.Trigger) enrichment.Result {
	return enrichment.Result{Success: true}
}

func (e *stubEnricher) SweepStaleLocks() (int, error) { return e.swept, e.err }

func (e *stubEnricher) CheckStatus(placeID string) (*enrichment.StatusReport, error) {
	if e.report == nil {
		return nil, enrichment.ErrPlaceNotFound
	}
	return e.report, e.err
}

func (e *stubEnricher) GetContent(placeID string) (*database.PlaceContent, error) {
	return e.content, e.err
}

func (e *stubEnricher) GetHistory(placeID string, limit int) ([]database.EnrichmentLogEntry, error) {
	return e.history, e.err
}

func (e *stubEnricher) GetStats(windowHours int) (database.EnrichmentStats, error) {
	return e.stats, e.err
}

type stubScheduler struct {
	enqueued []tasks.TaskInterface
	err      error
}

func (s *stubScheduler) Start() {}
func (s *stubScheduler) Stop()  {}

func (s *stubScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, task)
	return nil
}

func newTestServer(placeRepo *stubPlaceRepo, enricher *stubEnricher, scheduler *stubScheduler) http.Handler {
	handler := NewHandler(geodata.NewCache(""), placeRepo, enricher, scheduler)
	return NewServer(handler, "test-key")
}

func doRequest(t *testing.T, server http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestGetEnrichmentStatus(t *testing.T) {
	lastEnriched := time.Now().Add(-time.Hour)
	enricher := &stubEnricher{report: &enrichment.StatusReport{
		Status:          enrichment.StatusUpToDate,
		NeedsEnrichment: false,
		LastEnrichedAt:  &lastEnriched,
	}}
	server := newTestServer(&stubPlaceRepo{}, enricher, &stubScheduler{})

	recorder := doRequest(t, server, "GET", "/places/place-1/enrichment/status", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	body := decodeBody(t, recorder)
	if body["status"] != "up_to_date" {
		t.Errorf("unexpected status: %v", body["status"])
	}
	if body["needs_enrichment"] != false {
		t.Errorf("unexpected needs_enrichment: %v", body["needs_enrichment"])
	}
	if body["last_enriched_at"] == nil {
		t.Error("expected last_enriched_at in response")
	}
}

func TestGetEnrichmentStatus_UnknownPlace(t *testing.T) {
	server := newTestServer(&stubPlaceRepo{}, &stubEnricher{}, &stubScheduler{})

	recorder := doRequest(t, server, "GET", "/places/ghost/enrichment/status", nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", recorder.Code)
	}
}

func TestGetEnrichmentContent(t *testing.T) {
	enricher := &stubEnricher{content: &database.PlaceContent{
		PlaceID:     "place-1",
		Description: "Lisbon is the capital of Portugal.",
		SourceURL:   "https://en.wikipedia.org/wiki/Lisbon",
		ScrapedAt:   time.Now(),
	}}
	server := newTestServer(&stubPlaceRepo{}, enricher, &stubScheduler{})

	recorder := doRequest(t, server, "GET", "/places/place-1/enrichment/content", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	body := decodeBody(t, recorder)
	if body["description"] != "Lisbon is the capital of Portugal." {
		t.Errorf("unexpected description: %v", body["description"])
	}
}

func TestGetEnrichmentContent_NoContentYet(t *testing.T) {
	server := newTestServer(&stubPlaceRepo{}, &stubEnricher{}, &stubScheduler{})

	recorder := doRequest(t, server, "GET", "/places/place-1/enrichment/content", nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing content, got %d", recorder.Code)
	}
}

func TestGetEnrichmentHistory(t *testing.T) {
	enricher := &stubEnricher{history: []database.EnrichmentLogEntry{
		{ID: "log-1", Success: true, FieldsPopulated: 4, InitiatedBy: "visit",
			StartedAt: time.Now(), CompletedAt: time.Now()},
		{ID: "log-2", Success: false, ErrorCode: "TIMEOUT", ErrorMessage: "deadline exceeded",
			InitiatedBy: "staleness_refresh", StartedAt: time.Now(), CompletedAt: time.Now()},
	}}
	server := newTestServer(&stubPlaceRepo{}, enricher, &stubScheduler{})

	recorder := doRequest(t, server, "GET", "/places/place-1/enrichment/history?limit=5", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	body := decodeBody(t, recorder)
	if body["total"] != float64(2) {
		t.Errorf("unexpected total: %v", body["total"])
	}
}

func TestGetEnrichmentStats(t *testing.T) {
	enricher := &stubEnricher{stats: database.EnrichmentStats{
		Total: 4, Successful: 3, Failed: 1, SuccessRate: 0.75,
	}}
	server := newTestServer(&stubPlaceRepo{}, enricher, &stubScheduler{})

	recorder := doRequest(t, server, "GET", "/enrichment/stats?window_hours=48", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	body := decodeBody(t, recorder)
	if body["window_hours"] != float64(48) {
		t.Errorf("unexpected window: %v", body["window_hours"])
	}
	if body["success_rate"] != 0.75 {
		t.Errorf("unexpected success rate: %v", body["success_rate"])
	}
}

func TestAPITriggerEnrichment(t *testing.T) {
	placeRepo := &stubPlaceRepo{place: &database.Place{ID: "place-1", Slug: "lisbon", Name: "Lisbon"}}
	scheduler := &stubScheduler{}
	server := newTestServer(placeRepo, &stubEnricher{}, scheduler)

	recorder := doRequest(t, server, "POST", "/api/places/place-1/enrich",
		map[string]string{"X-API-Key": "test-key"})
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", recorder.Code, recorder.Body.String())
	}

	if len(scheduler.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued task, got %d", len(scheduler.enqueued))
	}
	if scheduler.enqueued[0].GetType() != tasks.TaskTypeEnrichPlace {
		t.Errorf("unexpected task type: %s", scheduler.enqueued[0].GetType())
	}
}

func TestAPITriggerEnrichment_UnknownPlace(t *testing.T) {
	server := newTestServer(&stubPlaceRepo{}, &stubEnricher{}, &stubScheduler{})

	recorder := doRequest(t, server, "POST", "/api/places/ghost/enrich",
		map[string]string{"X-API-Key": "test-key"})
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", recorder.Code)
	}
}

func TestAPITriggerEnrichment_QueueFull(t *testing.T) {
	placeRepo := &stubPlaceRepo{place: &database.Place{ID: "place-1", Slug: "lisbon"}}
	scheduler := &stubScheduler{err: errors.New("task queue is full")}
	server := newTestServer(placeRepo, &stubEnricher{}, scheduler)

	recorder := doRequest(t, server, "POST", "/api/places/place-1/enrich",
		map[string]string{"X-API-Key": "test-key"})
	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", recorder.Code)
	}
}

func TestAPISweepLocks(t *testing.T) {
	enricher := &stubEnricher{swept: 3}
	server := newTestServer(&stubPlaceRepo{}, enricher, &stubScheduler{})

	recorder := doRequest(t, server, "POST", "/api/maintenance/sweep-locks",
		map[string]string{"Authorization": "Bearer test-key"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	body := decodeBody(t, recorder)
	if body["cleared"] != float64(3) {
		t.Errorf("unexpected cleared count: %v", body["cleared"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	server := newTestServer(&stubPlaceRepo{}, &stubEnricher{}, &stubScheduler{})

	cases := []struct {
		name     string
		headers  map[string]string
		expected int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "wrong"}, http.StatusUnauthorized},
		{"valid key", map[string]string{"X-API-Key": "test-key"}, http.StatusOK},
		{"valid bearer", map[string]string{"Authorization": "Bearer test-key"}, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := doRequest(t, server, "GET", "/api/places", tc.headers)
			if recorder.Code != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, recorder.Code)
			}
		})
	}
}

func TestGetHealth(t *testing.T) {
	server := newTestServer(&stubPlaceRepo{}, &stubEnricher{}, &stubScheduler{})

	recorder := doRequest(t, server, "GET", "/health", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	body := decodeBody(t, recorder)
	if body["places"] != float64(1) {
		t.Errorf("unexpected place count: %v", body["places"])
	}
}
