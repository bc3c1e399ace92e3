package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/anderson/internal/dedup"
	"github.com/MikeSquared-Agency/anderson/internal/engine"
	"github.com/MikeSquared-Agency/anderson/internal/hermes"
	"github.com/MikeSquared-Agency/anderson/internal/store"
)

type fakeStore struct {
	segments []store.SegmentRow
	dropped  []store.DroppedRow
	run      *store.RunRow
	counts   store.StatusCounts
	dedupRes *dedup.DeduResult

	gotVOD       string
	gotLimit     int
	gotRunID     uuid.UUID
	gotThreshold float64
	gotExecute   bool
}

func (f *fakeStore) SegmentsByVOD(ctx context.Context, vodID string, limit int) ([]store.SegmentRow, error) {
	f.gotVOD, f.gotLimit = vodID, limit
	return f.segments, nil
}

func (f *fakeStore) DroppedByRun(ctx context.Context, runID uuid.UUID) ([]store.DroppedRow, error) {
	f.gotRunID = runID
	return f.dropped, nil
}

func (f *fakeStore) LatestRun(ctx context.Context, vodID string) (*store.RunRow, error) {
	if f.run == nil {
		return nil, errors.New("no rows in result set")
	}
	return f.run, nil
}

func (f *fakeStore) CountStatus(ctx context.Context) (store.StatusCounts, error) {
	return f.counts, nil
}

func (f *fakeStore) DeduplicateSegments(ctx context.Context, vodID string, threshold float64, execute bool, logger *slog.Logger) (*dedup.DeduResult, error) {
	f.gotVOD, f.gotThreshold, f.gotExecute = vodID, threshold, execute
	return f.dedupRes, nil
}

type fakeAnalyzer struct {
	summary *hermes.SegmentsReady
	err     error
	got     hermes.AnalyzeRequest
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req hermes.AnalyzeRequest) (*hermes.SegmentsReady, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(8760, "", nil, nil, testLogger())

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
	if body["service"] != "anderson" {
		t.Errorf("expected service anderson, got %q", body["service"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	fs := &fakeStore{counts: store.StatusCounts{Runs: 3, Segments: 12, PendingReviews: 5}}
	srv := NewServer(8760, "", fs, nil, testLogger())

	req := httptest.NewRequest("GET", "/api/v1/anderson/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["agent"] != "anderson" {
		t.Errorf("expected agent anderson, got %v", body["agent"])
	}
	if body["segments"] != float64(12) {
		t.Errorf("expected 12 segments, got %v", body["segments"])
	}
	if body["pending_reviews"] != float64(5) {
		t.Errorf("expected 5 pending reviews, got %v", body["pending_reviews"])
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := NewServer(8760, "", nil, nil, testLogger())

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestListSegments(t *testing.T) {
	fs := &fakeStore{
		segments: []store.SegmentRow{
			{ID: uuid.New(), VODID: "v1", StartMS: 20000, EndMS: 58000, Score: 0.91, Rank: 1, ReviewStatus: "pending"},
			{ID: uuid.New(), VODID: "v1", StartMS: 80000, EndMS: 100000, Score: 0.55, Rank: 2, ReviewStatus: "pending"},
		},
		run: &store.RunRow{ID: uuid.New(), VODID: "v1", Profile: "default", Windows: 6},
	}
	srv := NewServer(8760, "", fs, nil, testLogger())

	req := httptest.NewRequest("GET", "/api/v1/vods/v1/segments?limit=5", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if fs.gotVOD != "v1" || fs.gotLimit != 5 {
		t.Errorf("expected store called with v1/5, got %s/%d", fs.gotVOD, fs.gotLimit)
	}

	var body struct {
		VODID    string             `json:"vod_id"`
		Count    int                `json:"count"`
		Segments []store.SegmentRow `json:"segments"`
		Run      *store.RunRow      `json:"run"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("expected count 2, got %d", body.Count)
	}
	if body.Segments[0].Rank != 1 {
		t.Errorf("expected rank-1 first, got %d", body.Segments[0].Rank)
	}
	if body.Run == nil || body.Run.Profile != "default" {
		t.Errorf("expected run context in response, got %+v", body.Run)
	}
}

func TestListSegments_InvalidLimit(t *testing.T) {
	srv := NewServer(8760, "", &fakeStore{}, nil, testLogger())

	req := httptest.NewRequest("GET", "/api/v1/vods/v1/segments?limit=nope", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestListSegments_NoStore(t *testing.T) {
	srv := NewServer(8760, "", nil, nil, testLogger())

	req := httptest.NewRequest("GET", "/api/v1/vods/v1/segments", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	srv := NewServer(8760, "secret", &fakeStore{}, nil, testLogger())

	// No token
	req := httptest.NewRequest("GET", "/api/v1/vods/v1/segments", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	// Wrong token
	req = httptest.NewRequest("GET", "/api/v1/vods/v1/segments", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", w.Code)
	}

	// Correct token
	req = httptest.NewRequest("GET", "/api/v1/vods/v1/segments", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with correct token, got %d", w.Code)
	}

	// Health stays open
	req = httptest.NewRequest("GET", "/health", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected health to bypass auth, got %d", w.Code)
	}
}

func TestListDropped_InvalidRunID(t *testing.T) {
	srv := NewServer(8760, "", &fakeStore{}, nil, testLogger())

	req := httptest.NewRequest("GET", "/api/v1/runs/not-a-uuid/dropped", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestListDropped(t *testing.T) {
	runID := uuid.New()
	fs := &fakeStore{
		dropped: []store.DroppedRow{
			{ID: uuid.New(), RunID: runID, StartMS: 80000, EndMS: 100000, Reason: "no_speech_detected"},
		},
	}
	srv := NewServer(8760, "", fs, nil, testLogger())

	req := httptest.NewRequest("GET", "/api/v1/runs/"+runID.String()+"/dropped", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if fs.gotRunID != runID {
		t.Errorf("expected store called with %s, got %s", runID, fs.gotRunID)
	}

	var body struct {
		Count   int                `json:"count"`
		Dropped []store.DroppedRow `json:"dropped"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Count != 1 || body.Dropped[0].Reason != "no_speech_detected" {
		t.Errorf("unexpected dropped payload: %+v", body)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	fa := &fakeAnalyzer{
		summary: &hermes.SegmentsReady{VODID: "v1", RunID: uuid.New().String(), SegmentCount: 2},
	}
	srv := NewServer(8760, "", nil, fa, testLogger())

	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(`{"vod_id":"v1","profile":"raid-nights"}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if fa.got.VODID != "v1" || fa.got.Profile != "raid-nights" {
		t.Errorf("unexpected analyzer request: %+v", fa.got)
	}

	var body hermes.SegmentsReady
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.SegmentCount != 2 {
		t.Errorf("expected 2 segments in summary, got %d", body.SegmentCount)
	}
}

func TestAnalyzeEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", fmt.Errorf("analysis: %w", engine.ErrInvalidInput), http.StatusUnprocessableEntity},
		{"invalid config", fmt.Errorf("profile: %w", engine.ErrInvalidConfig), http.StatusBadRequest},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(8760, "", nil, &fakeAnalyzer{err: tt.err}, testLogger())

			req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(`{"vod_id":"v1"}`))
			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAnalyzeEndpoint_MissingTarget(t *testing.T) {
	srv := NewServer(8760, "", nil, &fakeAnalyzer{}, testLogger())

	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDedupEndpoint(t *testing.T) {
	fs := &fakeStore{
		dedupRes: &dedup.DeduResult{VODID: "v1", Threshold: 0.8, Clusters: 1, Superseded: 1, Survivors: 1},
	}
	srv := NewServer(8760, "", fs, nil, testLogger())

	// Empty body defaults to a dry run at 0.8.
	req := httptest.NewRequest("POST", "/api/v1/vods/v1/dedup", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if fs.gotThreshold != 0.8 || fs.gotExecute {
		t.Errorf("expected dry run at 0.8, got threshold=%g execute=%v", fs.gotThreshold, fs.gotExecute)
	}

	// Explicit execute with custom threshold.
	req = httptest.NewRequest("POST", "/api/v1/vods/v1/dedup", strings.NewReader(`{"threshold":0.9,"execute":true}`))
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if fs.gotThreshold != 0.9 || !fs.gotExecute {
		t.Errorf("expected execute at 0.9, got threshold=%g execute=%v", fs.gotThreshold, fs.gotExecute)
	}
}

func TestDedupEndpoint_BadThreshold(t *testing.T) {
	srv := NewServer(8760, "", &fakeStore{}, nil, testLogger())

	req := httptest.NewRequest("POST", "/api/v1/vods/v1/dedup", strings.NewReader(`{"threshold":1.5}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
