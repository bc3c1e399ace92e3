package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/anderson/internal/engine"
	"github.com/MikeSquared-Agency/anderson/internal/hermes"
)

const defaultDedupThreshold = 0.8

// AnalyzeBody is the request payload for POST /api/v1/analyze.
type AnalyzeBody struct {
	VODID     string `json:"vod_id"`
	SignalDir string `json:"signal_dir,omitempty"`
	Profile   string `json:"profile,omitempty"`
}

// DedupBody is the request payload for POST /api/v1/vods/{vodID}/dedup.
type DedupBody struct {
	Threshold *float64 `json:"threshold,omitempty"`
	Execute   bool     `json:"execute"`
}

// listSegments handles GET /api/v1/vods/{vodID}/segments
func (s *Server) listSegments(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, `{"error":"store not configured"}`, http.StatusServiceUnavailable)
		return
	}
	vodID := chi.URLParam(r, "vodID")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf(`{"error":"invalid limit: %s"}`, limitStr), http.StatusBadRequest)
			return
		}
		limit = n
	}

	segments, err := s.store.SegmentsByVOD(r.Context(), vodID, limit)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"list segments: %v"}`, err), http.StatusInternalServerError)
		return
	}

	// The run row is context, not a requirement; a VOD with no runs yet
	// still answers with an empty list.
	run, err := s.store.LatestRun(r.Context(), vodID)
	if err != nil {
		run = nil
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"vod_id":   vodID,
		"run":      run,
		"count":    len(segments),
		"segments": segments,
	})
}

// listDropped handles GET /api/v1/runs/{runID}/dropped
func (s *Server) listDropped(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, `{"error":"store not configured"}`, http.StatusServiceUnavailable)
		return
	}

	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		http.Error(w, `{"error":"invalid run id"}`, http.StatusBadRequest)
		return
	}

	dropped, err := s.store.DroppedByRun(r.Context(), runID)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"list dropped: %v"}`, err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  runID,
		"count":   len(dropped),
		"dropped": dropped,
	})
}

// analyze handles POST /api/v1/analyze. Runs the analysis synchronously and
// returns the run summary.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		http.Error(w, `{"error":"analyzer not configured"}`, http.StatusServiceUnavailable)
		return
	}

	var body AnalyzeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid JSON: %v"}`, err), http.StatusBadRequest)
		return
	}
	if body.VODID == "" && body.SignalDir == "" {
		http.Error(w, `{"error":"vod_id or signal_dir required"}`, http.StatusBadRequest)
		return
	}

	summary, err := s.analyzer.Analyze(r.Context(), hermes.AnalyzeRequest{
		VODID:     body.VODID,
		SignalDir: body.SignalDir,
		Profile:   body.Profile,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"analyze: %v"}`, err), analyzeStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// analyzeStatus maps analysis failures onto HTTP status codes.
func analyzeStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// dedupSegments handles POST /api/v1/vods/{vodID}/dedup
func (s *Server) dedupSegments(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, `{"error":"store not configured"}`, http.StatusServiceUnavailable)
		return
	}
	vodID := chi.URLParam(r, "vodID")

	// Empty body means a dry run at the default threshold.
	var body DedupBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, fmt.Sprintf(`{"error":"invalid JSON: %v"}`, err), http.StatusBadRequest)
		return
	}

	threshold := defaultDedupThreshold
	if body.Threshold != nil {
		threshold = *body.Threshold
	}
	if threshold <= 0 || threshold > 1 {
		http.Error(w, fmt.Sprintf(`{"error":"threshold out of range: %g"}`, threshold), http.StatusBadRequest)
		return
	}

	result, err := s.store.DeduplicateSegments(r.Context(), vodID, threshold, body.Execute, s.logger)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"dedup failed: %v"}`, err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
