package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/anderson/internal/dedup"
	"github.com/MikeSquared-Agency/anderson/internal/hermes"
	"github.com/MikeSquared-Agency/anderson/internal/store"
)

// Store is the slice of the persistence layer the API reads from.
type Store interface {
	SegmentsByVOD(ctx context.Context, vodID string, limit int) ([]store.SegmentRow, error)
	DroppedByRun(ctx context.Context, runID uuid.UUID) ([]store.DroppedRow, error)
	LatestRun(ctx context.Context, vodID string) (*store.RunRow, error)
	CountStatus(ctx context.Context) (store.StatusCounts, error)
	DeduplicateSegments(ctx context.Context, vodID string, threshold float64, execute bool, logger *slog.Logger) (*dedup.DeduResult, error)
}

// Analyzer runs one synchronous analysis for a VOD.
type Analyzer interface {
	Analyze(ctx context.Context, req hermes.AnalyzeRequest) (*hermes.SegmentsReady, error)
}

type Server struct {
	router   *chi.Mux
	port     int
	store    Store
	analyzer Analyzer
	logger   *slog.Logger
	started  time.Time
}

func NewServer(port int, apiToken string, db Store, analyzer Analyzer, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		store:    db,
		analyzer: analyzer,
		logger:   logger,
		started:  time.Now(),
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/anderson/status", s.status)

	router.Route("/api/v1/vods/{vodID}", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/segments", s.listSegments)
		r.Post("/dedup", s.dedupSegments)
	})
	router.Route("/api/v1/runs/{runID}", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/dropped", s.listDropped)
	})
	router.With(BearerAuthMiddleware(apiToken)).Post("/api/v1/analyze", s.analyze)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests whose Authorization header does not
// carry the expected bearer token. An empty token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "anderson"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"agent":    "anderson",
		"status":   "active",
		"uptime_s": int64(time.Since(s.started).Seconds()),
	}

	if s.store != nil {
		counts, err := s.store.CountStatus(r.Context())
		if err != nil {
			s.logger.Warn("status counts unavailable", "error", err)
		} else {
			resp["runs"] = counts.Runs
			resp["segments"] = counts.Segments
			resp["pending_reviews"] = counts.PendingReviews
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
