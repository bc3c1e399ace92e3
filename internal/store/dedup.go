package store

import (
	"context"
	"log/slog"

	"github.com/MikeSquared-Agency/anderson/internal/dedup"
)

// GetDeduplicator returns a deduplicator instance using the store's connection pool.
func (s *Store) GetDeduplicator(logger *slog.Logger) *dedup.Deduplicator {
	return dedup.New(s.pool, logger)
}

// DeduplicateSegments collapses overlapping segments from different runs of
// the same VOD, keeping the best of each overlap cluster.
func (s *Store) DeduplicateSegments(ctx context.Context, vodID string, threshold float64, execute bool, logger *slog.Logger) (*dedup.DeduResult, error) {
	deduper := s.GetDeduplicator(logger)
	return deduper.DeduplicateSegments(ctx, vodID, threshold, execute)
}
