// Package dedup collapses near-duplicate segments that different analysis
// runs produced for the same VOD. Overlap pairs are clustered with union-find
// and one survivor per cluster keeps its status; the rest are marked
// superseded.
package dedup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeduResult represents the result of a deduplication operation.
type DeduResult struct {
	VODID      string          `json:"vod_id"`
	Threshold  float64         `json:"threshold"`
	Execute    bool            `json:"execute"`
	Clusters   int             `json:"clusters"`
	TotalItems int             `json:"total_items"`
	Superseded int             `json:"superseded"`
	Survivors  int             `json:"survivors"`
	Details    []ClusterDetail `json:"details,omitempty"`
}

// ClusterDetail provides information about a specific overlap cluster.
type ClusterDetail struct {
	SurvivorID    uuid.UUID   `json:"survivor_id"`
	SupersededIDs []uuid.UUID `json:"superseded_ids"`
	Size          int         `json:"size"`
}

// Deduplicator orchestrates the deduplication process.
type Deduplicator struct {
	pool    *pgxpool.Pool
	scanner *Scanner
	ranker  *Ranker
	logger  *slog.Logger
}

// New creates a new deduplicator instance.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{
		pool:    pool,
		scanner: NewScanner(pool),
		ranker:  NewRanker(pool),
		logger:  logger,
	}
}

// DeduplicateSegments finds overlap clusters among a VOD's segments and, when
// execute is set, marks everything but each cluster's survivor as superseded.
// With execute false it only reports what would change.
func (d *Deduplicator) DeduplicateSegments(ctx context.Context, vodID string, threshold float64, execute bool) (*DeduResult, error) {
	d.logger.Info("starting segment deduplication", "vod_id", vodID, "threshold", threshold, "execute", execute)

	pairs, err := d.scanner.FindSegmentOverlaps(ctx, vodID, threshold)
	if err != nil {
		return nil, fmt.Errorf("find overlaps: %w", err)
	}

	d.logger.Info("found overlapping pairs", "count", len(pairs))

	if len(pairs) == 0 {
		return &DeduResult{
			VODID:     vodID,
			Threshold: threshold,
			Execute:   execute,
		}, nil
	}

	clusters := d.clusterPairs(pairs)
	d.logger.Info("clustered overlaps", "clusters", len(clusters))

	result := &DeduResult{
		VODID:     vodID,
		Threshold: threshold,
		Execute:   execute,
		Clusters:  len(clusters),
	}

	var allSurvivors []uuid.UUID
	var allSuperseded []uuid.UUID

	for _, cluster := range clusters {
		result.TotalItems += len(cluster)

		survivorID, err := d.ranker.RankSegments(ctx, cluster)
		if err != nil {
			d.logger.Error("failed to rank cluster", "cluster", cluster, "error", err)
			continue
		}

		var supersededIDs []uuid.UUID
		for _, id := range cluster {
			if id != survivorID {
				supersededIDs = append(supersededIDs, id)
			}
		}

		allSurvivors = append(allSurvivors, survivorID)
		allSuperseded = append(allSuperseded, supersededIDs...)

		if execute {
			if err := d.markSegmentsAsSuperseded(ctx, supersededIDs, survivorID); err != nil {
				d.logger.Error("failed to mark segments as superseded", "survivor", survivorID, "superseded", supersededIDs, "error", err)
				continue
			}
		}

		result.Details = append(result.Details, ClusterDetail{
			SurvivorID:    survivorID,
			SupersededIDs: supersededIDs,
			Size:          len(cluster),
		})
	}

	result.Survivors = len(allSurvivors)
	result.Superseded = len(allSuperseded)

	d.logger.Info("deduplication completed", "survivors", result.Survivors, "superseded", result.Superseded)
	return result, nil
}

// clusterPairs groups overlap pairs into connected components using union-find.
func (d *Deduplicator) clusterPairs(pairs []DuplicatePair) [][]uuid.UUID {
	if len(pairs) == 0 {
		return nil
	}

	parent := make(map[uuid.UUID]uuid.UUID)

	for _, pair := range pairs {
		if _, exists := parent[pair.ID1]; !exists {
			parent[pair.ID1] = pair.ID1
		}
		if _, exists := parent[pair.ID2]; !exists {
			parent[pair.ID2] = pair.ID2
		}
	}

	// Find function with path compression
	var find func(uuid.UUID) uuid.UUID
	find = func(id uuid.UUID) uuid.UUID {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}

	union := func(id1, id2 uuid.UUID) {
		root1 := find(id1)
		root2 := find(id2)
		if root1 != root2 {
			parent[root2] = root1
		}
	}

	for _, pair := range pairs {
		union(pair.ID1, pair.ID2)
	}

	groups := make(map[uuid.UUID][]uuid.UUID)
	for id := range parent {
		root := find(id)
		groups[root] = append(groups[root], id)
	}

	var clusters [][]uuid.UUID
	for _, cluster := range groups {
		if len(cluster) > 1 {
			clusters = append(clusters, cluster)
		}
	}

	return clusters
}

// markSegmentsAsSuperseded points losing segments at their cluster survivor.
func (d *Deduplicator) markSegmentsAsSuperseded(ctx context.Context, supersededIDs []uuid.UUID, survivorID uuid.UUID) error {
	if len(supersededIDs) == 0 {
		return nil
	}

	query := `
		UPDATE segments
		SET review_status = 'superseded', superseded_by = $1, reviewed_at = now()
		WHERE id = ANY($2)`

	_, err := d.pool.Exec(ctx, query, survivorID, supersededIDs)
	if err != nil {
		return fmt.Errorf("update segments: %w", err)
	}

	return nil
}
