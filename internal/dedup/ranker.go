package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SegmentRecord carries the fields used to pick a survivor from a cluster.
type SegmentRecord struct {
	ID           uuid.UUID
	ReviewStatus string
	Score        float64
	CreatedAt    time.Time
}

// Ranker picks survivors from clusters of overlapping segments.
type Ranker struct {
	pool *pgxpool.Pool
}

// NewRanker creates a new ranker instance.
func NewRanker(pool *pgxpool.Pool) *Ranker {
	return &Ranker{pool: pool}
}

// RankSegments picks the best segment from a cluster of overlapping IDs.
func (r *Ranker) RankSegments(ctx context.Context, ids []uuid.UUID) (uuid.UUID, error) {
	if len(ids) == 0 {
		return uuid.Nil, fmt.Errorf("empty cluster")
	}
	if len(ids) == 1 {
		return ids[0], nil
	}

	query := `
		SELECT id, review_status, score, created_at
		FROM segments
		WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return uuid.Nil, fmt.Errorf("fetch segments: %w", err)
	}
	defer rows.Close()

	var records []SegmentRecord
	for rows.Next() {
		var record SegmentRecord
		if err := rows.Scan(&record.ID, &record.ReviewStatus, &record.Score, &record.CreatedAt); err != nil {
			return uuid.Nil, fmt.Errorf("scan segment: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return uuid.Nil, fmt.Errorf("rows error: %w", err)
	}

	if len(records) == 0 {
		return uuid.Nil, fmt.Errorf("no records found")
	}

	best := records[0]
	for _, record := range records[1:] {
		if isSegmentBetter(record, best) {
			best = record
		}
	}

	return best.ID, nil
}

// isSegmentBetter determines if segment a should survive over segment b.
func isSegmentBetter(a, b SegmentRecord) bool {
	// 1. Review status: kept > pending > skipped > discarded
	aStatus := reviewStatusPriority(a.ReviewStatus)
	bStatus := reviewStatusPriority(b.ReviewStatus)
	if aStatus != bStatus {
		return aStatus > bStatus
	}

	// 2. Higher score breaks ties
	if a.Score != b.Score {
		return a.Score > b.Score
	}

	// 3. More recent created_at breaks further ties
	return a.CreatedAt.After(b.CreatedAt)
}

// reviewStatusPriority returns numeric priority for review status.
func reviewStatusPriority(status string) int {
	switch status {
	case "kept":
		return 4
	case "pending":
		return 3
	case "skipped":
		return 2
	case "discarded":
		return 1
	default:
		return 0
	}
}
