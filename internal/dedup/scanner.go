package dedup

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DuplicatePair represents two segments covering the same stretch of a VOD.
type DuplicatePair struct {
	ID1     uuid.UUID
	ID2     uuid.UUID
	Overlap float64
}

// Scanner finds overlapping segment pairs using temporal
// intersection-over-union computed in SQL.
type Scanner struct {
	pool *pgxpool.Pool
}

// NewScanner creates a new scanner instance.
func NewScanner(pool *pgxpool.Pool) *Scanner {
	return &Scanner{pool: pool}
}

// FindSegmentOverlaps finds segment pairs from different runs of the same VOD
// whose spans overlap above the IoU threshold. Already-superseded segments
// are excluded so repeated scans converge.
func (s *Scanner) FindSegmentOverlaps(ctx context.Context, vodID string, threshold float64) ([]DuplicatePair, error) {
	query := `
		SELECT a.id, b.id,
		       (LEAST(a.end_ms, b.end_ms) - GREATEST(a.start_ms, b.start_ms))::float8 /
		       (GREATEST(a.end_ms, b.end_ms) - LEAST(a.start_ms, b.start_ms))::float8 AS overlap
		FROM segments a, segments b
		WHERE a.vod_id = $1 AND b.vod_id = $1
		  AND a.id < b.id
		  AND a.run_id <> b.run_id
		  AND a.review_status <> 'superseded' AND b.review_status <> 'superseded'
		  AND LEAST(a.end_ms, b.end_ms) > GREATEST(a.start_ms, b.start_ms)
		  AND (LEAST(a.end_ms, b.end_ms) - GREATEST(a.start_ms, b.start_ms))::float8 /
		      (GREATEST(a.end_ms, b.end_ms) - LEAST(a.start_ms, b.start_ms))::float8 > $2
		ORDER BY overlap DESC`

	rows, err := s.pool.Query(ctx, query, vodID, threshold)
	if err != nil {
		return nil, fmt.Errorf("query segment overlaps: %w", err)
	}
	defer rows.Close()

	var pairs []DuplicatePair
	for rows.Next() {
		var pair DuplicatePair
		if err := rows.Scan(&pair.ID1, &pair.ID2, &pair.Overlap); err != nil {
			return nil, fmt.Errorf("scan duplicate pair: %w", err)
		}
		pairs = append(pairs, pair)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return pairs, nil
}
