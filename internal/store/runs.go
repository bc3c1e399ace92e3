package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/anderson/internal/engine"
	"github.com/MikeSquared-Agency/anderson/internal/signal"
)

// RunRow is one analysis run as stored in analysis_runs.
type RunRow struct {
	ID              uuid.UUID `json:"id"`
	VODID           string    `json:"vod_id"`
	Title           string    `json:"title"`
	Profile         string    `json:"profile"`
	DurationMS      int64     `json:"duration_ms"`
	WindowMS        int64     `json:"window_ms"`
	Windows         int       `json:"windows"`
	Selected        int       `json:"selected"`
	Merged          int       `json:"merged"`
	MergeRejections int       `json:"merge_rejections"`
	Dropped         int       `json:"dropped"`
	CreatedAt       time.Time `json:"created_at"`
}

// WriteRun persists one analysis run across the analysis_runs, segments and
// dropped_segments tables in a single transaction. Returns the run ID and the
// segment IDs in rank order.
func (s *Store) WriteRun(ctx context.Context, meta signal.Meta, profile string, cfg engine.Config, res *engine.Result) (uuid.UUID, []uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	weights, _ := json.Marshal(cfg.Weights)

	runID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO analysis_runs (id, vod_id, title, profile, duration_ms, window_ms, weights, windows, selected, merged, merge_rejections, dropped, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())`,
		runID, meta.VODID, meta.Title, profile, meta.DurationMS, cfg.WindowMS, weights,
		res.Stats.Windows, res.Stats.Selected, res.Stats.Merged, res.Stats.MergeRejections, res.Stats.Dropped,
	)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("insert run: %w", err)
	}

	segmentIDs := make([]uuid.UUID, 0, len(res.Segments))
	for _, seg := range res.Segments {
		id := uuid.New()
		windowIDs := make([]int32, len(seg.WindowIDs))
		for i, w := range seg.WindowIDs {
			windowIDs[i] = int32(w)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO segments (id, run_id, vod_id, start_ms, end_ms, score, rank, window_ids, refined, review_status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', now())`,
			id, runID, meta.VODID, seg.StartMS, seg.EndMS, seg.Score, seg.Rank, windowIDs, seg.Refined,
		)
		if err != nil {
			return uuid.Nil, nil, fmt.Errorf("insert segment: %w", err)
		}
		segmentIDs = append(segmentIDs, id)
	}

	for _, drop := range res.Dropped {
		_, err = tx.Exec(ctx, `
			INSERT INTO dropped_segments (id, run_id, vod_id, start_ms, end_ms, score, reason, detail, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
			uuid.New(), runID, meta.VODID, drop.StartMS, drop.EndMS, drop.Score, string(drop.Reason), drop.Detail,
		)
		if err != nil {
			return uuid.Nil, nil, fmt.Errorf("insert dropped segment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, nil, fmt.Errorf("commit: %w", err)
	}

	return runID, segmentIDs, nil
}

// LatestRun fetches the most recent analysis run for a VOD.
func (s *Store) LatestRun(ctx context.Context, vodID string) (*RunRow, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, vod_id, title, profile, duration_ms, window_ms, windows, selected, merged, merge_rejections, dropped, created_at
		FROM analysis_runs
		WHERE vod_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, vodID)

	var r RunRow
	err := row.Scan(&r.ID, &r.VODID, &r.Title, &r.Profile, &r.DurationMS, &r.WindowMS,
		&r.Windows, &r.Selected, &r.Merged, &r.MergeRejections, &r.Dropped, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// StatusCounts summarises stored state for the status endpoint.
type StatusCounts struct {
	Runs           int64 `json:"runs"`
	Segments       int64 `json:"segments"`
	PendingReviews int64 `json:"pending_reviews"`
}

// CountStatus returns aggregate row counts for the status endpoint.
func (s *Store) CountStatus(ctx context.Context) (StatusCounts, error) {
	var c StatusCounts
	row := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM analysis_runs),
			(SELECT count(*) FROM segments),
			(SELECT count(*) FROM segments WHERE review_status = 'pending')`)
	if err := row.Scan(&c.Runs, &c.Segments, &c.PendingReviews); err != nil {
		return StatusCounts{}, fmt.Errorf("count status: %w", err)
	}
	return c, nil
}
