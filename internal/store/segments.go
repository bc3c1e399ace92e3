package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SegmentRow is one ranked segment as stored in the segments table.
type SegmentRow struct {
	ID           uuid.UUID `json:"id"`
	RunID        uuid.UUID `json:"run_id"`
	VODID        string    `json:"vod_id"`
	StartMS      int64     `json:"start_ms"`
	EndMS        int64     `json:"end_ms"`
	Score        float64   `json:"score"`
	Rank         int       `json:"rank"`
	WindowIDs    []int32   `json:"window_ids"`
	Refined      bool      `json:"refined"`
	Title        string    `json:"title"`
	ReviewStatus string    `json:"review_status"`
	CreatedAt    time.Time `json:"created_at"`
}

// DroppedRow is one dropped segment as stored in dropped_segments.
type DroppedRow struct {
	ID        uuid.UUID `json:"id"`
	RunID     uuid.UUID `json:"run_id"`
	VODID     string    `json:"vod_id"`
	StartMS   int64     `json:"start_ms"`
	EndMS     int64     `json:"end_ms"`
	Score     float64   `json:"score"`
	Reason    string    `json:"reason"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

const segmentColumns = `id, run_id, vod_id, start_ms, end_ms, score, rank, window_ids, refined, coalesce(title, ''), review_status, created_at`

func scanSegment(row pgx.Row) (SegmentRow, error) {
	var seg SegmentRow
	err := row.Scan(&seg.ID, &seg.RunID, &seg.VODID, &seg.StartMS, &seg.EndMS, &seg.Score,
		&seg.Rank, &seg.WindowIDs, &seg.Refined, &seg.Title, &seg.ReviewStatus, &seg.CreatedAt)
	return seg, err
}

// SegmentsByVOD returns the ranked segments of the most recent run for a VOD.
// A limit of 0 or less returns all of them.
func (s *Store) SegmentsByVOD(ctx context.Context, vodID string, limit int) ([]SegmentRow, error) {
	query := `
		SELECT ` + segmentColumns + `
		FROM segments
		WHERE run_id = (SELECT id FROM analysis_runs WHERE vod_id = $1 ORDER BY created_at DESC LIMIT 1)
		ORDER BY rank`
	args := []any{vodID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []SegmentRow
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return segments, nil
}

// SegmentsByRun returns all segments of one run in rank order.
func (s *Store) SegmentsByRun(ctx context.Context, runID uuid.UUID) ([]SegmentRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+segmentColumns+`
		FROM segments
		WHERE run_id = $1
		ORDER BY rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []SegmentRow
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return segments, nil
}

// DroppedByRun returns the dropped-segment diagnostics of one run.
func (s *Store) DroppedByRun(ctx context.Context, runID uuid.UUID) ([]DroppedRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, run_id, vod_id, start_ms, end_ms, score, reason, coalesce(detail, ''), created_at
		FROM dropped_segments
		WHERE run_id = $1
		ORDER BY start_ms`, runID)
	if err != nil {
		return nil, fmt.Errorf("query dropped segments: %w", err)
	}
	defer rows.Close()

	var dropped []DroppedRow
	for rows.Next() {
		var d DroppedRow
		if err := rows.Scan(&d.ID, &d.RunID, &d.VODID, &d.StartMS, &d.EndMS, &d.Score, &d.Reason, &d.Detail, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dropped segment: %w", err)
		}
		dropped = append(dropped, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return dropped, nil
}

// GetSegmentByID fetches a single segment.
func (s *Store) GetSegmentByID(ctx context.Context, id uuid.UUID) (*SegmentRow, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+segmentColumns+`
		FROM segments WHERE id = $1`, id)

	seg, err := scanSegment(row)
	if err != nil {
		return nil, err
	}
	return &seg, nil
}

// UpdateSegmentReviewStatus updates the review status of a segment.
func (s *Store) UpdateSegmentReviewStatus(ctx context.Context, segmentID uuid.UUID, status, note string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE segments SET review_status = $1, review_note = $2, reviewed_at = now()
		WHERE id = $3`,
		status, note, segmentID,
	)
	return err
}

// SetSegmentTitle stores a generated title on a segment.
func (s *Store) SetSegmentTitle(ctx context.Context, segmentID uuid.UUID, title string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE segments SET title = $1 WHERE id = $2`,
		title, segmentID,
	)
	return err
}
