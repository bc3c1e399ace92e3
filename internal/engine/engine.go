package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/MikeSquared-Agency/anderson/internal/signal"
)

// Result is everything one analysis run produced. Segments is the final
// ranked candidate list. Dropped is the companion diagnostics list; it also
// carries rejected merge spans, whose source segments remain in Segments.
type Result struct {
	Windows  []Window         `json:"-"`
	Segments []Segment        `json:"segments"`
	Dropped  []DroppedSegment `json:"dropped,omitempty"`
	Stats    Stats            `json:"stats"`
}

// Stats summarizes a run. Dropped counts refinement drops only; merge
// rejections are counted separately because their sources survive.
type Stats struct {
	Windows         int `json:"windows"`
	Selected        int `json:"selected"`
	Merged          int `json:"merged"`
	MergeRejections int `json:"merge_rejections"`
	Dropped         int `json:"dropped"`
}

// Engine runs the analysis pipeline with a fixed, validated configuration.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New validates cfg once and returns an engine bound to it.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Run executes aggregation, normalization, selection, merging and boundary
// refinement over one recording's signals. Identical inputs and
// configuration produce identical results: no stage depends on map
// iteration order, wall clock or randomness.
func (e *Engine) Run(ctx context.Context, b signal.Bundle) (*Result, error) {
	if err := validateBundle(b); err != nil {
		return nil, err
	}

	windows := Aggregate(b, e.cfg)
	Normalize(windows)
	e.logger.Debug("windows aggregated", "vod_id", b.Meta.VODID, "windows", len(windows))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis canceled: %w", err)
	}

	selected := SelectTopK(windows, e.cfg)
	merged, rejections := MergeSegments(selected, e.cfg)
	for _, r := range rejections {
		e.logger.Warn("merge rejected",
			"vod_id", b.Meta.VODID, "start_ms", r.StartMS, "end_ms", r.EndMS, "detail", r.Detail)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis canceled: %w", err)
	}

	segments, drops := RefineSegments(merged, b.Words, b.Activity, e.cfg)
	for _, d := range drops {
		e.logger.Debug("segment dropped",
			"vod_id", b.Meta.VODID, "start_ms", d.StartMS, "end_ms", d.EndMS, "reason", string(d.Reason))
	}

	sort.Slice(segments, func(i, j int) bool {
		if segments[i].Score != segments[j].Score {
			return segments[i].Score > segments[j].Score
		}
		if segments[i].StartMS != segments[j].StartMS {
			return segments[i].StartMS < segments[j].StartMS
		}
		return segments[i].EndMS < segments[j].EndMS
	})
	for i := range segments {
		segments[i].Rank = i + 1
	}

	dropped := make([]DroppedSegment, 0, len(rejections)+len(drops))
	dropped = append(dropped, rejections...)
	dropped = append(dropped, drops...)

	res := &Result{
		Windows:  windows,
		Segments: segments,
		Dropped:  dropped,
		Stats: Stats{
			Windows:         len(windows),
			Selected:        len(selected),
			Merged:          len(merged),
			MergeRejections: len(rejections),
			Dropped:         len(drops),
		},
	}
	e.logger.Info("analysis complete",
		"vod_id", b.Meta.VODID,
		"windows", len(windows),
		"selected", len(selected),
		"segments", len(segments),
		"dropped", len(drops))
	return res, nil
}
