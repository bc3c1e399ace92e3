// Package backfill analyzes an on-disk VOD library in bulk: one analysis
// run per VOD directory, resumable across invocations.
package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/anderson/internal/config"
	"github.com/MikeSquared-Agency/anderson/internal/engine"
	"github.com/MikeSquared-Agency/anderson/internal/signal"
	"github.com/MikeSquared-Agency/anderson/internal/slack"
	"github.com/MikeSquared-Agency/anderson/internal/store"
)

// exportFile is the per-VOD result document written next to the signals.
const exportFile = "segments.json"

// Config holds the backfill command configuration.
type Config struct {
	LibraryDir   string
	ProfilePath  string
	DryRun       bool   // analyze and report without writing anything
	Limit        int    // max VODs to process this invocation (0 = all)
	SlackToken   string // optional: Slack bot token for batch summaries
	SlackChannel string // optional: Slack channel for batch summaries
}

// Runner orchestrates the backfill process.
type Runner struct {
	cfg     Config
	store   *store.Store
	engine  *engine.Engine
	profile string
	slack   *slack.Poster
	logger  *slog.Logger
}

// NewRunner creates a backfill runner. The store may be nil; runs are then
// exported to disk only.
func NewRunner(cfg Config, s *store.Store, logger *slog.Logger) (*Runner, error) {
	engCfg, profileName, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(engCfg, logger)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:     cfg,
		store:   s,
		engine:  eng,
		profile: profileName,
		logger:  logger,
	}

	// Set up optional Slack poster for batch summaries.
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		r.slack = slack.NewPoster(cfg.SlackToken, cfg.SlackChannel, logger)
	}

	return r, nil
}

// VODSummary is one processed VOD in the batch summary.
type VODSummary struct {
	VODID    string
	Segments int
	Dropped  int
	TopScore float64
}

// Run executes the backfill process.
func (r *Runner) Run(ctx context.Context) error {
	state, err := LoadState()
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	vods, err := DiscoverVODs(r.cfg.LibraryDir)
	if err != nil {
		return fmt.Errorf("discover vods: %w", err)
	}

	var pending []string
	for _, dir := range vods {
		if state.IsProcessed(dir) {
			continue
		}
		pending = append(pending, dir)
	}
	if r.cfg.Limit > 0 && len(pending) > r.cfg.Limit {
		pending = pending[:r.cfg.Limit]
	}
	state.VODsRemaining = len(pending)

	r.logger.Info("vods to process",
		"total", len(vods),
		"pending", len(pending),
		"already_done", len(vods)-len(pending),
		"profile", r.profile,
		"dry_run", r.cfg.DryRun,
	)

	var summaries []VODSummary
	processed := 0
	totalSegments := 0
	totalDropped := 0

	for _, dir := range pending {
		select {
		case <-ctx.Done():
			r.logger.Info("backfill interrupted, saving state")
			_ = state.Save()
			r.postSummary(ctx, summaries)
			return ctx.Err()
		default:
		}

		sum, err := r.processVOD(ctx, dir)
		if err != nil {
			r.logger.Error("vod failed", "dir", dir, "error", err)
			state.AddError(fmt.Sprintf("%s: %v", filepath.Base(dir), err))
			_ = state.Save()
			continue
		}

		summaries = append(summaries, sum)
		processed++
		totalSegments += sum.Segments
		totalDropped += sum.Dropped

		state.MarkProcessed(dir)
		state.VODsRemaining--
		state.SegmentsFound += sum.Segments
		state.SegmentsDropped += sum.Dropped
		_ = state.Save()
	}

	_ = state.Save()
	r.postSummary(ctx, summaries)

	r.logger.Info("backfill complete",
		"vods_processed", processed,
		"segments_found", totalSegments,
		"segments_dropped", totalDropped,
		"errors", len(state.Errors),
		"dry_run", r.cfg.DryRun,
	)

	fmt.Printf("\n=== Backfill Summary ===\n")
	fmt.Printf("VODs processed: %d\n", processed)
	fmt.Printf("Segments selected: %d\n", totalSegments)
	fmt.Printf("Segments dropped: %d\n", totalDropped)
	fmt.Printf("Errors: %d\n", len(state.Errors))
	if r.cfg.DryRun {
		fmt.Printf("Mode: DRY RUN (no writes)\n")
	}
	fmt.Printf("State file: %s\n", expandHome(defaultStatePath))

	return nil
}

// processVOD analyzes one signal directory and writes its exports.
func (r *Runner) processVOD(ctx context.Context, dir string) (VODSummary, error) {
	bundle, err := signal.LoadBundle(dir)
	if err != nil {
		return VODSummary{}, err
	}

	res, err := r.engine.Run(ctx, bundle)
	if err != nil {
		return VODSummary{}, err
	}

	sum := VODSummary{
		VODID:    bundle.Meta.VODID,
		Segments: len(res.Segments),
		Dropped:  len(res.Dropped),
	}
	if len(res.Segments) > 0 {
		sum.TopScore = res.Segments[0].Score
	}

	if !r.cfg.DryRun {
		if err := writeExport(dir, r.profile, bundle.Meta, res); err != nil {
			return VODSummary{}, err
		}
		if r.store != nil {
			if _, _, err := r.store.WriteRun(ctx, bundle.Meta, r.profile, r.engine.Config(), res); err != nil {
				return VODSummary{}, fmt.Errorf("write run: %w", err)
			}
		}
	}

	r.logger.Info("vod processed",
		"vod_id", bundle.Meta.VODID,
		"segments", len(res.Segments),
		"dropped", len(res.Dropped),
		"dry_run", r.cfg.DryRun,
	)
	return sum, nil
}

// export is the segments.json document shape.
type export struct {
	VODID       string                  `json:"vod_id"`
	Title       string                  `json:"title,omitempty"`
	Profile     string                  `json:"profile"`
	GeneratedAt time.Time               `json:"generated_at"`
	Segments    []engine.Segment        `json:"segments"`
	Dropped     []engine.DroppedSegment `json:"dropped,omitempty"`
	Stats       engine.Stats            `json:"stats"`
}

func writeExport(dir, profile string, meta signal.Meta, res *engine.Result) error {
	doc := export{
		VODID:       meta.VODID,
		Title:       meta.Title,
		Profile:     profile,
		GeneratedAt: time.Now().UTC(),
		Segments:    res.Segments,
		Dropped:     res.Dropped,
		Stats:       res.Stats,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, exportFile), data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// DiscoverVODs returns the signal directories under libraryDir, one per
// VOD: every directory containing a transcript file. Results are sorted for
// a deterministic processing order.
func DiscoverVODs(libraryDir string) ([]string, error) {
	root := expandHome(libraryDir)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("library dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library path %s is not a directory", root)
	}

	var dirs []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if !info.IsDir() && info.Name() == signal.TranscriptFile {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk library: %w", err)
	}

	sort.Strings(dirs)
	return dirs, nil
}

// postSummary posts a batch summary to Slack, or logs it when Slack is not
// configured.
func (r *Runner) postSummary(ctx context.Context, summaries []VODSummary) {
	if len(summaries) == 0 {
		return
	}

	text := FormatBatchSummary(summaries)

	if r.slack == nil {
		r.logger.Info("backfill batch summary (no Slack configured)", "summary", text)
		return
	}

	// Post as a standalone message (not a thread reply).
	if err := r.slack.PostThread(ctx, "", text); err != nil {
		r.logger.Warn("failed to post batch summary to Slack, logging instead",
			"error", err,
			"summary", text,
		)
	}
}

// FormatBatchSummary renders processed VOD summaries for Slack or the log.
func FormatBatchSummary(summaries []VODSummary) string {
	totalSegments, totalDropped := 0, 0
	for _, s := range summaries {
		totalSegments += s.Segments
		totalDropped += s.Dropped
	}

	var sb strings.Builder
	sb.WriteString("*Backfill Batch Summary*\n")
	fmt.Fprintf(&sb, "%d VODs, %d segments selected, %d dropped\n", len(summaries), totalSegments, totalDropped)

	for _, s := range summaries {
		fmt.Fprintf(&sb, "  - %s: %d segments", s.VODID, s.Segments)
		if s.Segments > 0 {
			fmt.Fprintf(&sb, " (top %.2f)", s.TopScore)
		}
		if s.Dropped > 0 {
			fmt.Fprintf(&sb, ", %d dropped", s.Dropped)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
