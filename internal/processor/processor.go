// Package processor connects the analysis engine to the rest of the swarm:
// recording events in, persisted runs, bus announcements and Slack review
// threads out.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/MikeSquared-Agency/anderson/internal/config"
	"github.com/MikeSquared-Agency/anderson/internal/describe"
	"github.com/MikeSquared-Agency/anderson/internal/engine"
	"github.com/MikeSquared-Agency/anderson/internal/hermes"
	"github.com/MikeSquared-Agency/anderson/internal/signal"
	"github.com/MikeSquared-Agency/anderson/internal/slack"
	"github.com/MikeSquared-Agency/anderson/internal/store"
)

// maxTopSummaries caps the per-event segment list on SegmentsReady; the
// full ranked list lives in the store.
const maxTopSummaries = 5

// Processor orchestrates anderson's analysis pipeline. Store, hermes, slack
// and describer are all optional; a nil dependency disables that side
// effect and nothing else.
type Processor struct {
	store      *store.Store
	hermes     *hermes.Client
	slack      *slack.Poster
	describer  *describe.Describer
	baseCfg    engine.Config
	baseName   string
	libraryDir string
	logger     *slog.Logger

	mu             sync.Mutex
	pendingReviews map[string]*pendingReview // keyed by header TS (verdict applies to the whole run)
	pendingItems   map[string]*pendingItem   // keyed by per-segment reply TS
}

// pendingItem maps a single Slack thread-reply TS to one stored segment.
type pendingItem struct {
	VODID     string
	SegmentID uuid.UUID
	Rank      int
}

// pendingReview tracks the header TS and all segment IDs of a review thread.
type pendingReview struct {
	VODID      string
	HeaderTS   string
	SegmentIDs []uuid.UUID
}

func New(s *store.Store, h *hermes.Client, sl *slack.Poster, d *describe.Describer, baseCfg engine.Config, baseProfile, libraryDir string, logger *slog.Logger) *Processor {
	return &Processor{
		store:          s,
		hermes:         h,
		slack:          sl,
		describer:      d,
		baseCfg:        baseCfg,
		baseName:       baseProfile,
		libraryDir:     libraryDir,
		logger:         logger,
		pendingReviews: make(map[string]*pendingReview),
		pendingItems:   make(map[string]*pendingItem),
	}
}

// Analyze runs one analysis end to end: load the signal bundle, run the
// engine, persist the run, announce it, post the review thread. The
// returned payload is also what gets published on the bus. Store-less
// operation is allowed; the payload then carries no run id.
func (p *Processor) Analyze(ctx context.Context, req hermes.AnalyzeRequest) (*hermes.SegmentsReady, error) {
	dir := req.SignalDir
	if dir == "" {
		if req.VODID == "" {
			return nil, fmt.Errorf("%w: request names neither vod_id nor signal_dir", engine.ErrInvalidInput)
		}
		if p.libraryDir == "" {
			return nil, fmt.Errorf("%w: no signal_dir given and no VOD library configured", engine.ErrInvalidConfig)
		}
		dir = filepath.Join(p.libraryDir, req.VODID)
	}

	cfg, profileName := p.baseCfg, p.baseName
	if req.Profile != "" {
		var err error
		cfg, profileName, err = config.LoadProfile(req.Profile)
		if err != nil {
			return nil, fmt.Errorf("%w: profile %s: %v", engine.ErrInvalidConfig, req.Profile, err)
		}
	}

	p.logger.Info("analyzing recording", "vod_id", req.VODID, "dir", dir, "profile", profileName)

	bundle, err := signal.LoadBundle(dir)
	if err != nil {
		// Unreadable files keep their fs error; corrupt signal files are
		// invalid input.
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load signals: %v", engine.ErrInvalidInput, err)
	}
	if req.VODID != "" {
		bundle.Meta.VODID = req.VODID
	}

	eng, err := engine.New(cfg, p.logger)
	if err != nil {
		return nil, err
	}
	res, err := eng.Run(ctx, bundle)
	if err != nil {
		return nil, err
	}

	ready := &hermes.SegmentsReady{
		VODID:        bundle.Meta.VODID,
		Profile:      profileName,
		SegmentCount: len(res.Segments),
		DroppedCount: len(res.Dropped),
		Top:          topSummaries(res.Segments, maxTopSummaries),
		Timestamp:    time.Now().UTC(),
	}

	var segmentIDs []uuid.UUID
	if p.store != nil {
		runID, ids, err := p.store.WriteRun(ctx, bundle.Meta, profileName, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("write run: %w", err)
		}
		ready.RunID = runID.String()
		segmentIDs = ids
	}

	// Titles go out before the review thread so reviewers see them inline.
	titles := p.titleSegments(ctx, bundle, res.Segments, segmentIDs)

	if p.hermes != nil {
		if err := p.hermes.Publish(hermes.SubjectSegmentsReady, ready); err != nil {
			p.logger.Error("failed to publish segments ready", "vod_id", ready.VODID, "error", err)
		}
	}

	if p.slack != nil {
		p.postReview(ctx, bundle.Meta, profileName, res.Segments, titles, segmentIDs)
	}

	return ready, nil
}

// HandleRecordingStored is the NATS handler for swarm.archivist.recording.stored.
func (p *Processor) HandleRecordingStored(subject string, data []byte) {
	ctx := context.Background()

	var evt hermes.RecordingStored
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse recording stored event", "error", err)
		return
	}

	p.logger.Info("recording stored",
		"vod_id", evt.VODID,
		"title", evt.Title,
		"duration_ms", evt.DurationMS,
	)

	req := hermes.AnalyzeRequest{VODID: evt.VODID, SignalDir: evt.SignalDir}
	if _, err := p.Analyze(ctx, req); err != nil {
		p.failAnalysis(evt.VODID, err)
	}
}

// HandleAnalyzeRequested is the NATS handler for swarm.anderson.analyze.requested.
func (p *Processor) HandleAnalyzeRequested(subject string, data []byte) {
	ctx := context.Background()

	var req hermes.AnalyzeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		p.logger.Error("failed to parse analyze request", "error", err)
		return
	}

	if _, err := p.Analyze(ctx, req); err != nil {
		p.failAnalysis(req.VODID, err)
	}
}

// HandleReaction processes Slack reaction feedback forwarded via NATS.
// A reaction on a per-segment thread reply settles that segment; a reaction
// on the header applies the verdict to every segment in the run.
func (p *Processor) HandleReaction(subject string, data []byte) {
	ctx := context.Background()

	evt, err := slack.ParseReactionEvent(data, p.logger)
	if err != nil {
		p.logger.Error("failed to parse reaction", "error", err)
		return
	}

	verdict := slack.ParseReaction(evt.Reaction)
	if verdict == slack.VerdictUnknown {
		return // not a review reaction
	}

	// Try per-segment match first.
	p.mu.Lock()
	item, itemOK := p.pendingItems[evt.MessageTS]
	if itemOK {
		delete(p.pendingItems, evt.MessageTS)
	}
	p.mu.Unlock()

	if itemOK {
		p.logger.Info("segment review reaction",
			"vod_id", item.VODID,
			"rank", item.Rank,
			"verdict", string(verdict),
		)
		p.reviewSegment(ctx, item.VODID, item.SegmentID, verdict, evt.UserID)
		return
	}

	// Fall back to a header-level reaction applying to the whole run.
	p.mu.Lock()
	review, ok := p.pendingReviews[evt.MessageTS]
	if !ok {
		p.mu.Unlock()
		return // not a message we're tracking
	}
	delete(p.pendingReviews, evt.MessageTS)
	p.mu.Unlock()

	p.logger.Info("run review reaction",
		"vod_id", review.VODID,
		"reaction", evt.Reaction,
		"verdict", string(verdict),
		"segments", len(review.SegmentIDs),
	)
	for _, id := range review.SegmentIDs {
		p.reviewSegment(ctx, review.VODID, id, verdict, evt.UserID)
	}
}

// reviewSegment applies one verdict to one stored segment and announces it.
func (p *Processor) reviewSegment(ctx context.Context, vodID string, segmentID uuid.UUID, verdict slack.ReviewVerdict, reviewer string) {
	status := string(verdict)

	if p.store != nil {
		if err := p.store.UpdateSegmentReviewStatus(ctx, segmentID, status, ""); err != nil {
			p.logger.Error("failed to update segment review", "segment_id", segmentID, "error", err)
			return
		}
	}

	if p.hermes != nil {
		if err := p.hermes.Publish(hermes.SubjectSegmentReviewed, hermes.SegmentReviewed{
			VODID:     vodID,
			SegmentID: segmentID.String(),
			Status:    status,
			Reviewer:  reviewer,
		}); err != nil {
			p.logger.Error("failed to publish segment reviewed", "segment_id", segmentID, "error", err)
		}
	}
}

// titleSegments asks the describer for titles and persists the non-empty
// ones. Titling never fails a run; any error degrades to no titles.
func (p *Processor) titleSegments(ctx context.Context, b signal.Bundle, segments []engine.Segment, segmentIDs []uuid.UUID) []string {
	if p.describer == nil || len(segments) == 0 {
		return nil
	}

	titles, err := p.describer.TitleSegments(ctx, b.Meta, segments, b.Words)
	if err != nil {
		p.logger.Warn("segment titling failed", "vod_id", b.Meta.VODID, "error", err)
		return nil
	}

	if p.store != nil {
		for i, id := range segmentIDs {
			if i >= len(titles) || titles[i] == "" {
				continue
			}
			if err := p.store.SetSegmentTitle(ctx, id, titles[i]); err != nil {
				p.logger.Error("failed to store segment title", "segment_id", id, "error", err)
			}
		}
	}

	return titles
}

// postReview posts the Slack review thread and records its message
// timestamps so reactions can be routed back to the stored segments.
func (p *Processor) postReview(ctx context.Context, meta signal.Meta, profileName string, segments []engine.Segment, titles []string, segmentIDs []uuid.UUID) {
	thread, err := p.slack.PostReviewThread(ctx, meta.VODID, meta.Title, profileName, segments, titles)
	if err != nil {
		p.logger.Error("slack post failed", "vod_id", meta.VODID, "error", err)
		return
	}
	if len(segmentIDs) == 0 {
		return // nothing to route reactions to without stored rows
	}

	p.mu.Lock()
	p.pendingReviews[thread.HeaderTS] = &pendingReview{
		VODID:      meta.VODID,
		HeaderTS:   thread.HeaderTS,
		SegmentIDs: segmentIDs,
	}
	for _, item := range thread.Items {
		if item.Idx >= len(segmentIDs) {
			continue
		}
		p.pendingItems[item.TS] = &pendingItem{
			VODID:     meta.VODID,
			SegmentID: segmentIDs[item.Idx],
			Rank:      segments[item.Idx].Rank,
		}
	}
	p.mu.Unlock()
}

// failAnalysis logs an analysis failure and reports it on the bus.
func (p *Processor) failAnalysis(vodID string, err error) {
	kind := failKind(err)
	p.logger.Error("analysis failed", "vod_id", vodID, "kind", kind, "error", err)

	if p.hermes == nil {
		return
	}
	if pubErr := p.hermes.Publish(hermes.SubjectAnalysisFailed, hermes.AnalysisFailed{
		VODID: vodID,
		Kind:  kind,
		Error: err.Error(),
	}); pubErr != nil {
		p.logger.Error("failed to publish analysis failed", "vod_id", vodID, "error", pubErr)
	}
}

// failKind classifies an analysis error for the AnalysisFailed event.
func failKind(err error) string {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		return hermes.FailInvalidInput
	case errors.Is(err, engine.ErrInvalidConfig):
		return hermes.FailConfiguration
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return hermes.FailIO
	default:
		return hermes.FailInternal
	}
}

func topSummaries(segments []engine.Segment, max int) []hermes.SegmentSummary {
	n := len(segments)
	if n > max {
		n = max
	}
	top := make([]hermes.SegmentSummary, 0, n)
	for _, s := range segments[:n] {
		top = append(top, hermes.SegmentSummary{
			StartMS: s.StartMS,
			EndMS:   s.EndMS,
			Score:   s.Score,
			Rank:    s.Rank,
		})
	}
	return top
}
