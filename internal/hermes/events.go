package hermes

import "time"

// Subjects anderson consumes.
const (
	// SubjectRecordingStored is emitted by archivist when a VOD's signal
	// files have landed in the library.
	SubjectRecordingStored = "swarm.archivist.recording.stored"

	// SubjectAnalyzeRequest requests a (re)analysis of a VOD, optionally
	// with a named scoring profile.
	SubjectAnalyzeRequest = "swarm.anderson.analyze.requested"

	// SubjectSlackReaction carries reviewer reactions forwarded from Slack.
	SubjectSlackReaction = "swarm.slack.reaction.added"
)

// Subjects anderson publishes.
const (
	SubjectSegmentsReady   = "swarm.anderson.segments.ready"
	SubjectAnalysisFailed  = "swarm.anderson.analysis.failed"
	SubjectSegmentReviewed = "swarm.anderson.segment.reviewed"
	SubjectAgentRegistered = "swarm.agent.anderson.registered"
)

// Failure kinds carried on AnalysisFailed events.
const (
	FailInvalidInput  = "invalid_input"
	FailConfiguration = "configuration"
	FailIO            = "io"
	FailInternal      = "internal"
)

// RecordingStored is archivist's announcement that a VOD and its signal
// files are on disk and ready for analysis.
type RecordingStored struct {
	VODID      string `json:"vod_id"`
	Title      string `json:"title"`
	DurationMS int64  `json:"duration_ms"`
	SignalDir  string `json:"signal_dir"`
}

// AnalyzeRequest asks for an analysis run. Profile points at a scoring
// profile file; empty means the configured default.
type AnalyzeRequest struct {
	VODID     string `json:"vod_id"`
	SignalDir string `json:"signal_dir"`
	Profile   string `json:"profile,omitempty"`
}

// SegmentSummary is the compact per-segment view carried on SegmentsReady.
type SegmentSummary struct {
	StartMS int64   `json:"start_ms"`
	EndMS   int64   `json:"end_ms"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

// SegmentsReady announces a completed analysis run to downstream agents.
type SegmentsReady struct {
	VODID        string           `json:"vod_id"`
	RunID        string           `json:"run_id"`
	Profile      string           `json:"profile"`
	SegmentCount int              `json:"segment_count"`
	DroppedCount int              `json:"dropped_count"`
	Top          []SegmentSummary `json:"top"`
	Timestamp    time.Time        `json:"timestamp"`
}

// AnalysisFailed reports an analysis that could not produce a run.
// Kind is one of the Fail* constants above.
type AnalysisFailed struct {
	VODID string `json:"vod_id"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// SegmentReviewed is published when a reviewer's Slack reaction settles a
// segment's review status.
type SegmentReviewed struct {
	VODID     string `json:"vod_id"`
	SegmentID string `json:"segment_id"`
	Status    string `json:"status"`
	Reviewer  string `json:"reviewer"`
}

// AgentRegistered announces this agent to the swarm on startup.
type AgentRegistered struct {
	Agent     string    `json:"agent"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}
