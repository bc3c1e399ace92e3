package engine

// Feature keys computed by the aggregator for every window. Config.Weights
// may reference these keys and nothing else.
const (
	FeatureChatDensity    = "chat_density"
	FeatureSentiment      = "sentiment"
	FeatureSpeechPresence = "speech_presence"
	FeatureEmoteDensity   = "emote_density"
	FeatureEmotion        = "emotion"
)

// Window is one fixed-size tile of the recording with its computed
// features. RawScore is the weighted feature sum; Score is assigned by
// Normalize.
type Window struct {
	ID       int
	StartMS  int64
	EndMS    int64
	Features map[string]float64
	RawScore float64
	Score    float64
}

// Segment is a candidate interest segment. Rank is 1-based and assigned on
// the final ordered list.
type Segment struct {
	StartMS   int64   `json:"start_ms"`
	EndMS     int64   `json:"end_ms"`
	Score     float64 `json:"score"`
	Rank      int     `json:"rank,omitempty"`
	WindowIDs []int   `json:"window_ids"`
	Refined   bool    `json:"refined"`
}

// DurationMS returns the segment length.
func (s Segment) DurationMS() int64 { return s.EndMS - s.StartMS }

// DropReason classifies entries on the diagnostics list.
type DropReason string

const (
	DropNoSpeech         DropReason = "no_speech_detected"
	DropMergeCeiling     DropReason = "merge_ceiling_exceeded"
	DropBelowMinDuration DropReason = "below_min_duration"
)

// DroppedSegment records a span excluded from the final list, or a merge
// span that was rejected. For merge rejections the source segments remain
// in the final list; the dropped entry describes the span that was not
// created.
type DroppedSegment struct {
	StartMS   int64      `json:"start_ms"`
	EndMS     int64      `json:"end_ms"`
	Score     float64    `json:"score"`
	WindowIDs []int      `json:"window_ids"`
	Reason    DropReason `json:"reason"`
	Detail    string     `json:"detail,omitempty"`
}
