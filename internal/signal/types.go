package signal

// ChatEvent is a single chat message, timestamped relative to the start of
// the recording.
type ChatEvent struct {
	TimestampMS int64    `json:"timestamp_ms"`
	Author      string   `json:"author"`
	Text        string   `json:"text"`
	Emotes      []string `json:"emotes,omitempty"`
}

// Word is one transcript word with its timing and recognizer confidence.
type Word struct {
	StartMS    int64   `json:"start_ms"`
	EndMS      int64   `json:"end_ms"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// ActivityFrame marks whether audio activity was detected at one frame.
// Score carries the raw activity level when the producer supplies one.
type ActivityFrame struct {
	FrameTimeMS int64   `json:"frame_time_ms"`
	Active      bool    `json:"is_active"`
	Score       float64 `json:"score,omitempty"`
}

// EmotionSample is one span of the optional emotion stream.
type EmotionSample struct {
	StartMS int64   `json:"start_ms"`
	EndMS   int64   `json:"end_ms"`
	Score   float64 `json:"score"`
}

// Meta describes the recording the signals belong to.
type Meta struct {
	VODID      string `json:"vod_id"`
	Title      string `json:"title,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Bundle is the full set of signals for one recording. Chat, Activity and
// Emotion may be empty; an empty stream contributes zero to every feature
// but is not an error.
type Bundle struct {
	Meta     Meta
	Chat     []ChatEvent
	Words    []Word
	Activity []ActivityFrame
	Emotion  []EmotionSample
}
