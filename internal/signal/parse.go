package signal

import (
	"encoding/json"
	"fmt"
)

// Producers disagree on the outer shape of signal files: some write a bare
// JSON array of records, others wrap the array in an object under a
// well-known key. Every parser below accepts both.

// ParseTranscript parses transcript words from JSON.
func ParseTranscript(data []byte) ([]Word, error) {
	var words []Word
	if err := json.Unmarshal(data, &words); err == nil {
		return words, nil
	}

	var wrapped struct {
		Words []Word `json:"words"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	return wrapped.Words, nil
}

// ParseChat parses chat events from JSON.
func ParseChat(data []byte) ([]ChatEvent, error) {
	var events []ChatEvent
	if err := json.Unmarshal(data, &events); err == nil {
		return events, nil
	}

	var wrapped struct {
		Messages []ChatEvent `json:"messages"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse chat: %w", err)
	}
	return wrapped.Messages, nil
}

// activityRecord mirrors ActivityFrame with pointer fields so a missing
// is_active can be told apart from an explicit false.
type activityRecord struct {
	FrameTimeMS int64    `json:"frame_time_ms"`
	Active      *bool    `json:"is_active"`
	Score       *float64 `json:"score"`
}

// ParseActivity parses audio activity frames from JSON. Records that carry
// only a score derive the activity flag as score >= 0.5.
func ParseActivity(data []byte) ([]ActivityFrame, error) {
	var records []activityRecord
	if err := json.Unmarshal(data, &records); err != nil {
		var wrapped struct {
			Frames []activityRecord `json:"frames"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("parse audio activity: %w", err)
		}
		records = wrapped.Frames
	}

	frames := make([]ActivityFrame, 0, len(records))
	for _, r := range records {
		f := ActivityFrame{FrameTimeMS: r.FrameTimeMS}
		if r.Score != nil {
			f.Score = *r.Score
		}
		switch {
		case r.Active != nil:
			f.Active = *r.Active
		case r.Score != nil:
			f.Active = *r.Score >= 0.5
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// ParseEmotion parses emotion samples from JSON.
func ParseEmotion(data []byte) ([]EmotionSample, error) {
	var samples []EmotionSample
	if err := json.Unmarshal(data, &samples); err == nil {
		return samples, nil
	}

	var wrapped struct {
		Samples []EmotionSample `json:"samples"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse emotion: %w", err)
	}
	return wrapped.Samples, nil
}
