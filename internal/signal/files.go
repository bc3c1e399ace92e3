package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Well-known file names inside a VOD signal directory.
const (
	TranscriptFile = "transcript.json"
	ChatFile       = "chat.json"
	ActivityFile   = "audio_activity.json"
	EmotionFile    = "emotion.json"
	MetaFile       = "meta.json"
)

// LoadBundle reads the signal files for one recording from dir. The
// transcript is required; chat, audio activity, emotion and metadata are
// optional. When meta.json is absent or carries no duration, the duration
// is inferred from the latest timestamp across the streams.
func LoadBundle(dir string) (Bundle, error) {
	var b Bundle

	data, err := os.ReadFile(filepath.Join(dir, TranscriptFile))
	if err != nil {
		return b, fmt.Errorf("read transcript: %w", err)
	}
	if b.Words, err = ParseTranscript(data); err != nil {
		return b, err
	}

	if data, err = readOptional(filepath.Join(dir, ChatFile)); err != nil {
		return b, err
	}
	if data != nil {
		if b.Chat, err = ParseChat(data); err != nil {
			return b, err
		}
	}

	if data, err = readOptional(filepath.Join(dir, ActivityFile)); err != nil {
		return b, err
	}
	if data != nil {
		if b.Activity, err = ParseActivity(data); err != nil {
			return b, err
		}
	}

	if data, err = readOptional(filepath.Join(dir, EmotionFile)); err != nil {
		return b, err
	}
	if data != nil {
		if b.Emotion, err = ParseEmotion(data); err != nil {
			return b, err
		}
	}

	if data, err = readOptional(filepath.Join(dir, MetaFile)); err != nil {
		return b, err
	}
	if data != nil {
		if err := json.Unmarshal(data, &b.Meta); err != nil {
			return b, fmt.Errorf("parse meta: %w", err)
		}
	}

	if b.Meta.VODID == "" {
		b.Meta.VODID = filepath.Base(dir)
	}
	if b.Meta.DurationMS <= 0 {
		b.Meta.DurationMS = inferDuration(b)
	}
	return b, nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

// inferDuration returns the latest timestamp seen across all streams.
func inferDuration(b Bundle) int64 {
	var latest int64
	for _, w := range b.Words {
		if w.EndMS > latest {
			latest = w.EndMS
		}
	}
	for _, c := range b.Chat {
		if c.TimestampMS > latest {
			latest = c.TimestampMS
		}
	}
	for _, f := range b.Activity {
		if f.FrameTimeMS > latest {
			latest = f.FrameTimeMS
		}
	}
	for _, e := range b.Emotion {
		if e.EndMS > latest {
			latest = e.EndMS
		}
	}
	return latest
}
