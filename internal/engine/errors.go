package engine

import (
	"errors"
	"fmt"

	"github.com/MikeSquared-Agency/anderson/internal/signal"
)

// Sentinel errors for the two fail-fast classes. Soft outcomes (no
// candidates, every segment dropped, degenerate normalization) are valid
// results, not errors.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid config")
)

// validateBundle rejects self-inconsistent input before any stage runs.
// Records at or past the recording end are tolerated; the aggregator
// ignores them.
func validateBundle(b signal.Bundle) error {
	if b.Meta.DurationMS <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidInput, b.Meta.DurationMS)
	}
	for i, w := range b.Words {
		if w.StartMS < 0 || w.StartMS >= w.EndMS {
			return fmt.Errorf("%w: word %d has span [%d, %d)", ErrInvalidInput, i, w.StartMS, w.EndMS)
		}
		if w.Confidence < 0 || w.Confidence > 1 {
			return fmt.Errorf("%w: word %d confidence %g outside [0, 1]", ErrInvalidInput, i, w.Confidence)
		}
		if i > 0 && w.StartMS < b.Words[i-1].StartMS {
			return fmt.Errorf("%w: transcript not ordered by start_ms at word %d", ErrInvalidInput, i)
		}
	}
	for i, c := range b.Chat {
		if c.TimestampMS < 0 {
			return fmt.Errorf("%w: chat event %d has negative timestamp", ErrInvalidInput, i)
		}
		if i > 0 && c.TimestampMS < b.Chat[i-1].TimestampMS {
			return fmt.Errorf("%w: chat not ordered by timestamp_ms at event %d", ErrInvalidInput, i)
		}
	}
	for i, f := range b.Activity {
		if f.FrameTimeMS < 0 {
			return fmt.Errorf("%w: activity frame %d has negative time", ErrInvalidInput, i)
		}
		if i > 0 && f.FrameTimeMS < b.Activity[i-1].FrameTimeMS {
			return fmt.Errorf("%w: activity frames not ordered at frame %d", ErrInvalidInput, i)
		}
	}
	for i, e := range b.Emotion {
		if e.StartMS < 0 || e.StartMS >= e.EndMS {
			return fmt.Errorf("%w: emotion sample %d has span [%d, %d)", ErrInvalidInput, i, e.StartMS, e.EndMS)
		}
	}
	return nil
}
