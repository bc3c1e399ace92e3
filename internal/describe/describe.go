// Package describe generates short titles for selected segments with an
// LLM. Titling is optional: runs complete identically when no describer is
// configured or when the model response cannot be used.
package describe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/anderson/internal/engine"
	"github.com/MikeSquared-Agency/anderson/internal/signal"
)

// excerptMaxChars caps the transcript text quoted per segment so long
// segments do not blow up the prompt.
const excerptMaxChars = 600

const titleMaxTokens = 1024

type Describer struct {
	llm    *Client
	logger *slog.Logger
}

func New(llm *Client, logger *slog.Logger) *Describer {
	return &Describer{llm: llm, logger: logger}
}

// TitleSegments asks the model for one title per segment, built from the
// transcript words inside each segment's span. Titles come back
// index-aligned with segments; an entry may be empty when the excerpt gave
// the model nothing to work with.
func (d *Describer) TitleSegments(ctx context.Context, meta signal.Meta, segments []engine.Segment, words []signal.Word) ([]string, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(titleUserPrompt, len(segments), meta.VODID, segmentBlocks(segments, words), len(segments))

	messages := []Message{
		{Role: "user", Content: prompt},
	}

	d.logger.Info("titling segments", "vod_id", meta.VODID, "segments", len(segments))

	raw, err := d.llm.Complete(ctx, titleSystemPrompt, messages, titleMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("llm titles: %w", err)
	}

	var titles []string
	if err := json.Unmarshal([]byte(raw), &titles); err != nil {
		d.logger.Error("failed to parse title response",
			"error", err,
			"raw", raw,
		)
		return nil, fmt.Errorf("parse titles: %w", err)
	}
	if len(titles) != len(segments) {
		d.logger.Error("title count mismatch", "want", len(segments), "got", len(titles))
		return nil, fmt.Errorf("parse titles: want %d titles, got %d", len(segments), len(titles))
	}

	return titles, nil
}

// segmentBlocks renders each segment as a numbered block with its
// transcript excerpt.
func segmentBlocks(segments []engine.Segment, words []signal.Word) string {
	var sb strings.Builder
	for i, seg := range segments {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Segment %d [%s - %s]:\n---\n", i+1, msClock(seg.StartMS), msClock(seg.EndMS))
		excerpt := transcriptExcerpt(words, seg.StartMS, seg.EndMS)
		if excerpt == "" {
			sb.WriteString("(no transcript)")
		} else {
			sb.WriteString(excerpt)
		}
		sb.WriteString("\n---")
	}
	return sb.String()
}

// transcriptExcerpt joins the words overlapping [startMS, endMS). Output is
// capped near excerptMaxChars without splitting the final word. Assumes
// words sorted by start time.
func transcriptExcerpt(words []signal.Word, startMS, endMS int64) string {
	var sb strings.Builder
	for _, w := range words {
		if w.StartMS >= endMS {
			break
		}
		if w.EndMS <= startMS {
			continue
		}
		if sb.Len() >= excerptMaxChars {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(w.Text)
	}
	return sb.String()
}

func msClock(ms int64) string {
	s := ms / 1000
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
