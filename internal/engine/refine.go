package engine

import (
	"fmt"

	"github.com/MikeSquared-Agency/anderson/internal/signal"
)

// defaultFrameStrideMS is assumed when the activity stream has fewer than
// two frames to infer the real spacing from.
const defaultFrameStrideMS int64 = 1000

// RefineSegments snaps segment boundaries to detected speech. Transcript
// words at or above MinWordConfidence take precedence; when a segment
// contains none, the active audio span is used instead; segments containing
// neither are dropped with reason no_speech_detected. Refinement never
// widens a segment past its original span. With MinSegmentMS set, refined
// segments shorter than the floor are dropped too. Every segment dropped is
// a valid outcome.
func RefineSegments(segments []Segment, words []signal.Word, activity []signal.ActivityFrame, cfg Config) ([]Segment, []DroppedSegment) {
	var kept []Segment
	var dropped []DroppedSegment

	stride := frameStride(activity)
	for _, seg := range segments {
		refined, ok := refineOne(seg, words, activity, stride, cfg.MinWordConfidence)
		if !ok {
			dropped = append(dropped, DroppedSegment{
				StartMS:   seg.StartMS,
				EndMS:     seg.EndMS,
				Score:     seg.Score,
				WindowIDs: seg.WindowIDs,
				Reason:    DropNoSpeech,
			})
			continue
		}
		if cfg.MinSegmentMS > 0 && refined.DurationMS() < cfg.MinSegmentMS {
			dropped = append(dropped, DroppedSegment{
				StartMS:   refined.StartMS,
				EndMS:     refined.EndMS,
				Score:     refined.Score,
				WindowIDs: refined.WindowIDs,
				Reason:    DropBelowMinDuration,
				Detail:    fmt.Sprintf("refined span %dms under %dms floor", refined.DurationMS(), cfg.MinSegmentMS),
			})
			continue
		}
		kept = append(kept, refined)
	}
	return kept, dropped
}

func refineOne(seg Segment, words []signal.Word, activity []signal.ActivityFrame, stride int64, minConfidence float64) (Segment, bool) {
	first, last := int64(-1), int64(-1)
	for _, w := range words {
		if w.StartMS >= seg.EndMS {
			break
		}
		if w.EndMS <= seg.StartMS || w.Confidence < minConfidence {
			continue
		}
		if first == -1 || w.StartMS < first {
			first = w.StartMS
		}
		if w.EndMS > last {
			last = w.EndMS
		}
	}
	if first >= 0 {
		return clampSpan(seg, first, last)
	}

	// No qualifying words; fall back to the active audio span. The end
	// extends one frame stride past the last active frame so the final
	// frame's own duration is covered.
	firstActive, lastActive := int64(-1), int64(-1)
	for _, f := range activity {
		if f.FrameTimeMS >= seg.EndMS {
			break
		}
		if f.FrameTimeMS < seg.StartMS || !f.Active {
			continue
		}
		if firstActive == -1 {
			firstActive = f.FrameTimeMS
		}
		lastActive = f.FrameTimeMS
	}
	if firstActive >= 0 {
		return clampSpan(seg, firstActive, lastActive+stride)
	}

	return seg, false
}

// clampSpan applies a refined span to seg without widening it. A span that
// collapses to nothing fails.
func clampSpan(seg Segment, startMS, endMS int64) (Segment, bool) {
	if startMS < seg.StartMS {
		startMS = seg.StartMS
	}
	if endMS > seg.EndMS {
		endMS = seg.EndMS
	}
	if startMS >= endMS {
		return seg, false
	}
	seg.StartMS = startMS
	seg.EndMS = endMS
	seg.Refined = true
	return seg, true
}

// frameStride infers the activity frame spacing from the first two frames.
func frameStride(activity []signal.ActivityFrame) int64 {
	if len(activity) >= 2 {
		if d := activity[1].FrameTimeMS - activity[0].FrameTimeMS; d > 0 {
			return d
		}
	}
	return defaultFrameStrideMS
}
