package engine

import (
	"fmt"
	"math"
	"sort"
)

// MergeSegments folds temporally adjacent segments into single spans with a
// single left-to-right pass over the selection ordered by start. Two
// segments merge when the gap between them is at most MergeGapMS; the
// merged span is the union, window IDs are combined, and the score follows
// cfg.MergeRule. A merge whose combined span would exceed
// MaxMergedDurationMS is rejected: both sides stay separate and the
// rejected span is reported for diagnostics. Merging the output again
// produces the same segments.
func MergeSegments(segments []Segment, cfg Config) ([]Segment, []DroppedSegment) {
	if len(segments) == 0 {
		return nil, nil
	}

	ordered := make([]Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].StartMS != ordered[j].StartMS {
			return ordered[i].StartMS < ordered[j].StartMS
		}
		return ordered[i].EndMS < ordered[j].EndMS
	})

	var merged []Segment
	var rejected []DroppedSegment
	current := ordered[0]
	for _, next := range ordered[1:] {
		if next.StartMS-current.EndMS > cfg.MergeGapMS {
			merged = append(merged, current)
			current = next
			continue
		}

		unionEnd := current.EndMS
		if next.EndMS > unionEnd {
			unionEnd = next.EndMS
		}
		span := unionEnd - current.StartMS
		if span > cfg.MaxMergedDurationMS {
			rejected = append(rejected, DroppedSegment{
				StartMS:   current.StartMS,
				EndMS:     unionEnd,
				Score:     math.Max(current.Score, next.Score),
				WindowIDs: unionIDs(current.WindowIDs, next.WindowIDs),
				Reason:    DropMergeCeiling,
				Detail:    fmt.Sprintf("combined span %dms exceeds ceiling %dms, sources kept separate", span, cfg.MaxMergedDurationMS),
			})
			merged = append(merged, current)
			current = next
			continue
		}

		current = combine(current, next, unionEnd, cfg.MergeRule)
	}
	merged = append(merged, current)
	return merged, rejected
}

// combine folds next into current. current starts first because the input
// is ordered by start.
func combine(current, next Segment, unionEnd int64, rule MergeRule) Segment {
	out := Segment{
		StartMS:   current.StartMS,
		EndMS:     unionEnd,
		WindowIDs: unionIDs(current.WindowIDs, next.WindowIDs),
	}
	switch rule {
	case MergeRuleWeightedAverage:
		da := float64(current.DurationMS())
		db := float64(next.DurationMS())
		out.Score = (current.Score*da + next.Score*db) / (da + db)
	default:
		out.Score = math.Max(current.Score, next.Score)
	}
	return out
}

// unionIDs returns the sorted union of two window ID lists.
func unionIDs(a, b []int) []int {
	merged := make([]int, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	sort.Ints(merged)

	out := merged[:0]
	for _, id := range merged {
		if len(out) == 0 || out[len(out)-1] != id {
			out = append(out, id)
		}
	}
	return out
}
