package engine

import "sort"

// SelectTopK greedily picks up to TopK non-overlapping windows in score
// order. Candidates are visited by score descending, ties broken by start
// then end ascending, so selection is a total order. Windows that received
// no signal at all (raw score zero) are never selected even though
// normalization may have scored them 0.5. Accepted spans are widened by
// SelectBufferMS on both sides for the overlap test; AllowOverlap skips the
// test entirely. Fewer than TopK accepted candidates, or none, is a valid
// result.
func SelectTopK(windows []Window, cfg Config) []Segment {
	ordered := make([]Window, len(windows))
	copy(ordered, windows)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		if ordered[i].StartMS != ordered[j].StartMS {
			return ordered[i].StartMS < ordered[j].StartMS
		}
		return ordered[i].EndMS < ordered[j].EndMS
	})

	var selected []Segment
	for _, w := range ordered {
		if len(selected) >= cfg.TopK {
			break
		}
		if w.RawScore == 0 {
			continue
		}
		if !cfg.AllowOverlap && overlapsAny(selected, w.StartMS, w.EndMS, cfg.SelectBufferMS) {
			continue
		}
		selected = append(selected, Segment{
			StartMS:   w.StartMS,
			EndMS:     w.EndMS,
			Score:     w.Score,
			WindowIDs: []int{w.ID},
		})
	}
	return selected
}

// overlapsAny reports whether [startMS, endMS) intersects any accepted
// segment widened by buffer on both sides.
func overlapsAny(accepted []Segment, startMS, endMS, buffer int64) bool {
	for _, s := range accepted {
		if startMS < s.EndMS+buffer && endMS > s.StartMS-buffer {
			return true
		}
	}
	return false
}
