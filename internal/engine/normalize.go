package engine

import "math"

// Normalize rescales raw window scores into (0, 1) by z-scoring against the
// recording's own distribution and squashing through the logistic function.
// Standard deviation is the population form. A degenerate distribution
// (every raw score equal, including the single-window case) assigns exactly
// 0.5 everywhere; that is a valid outcome, not an error. Windows are never
// reordered or dropped.
func Normalize(windows []Window) {
	if len(windows) == 0 {
		return
	}

	var sum float64
	for i := range windows {
		sum += windows[i].RawScore
	}
	mean := sum / float64(len(windows))

	var variance float64
	for i := range windows {
		d := windows[i].RawScore - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(len(windows)))

	if stddev == 0 {
		for i := range windows {
			windows[i].Score = 0.5
		}
		return
	}

	for i := range windows {
		z := (windows[i].RawScore - mean) / stddev
		windows[i].Score = 1 / (1 + math.Exp(-z))
	}
}
