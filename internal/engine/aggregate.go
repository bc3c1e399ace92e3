package engine

import (
	"math"
	"sort"
	"sync"

	"github.com/MikeSquared-Agency/anderson/internal/signal"
)

// Aggregate tiles [0, duration) into WindowMS-sized windows and computes
// the feature map and weighted raw score for each. The final window may be
// shorter; a recording shorter than one window yields a single window.
// Window IDs are the tile indices. Empty signal streams produce zero-valued
// features, not errors.
func Aggregate(b signal.Bundle, cfg Config) []Window {
	n := int((b.Meta.DurationMS + cfg.WindowMS - 1) / cfg.WindowMS)
	if n < 1 {
		n = 1
	}
	windows := make([]Window, n)

	fill := func(from, to int) {
		for i := from; i < to; i++ {
			start := int64(i) * cfg.WindowMS
			end := start + cfg.WindowMS
			if end > b.Meta.DurationMS {
				end = b.Meta.DurationMS
			}
			windows[i] = buildWindow(i, start, end, b, cfg)
		}
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if workers == 1 {
		fill(0, n)
		return windows
	}

	// Workers own disjoint index ranges, so the result is identical to the
	// sequential pass.
	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for from := 0; from < n; from += chunk {
		to := from + chunk
		if to > n {
			to = n
		}
		wg.Add(1)
		go func(from, to int) {
			defer wg.Done()
			fill(from, to)
		}(from, to)
	}
	wg.Wait()
	return windows
}

func buildWindow(id int, startMS, endMS int64, b signal.Bundle, cfg Config) Window {
	// Density denominators floor at 0.1s so a sliver of a final window
	// cannot blow up the rate.
	durSec := float64(endMS-startMS) / 1000
	if durSec < 0.1 {
		durSec = 0.1
	}

	// Chat is ordered by timestamp, so the window's slice is found by
	// binary search.
	lo := sort.Search(len(b.Chat), func(i int) bool { return b.Chat[i].TimestampMS >= startMS })
	hi := sort.Search(len(b.Chat), func(i int) bool { return b.Chat[i].TimestampMS >= endMS })
	var emoteCount int
	texts := make([]string, 0, hi-lo)
	for _, c := range b.Chat[lo:hi] {
		emoteCount += len(c.Emotes)
		texts = append(texts, c.Text)
	}

	features := map[string]float64{
		FeatureChatDensity:    math.Min(1, float64(hi-lo)/(durSec*2)),
		FeatureSentiment:      chatSentiment(texts),
		FeatureSpeechPresence: speechPresence(b, startMS, endMS),
		FeatureEmoteDensity:   math.Min(1, float64(emoteCount)/durSec),
		FeatureEmotion:        emotionMean(b.Emotion, startMS, endMS),
	}

	// Weight keys are iterated in sorted order so float addition order, and
	// therefore the score, is identical on every run.
	keys := make([]string, 0, len(cfg.Weights))
	for k := range cfg.Weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var raw float64
	for _, k := range keys {
		raw += cfg.Weights[k] * features[k]
	}

	return Window{ID: id, StartMS: startMS, EndMS: endMS, Features: features, RawScore: raw}
}

// speechPresence prefers word-level coverage. Only a transcript with no
// words at all falls back to the activity mask; a sparse transcript is a
// real low-coverage signal, not missing data.
func speechPresence(b signal.Bundle, startMS, endMS int64) float64 {
	if len(b.Words) > 0 {
		return speechCoverage(b.Words, startMS, endMS)
	}
	return activityCoverage(b.Activity, startMS, endMS)
}

// speechCoverage returns the fraction of [startMS, endMS) covered by
// transcript words, clamped to [0, 1].
func speechCoverage(words []signal.Word, startMS, endMS int64) float64 {
	var covered int64
	for _, w := range words {
		if w.StartMS >= endMS {
			break
		}
		s, e := w.StartMS, w.EndMS
		if s < startMS {
			s = startMS
		}
		if e > endMS {
			e = endMS
		}
		if e > s {
			covered += e - s
		}
	}
	coverage := float64(covered) / float64(endMS-startMS)
	return math.Min(1, coverage)
}

// activityCoverage approximates speech coverage from the activity mask,
// counting one frame stride per active frame.
func activityCoverage(frames []signal.ActivityFrame, startMS, endMS int64) float64 {
	if len(frames) == 0 {
		return 0
	}
	stride := frameStride(frames)
	var covered int64
	for _, f := range frames {
		if f.FrameTimeMS >= endMS {
			break
		}
		if f.FrameTimeMS < startMS || !f.Active {
			continue
		}
		covered += stride
	}
	return math.Min(1, float64(covered)/float64(endMS-startMS))
}

// emotionMean returns the overlap-weighted mean score of emotion samples
// intersecting [startMS, endMS), zero when nothing intersects.
func emotionMean(samples []signal.EmotionSample, startMS, endMS int64) float64 {
	var overlap, weighted float64
	for _, e := range samples {
		s, en := e.StartMS, e.EndMS
		if s < startMS {
			s = startMS
		}
		if en > endMS {
			en = endMS
		}
		if en <= s {
			continue
		}
		ov := float64(en - s)
		weighted += ov * e.Score
		overlap += ov
	}
	if overlap == 0 {
		return 0
	}
	return weighted / overlap
}
