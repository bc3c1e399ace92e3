package engine

import "fmt"

// MergeRule picks how a merged segment's score is derived.
type MergeRule string

const (
	// MergeRuleMax keeps the higher of the two scores.
	MergeRuleMax MergeRule = "max"
	// MergeRuleWeightedAverage blends the two scores by segment duration.
	MergeRuleWeightedAverage MergeRule = "weighted_average"
)

// Config controls every stage of the analysis pipeline.
type Config struct {
	// WindowMS is the aggregation window size.
	WindowMS int64
	// Weights maps feature keys to their contribution to the raw score.
	Weights map[string]float64
	// TopK caps how many windows the selector accepts.
	TopK int
	// SelectBufferMS widens accepted spans during the selection overlap
	// test, spacing selections apart.
	SelectBufferMS int64
	// AllowOverlap disables the selection overlap test entirely.
	AllowOverlap bool
	// MergeGapMS is the largest gap between segments that still merges.
	MergeGapMS int64
	// MergeRule picks the merged segment's score.
	MergeRule MergeRule
	// MaxMergedDurationMS rejects merges whose combined span would exceed it.
	MaxMergedDurationMS int64
	// MinWordConfidence is the floor for a transcript word to steer
	// boundary refinement.
	MinWordConfidence float64
	// MinSegmentMS drops refined segments shorter than the floor; zero
	// disables the check.
	MinSegmentMS int64
	// Workers bounds parallel window aggregation; zero or one is
	// sequential.
	Workers int
}

// DefaultConfig returns the baseline analysis configuration.
func DefaultConfig() Config {
	return Config{
		WindowMS: 20000,
		Weights: map[string]float64{
			FeatureChatDensity:    0.3,
			FeatureSentiment:      0.4,
			FeatureSpeechPresence: 0.3,
		},
		TopK:                10,
		MergeGapMS:          1000,
		MergeRule:           MergeRuleMax,
		MaxMergedDurationMS: 180000,
		MinWordConfidence:   0.35,
	}
}

// Validate checks the configuration before any analysis runs.
func (c Config) Validate() error {
	if c.WindowMS <= 0 {
		return fmt.Errorf("%w: window_ms must be positive, got %d", ErrInvalidConfig, c.WindowMS)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidConfig, c.TopK)
	}
	if len(c.Weights) == 0 {
		return fmt.Errorf("%w: weights must not be empty", ErrInvalidConfig)
	}
	var sum float64
	for key, w := range c.Weights {
		if !knownFeature(key) {
			return fmt.Errorf("%w: unknown feature %q in weights", ErrInvalidConfig, key)
		}
		if w < 0 {
			return fmt.Errorf("%w: weight for %q must not be negative", ErrInvalidConfig, key)
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("%w: weights must sum to a positive value", ErrInvalidConfig)
	}
	if c.SelectBufferMS < 0 {
		return fmt.Errorf("%w: select_buffer_ms must not be negative", ErrInvalidConfig)
	}
	if c.MergeGapMS < 0 {
		return fmt.Errorf("%w: merge_gap_ms must not be negative", ErrInvalidConfig)
	}
	switch c.MergeRule {
	case MergeRuleMax, MergeRuleWeightedAverage:
	default:
		return fmt.Errorf("%w: unknown merge rule %q", ErrInvalidConfig, c.MergeRule)
	}
	if c.MaxMergedDurationMS <= 0 {
		return fmt.Errorf("%w: max_merged_duration_ms must be positive", ErrInvalidConfig)
	}
	if c.MinWordConfidence < 0 || c.MinWordConfidence > 1 {
		return fmt.Errorf("%w: min_word_confidence %g outside [0, 1]", ErrInvalidConfig, c.MinWordConfidence)
	}
	if c.MinSegmentMS < 0 {
		return fmt.Errorf("%w: min_segment_ms must not be negative", ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	return nil
}

func knownFeature(key string) bool {
	switch key {
	case FeatureChatDensity, FeatureSentiment, FeatureSpeechPresence, FeatureEmoteDensity, FeatureEmotion:
		return true
	}
	return false
}
