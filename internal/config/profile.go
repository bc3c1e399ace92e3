package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/anderson/internal/engine"
)

// Profile is a named YAML overlay on the default analysis configuration.
// Only fields present in the file override the defaults, so a profile can
// retune a single knob.
type Profile struct {
	Name                string             `yaml:"name"`
	WindowMS            *int64             `yaml:"window_ms"`
	Weights             map[string]float64 `yaml:"weights"`
	TopK                *int               `yaml:"top_k"`
	SelectBufferMS      *int64             `yaml:"select_buffer_ms"`
	AllowOverlap        *bool              `yaml:"allow_overlap"`
	MergeGapMS          *int64             `yaml:"merge_gap_ms"`
	MergeRule           *string            `yaml:"merge_rule"`
	MaxMergedDurationMS *int64             `yaml:"max_merged_duration_ms"`
	MinWordConfidence   *float64           `yaml:"min_word_confidence"`
	MinSegmentMS        *int64             `yaml:"min_segment_ms"`
	Workers             *int               `yaml:"workers"`
}

// LoadProfile reads a YAML analysis profile and applies it over the engine
// defaults, validating the combined result. An empty path returns the
// defaults under the name "default".
func LoadProfile(path string) (engine.Config, string, error) {
	cfg := engine.DefaultConfig()
	if path == "" {
		return cfg, "default", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, "", fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return cfg, "", fmt.Errorf("parse profile: %w", err)
	}

	name := p.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if p.WindowMS != nil {
		cfg.WindowMS = *p.WindowMS
	}
	if p.Weights != nil {
		cfg.Weights = p.Weights
	}
	if p.TopK != nil {
		cfg.TopK = *p.TopK
	}
	if p.SelectBufferMS != nil {
		cfg.SelectBufferMS = *p.SelectBufferMS
	}
	if p.AllowOverlap != nil {
		cfg.AllowOverlap = *p.AllowOverlap
	}
	if p.MergeGapMS != nil {
		cfg.MergeGapMS = *p.MergeGapMS
	}
	if p.MergeRule != nil {
		cfg.MergeRule = engine.MergeRule(*p.MergeRule)
	}
	if p.MaxMergedDurationMS != nil {
		cfg.MaxMergedDurationMS = *p.MaxMergedDurationMS
	}
	if p.MinWordConfidence != nil {
		cfg.MinWordConfidence = *p.MinWordConfidence
	}
	if p.MinSegmentMS != nil {
		cfg.MinSegmentMS = *p.MinSegmentMS
	}
	if p.Workers != nil {
		cfg.Workers = *p.Workers
	}

	if err := cfg.Validate(); err != nil {
		return cfg, "", fmt.Errorf("profile %s: %w", name, err)
	}
	return cfg, name, nil
}
