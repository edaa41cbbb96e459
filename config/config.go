// Package config provides configuration loading and access for the
// scatter toolkit. Settings are plain data passed explicitly into each
// operation; nothing here is consulted as ambient state by the core.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/scatter/brush"
	"github.com/pthm-cable/scatter/filter"
	"github.com/pthm-cable/scatter/sampler"
	"github.com/pthm-cable/scatter/xform"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all scatter configuration parameters.
type Config struct {
	Sampling  SamplingConfig  `yaml:"sampling"`
	Filters   filter.Config   `yaml:"filters"`
	Transform TransformConfig `yaml:"transform"`
	Brush     BrushConfig     `yaml:"brush"`
	Logging   LoggingConfig   `yaml:"logging"`
	Export    ExportConfig    `yaml:"export"`
}

// SamplingConfig selects and parameterizes the sampling algorithm.
type SamplingConfig struct {
	Algorithm   string  `yaml:"algorithm"` // random, jitter, poisson3d, poissonuv
	Count       int     `yaml:"count"`
	CellSize    float64 `yaml:"cell_size"`
	MinRadius   float64 `yaml:"min_radius"`
	MaxAttempts int     `yaml:"max_attempts"`
	Seed        int64   `yaml:"seed"`
}

// SamplerConfig resolves the YAML form into a validated sampler config.
func (s SamplingConfig) SamplerConfig() (sampler.Config, error) {
	alg, err := sampler.ParseAlgorithm(s.Algorithm)
	if err != nil {
		return sampler.Config{}, err
	}
	cfg := sampler.Config{
		Algorithm:   alg,
		Count:       s.Count,
		CellSize:    s.CellSize,
		MinRadius:   s.MinRadius,
		MaxAttempts: s.MaxAttempts,
		Seed:        s.Seed,
	}
	if err := cfg.Validate(); err != nil {
		return sampler.Config{}, err
	}
	return cfg, nil
}

// TransformConfig is the YAML form of the transform-assignment ranges.
type TransformConfig struct {
	AlignTo      [3]float64 `yaml:"align_to"`
	AlignWeight  float64    `yaml:"align_weight"`
	MinRotation  [3]float64 `yaml:"min_rotation"`
	MaxRotation  [3]float64 `yaml:"max_rotation"`
	UniformScale bool       `yaml:"uniform_scale"`
	MinScale     [3]float64 `yaml:"min_scale"`
	MaxScale     [3]float64 `yaml:"max_scale"`
	ScaleFactor  float64    `yaml:"scale_factor"`
	MinOffset    float64    `yaml:"min_offset"`
	MaxOffset    float64    `yaml:"max_offset"`
}

// XformConfig converts to the xform package's vector form.
func (t TransformConfig) XformConfig() xform.Config {
	return xform.Config{
		AlignTo:      vec(t.AlignTo),
		AlignWeight:  t.AlignWeight,
		MinRotation:  vec(t.MinRotation),
		MaxRotation:  vec(t.MaxRotation),
		UniformScale: t.UniformScale,
		MinScale:     vec(t.MinScale),
		MaxScale:     vec(t.MaxScale),
		ScaleFactor:  t.ScaleFactor,
		MinOffset:    t.MinOffset,
		MaxOffset:    t.MaxOffset,
	}
}

// BrushConfig is the YAML form of the brush settings.
type BrushConfig struct {
	Radius      float64 `yaml:"radius"`
	MinDistance float64 `yaml:"min_distance"`
	Strength    float64 `yaml:"strength"`
	NumSamples  int     `yaml:"num_samples"`
	Falloff     string  `yaml:"falloff"`
	ScaleAmount float64 `yaml:"scale_amount"`
	Drag        bool    `yaml:"drag"`
	AlignStroke bool    `yaml:"align_stroke"`
	ObjectIndex int32   `yaml:"object_index"`
	Seed        int64   `yaml:"seed"`
}

// Settings assembles brush settings using the shared transform ranges.
func (b BrushConfig) Settings(t TransformConfig) brush.Settings {
	return brush.Settings{
		Radius:      b.Radius,
		MinDistance: b.MinDistance,
		Strength:    b.Strength,
		NumSamples:  b.NumSamples,
		Falloff:     b.Falloff,
		ScaleAmount: b.ScaleAmount,
		Drag:        b.Drag,
		AlignStroke: b.AlignStroke,
		ObjectIndex: b.ObjectIndex,
		Seed:        b.Seed,
		Transform:   t.XformConfig(),
	}
}

// LoggingConfig holds log level and optional rotated file output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ExportConfig holds the CSV export destination. Empty disables export.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into the same struct: only fields present in the
		// file overwrite defaults.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate performs cross-field checks before any sampling or brushing
// runs. Invalid parameter combinations (a UV Poisson minRadius of 1 or
// more, for example) are rejected here, not mid-sample.
func (c *Config) Validate() error {
	if _, err := c.Sampling.SamplerConfig(); err != nil {
		return err
	}
	if c.Brush.Radius <= 0 {
		return fmt.Errorf("config: brush radius must be positive, got %v", c.Brush.Radius)
	}
	if c.Brush.MinDistance < 0 {
		return fmt.Errorf("config: brush min_distance must not be negative, got %v", c.Brush.MinDistance)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func vec(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}
