// Package filter removes sampled points by texture, altitude, or slope
// criteria with soft (fuzzy) thresholds.
package filter

import (
	"hash/fnv"
	"math"

	"github.com/pthm-cable/scatter/geom"
	"github.com/pthm-cable/scatter/logging"
	"github.com/pthm-cable/scatter/sampler"
)

// TextureEvaluator is the host-provided shading collaborator used by the
// texture filter. Evaluating a UV against a shading network may be
// expensive per point; on dense high-resolution meshes this is the
// dominant filtering cost.
type TextureEvaluator interface {
	EvalUV(u, v float64) float64
}

// TextureConfig keeps points by a channel value sampled at their UV.
// With Threshold zero, the channel value itself is the keep probability.
// With a positive Threshold, values below it are dropped, softened by
// Fuzziness.
type TextureConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	Fuzziness float64 `yaml:"fuzziness"`
}

// BandConfig keeps points whose measured value lies within [Min, Max].
// Fuzziness is the half-width of a linear accept-probability ramp around
// each bound.
type BandConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Min       float64 `yaml:"min"`
	Max       float64 `yaml:"max"`
	Fuzziness float64 `yaml:"fuzziness"`
}

// Config enables and parameterizes the individual filters. Filters
// compose by intersection, so the surviving set does not depend on
// evaluation order.
type Config struct {
	Texture  TextureConfig `yaml:"texture"`
	Altitude BandConfig    `yaml:"altitude"`
	Slope    BandConfig    `yaml:"slope"`
	Seed     int64         `yaml:"seed"`
}

// Env carries the collaborators a filtering run needs.
type Env struct {
	Bounds  geom.AABB
	Texture TextureEvaluator
}

// filter salts keep per-filter accept draws independent of each other.
const (
	saltTexture  = 0x9e3779b97f4a7c15
	saltAltitude = 0xc2b2ae3d27d4eb4f
	saltSlope    = 0x165667b19e3779f9
)

// Apply runs every enabled filter over the batch and returns the points
// that survive all of them. Each filter decides per point with a
// deterministic draw derived from the point position and the config
// seed, so identical input and seed always reproduce the same kept set.
func Apply(batch sampler.Batch, cfg Config, env Env) sampler.Batch {
	texture := cfg.Texture.Enabled
	if texture && env.Texture == nil {
		logging.Sugar.Warn("texture filter enabled but no evaluator provided; skipping")
		texture = false
	}

	kept := make(sampler.Batch, 0, len(batch))
	for _, pt := range batch {
		if texture && !keepTexture(pt, cfg, env) {
			continue
		}
		if cfg.Altitude.Enabled && !keepAltitude(pt, cfg, env) {
			continue
		}
		if cfg.Slope.Enabled && !keepSlope(pt, cfg) {
			continue
		}
		kept = append(kept, pt)
	}
	return kept
}

func keepTexture(pt geom.SurfaceHit, cfg Config, env Env) bool {
	value := env.Texture.EvalUV(pt.U, pt.V)
	var p float64
	if cfg.Texture.Threshold <= 0 {
		p = clamp01(value)
	} else {
		p = rampUp(value, cfg.Texture.Threshold, cfg.Texture.Fuzziness)
	}
	return draw(pt, cfg.Seed, saltTexture) < p
}

func keepAltitude(pt geom.SurfaceHit, cfg Config, env Env) bool {
	h := env.Bounds.Height(pt.Position.Y)
	p := bandProbability(h, cfg.Altitude)
	return draw(pt, cfg.Seed, saltAltitude) < p
}

func keepSlope(pt geom.SurfaceHit, cfg Config) bool {
	up := math.Max(-1, math.Min(1, pt.Normal.Y))
	angle := math.Acos(up) * 180 / math.Pi
	p := bandProbability(angle, cfg.Slope)
	return draw(pt, cfg.Seed, saltSlope) < p
}

// bandProbability is the accept probability of a value against a fuzzy
// band: 0 outside [Min-Fuzziness, Max+Fuzziness], 1 inside
// [Min+Fuzziness, Max-Fuzziness], ramping linearly between. With zero
// fuzziness it degenerates to a hard cutoff. The ramp is continuous at
// both band edges.
func bandProbability(v float64, b BandConfig) float64 {
	low := rampUp(v, b.Min, b.Fuzziness)
	high := 1 - rampUp(v, b.Max, b.Fuzziness)
	return math.Min(low, high)
}

// rampUp is 0 below t-fuzz, 1 above t+fuzz, and linear between. With
// zero fuzz it is a step at t.
func rampUp(v, t, fuzz float64) float64 {
	if fuzz <= 0 {
		if v >= t {
			return 1
		}
		return 0
	}
	return clamp01((v - (t - fuzz)) / (2 * fuzz))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// draw produces a deterministic uniform value in [0, 1) for a point,
// seed, and filter salt. No shared RNG stream is consumed, so filter
// order cannot perturb outcomes.
func draw(pt geom.SurfaceHit, seed int64, salt uint64) float64 {
	h := fnv.New64a()
	var buf [8]byte
	write := func(bits uint64) {
		for i := range buf {
			buf[i] = byte(bits >> (8 * i))
		}
		h.Write(buf[:])
	}
	write(math.Float64bits(pt.Position.X))
	write(math.Float64bits(pt.Position.Y))
	write(math.Float64bits(pt.Position.Z))
	write(uint64(seed))
	write(salt)
	return float64(h.Sum64()>>11) / (1 << 53)
}
