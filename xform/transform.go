// Package xform computes rotation, scale, and offset values for instance
// points from configured ranges. It never mutates a dataset; the sampler
// and the brush engine write the returned values themselves.
package xform

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// Config holds the per-attribute ranges applied on point placement.
// Rotations are Euler angles in degrees.
type Config struct {
	AlignTo     r3.Vec  `yaml:"-"`            // target alignment vector, world up when zero
	AlignWeight float64 `yaml:"align_weight"` // 0 = surface normal, 1 = AlignTo

	MinRotation r3.Vec `yaml:"-"`
	MaxRotation r3.Vec `yaml:"-"`

	UniformScale bool    `yaml:"uniform_scale"`
	MinScale     r3.Vec  `yaml:"-"`
	MaxScale     r3.Vec  `yaml:"-"`
	ScaleFactor  float64 `yaml:"scale_factor"`

	MinOffset float64 `yaml:"min_offset"`
	MaxOffset float64 `yaml:"max_offset"`
}

// Default returns a neutral transform configuration.
func Default() Config {
	return Config{
		AlignTo:     r3.Vec{Y: 1},
		MinScale:    r3.Vec{X: 1, Y: 1, Z: 1},
		MaxScale:    r3.Vec{X: 1, Y: 1, Z: 1},
		ScaleFactor: 1,
	}
}

// Result carries the values to be written by the caller.
type Result struct {
	Rotation r3.Vec  // Euler degrees
	Scale    r3.Vec
	Offset   float64 // displacement along the surface normal
}

// Assign computes the transform for a point with the given surface
// normal.
func Assign(normal r3.Vec, rng *rand.Rand, cfg Config) Result {
	dir := BlendDirection(normal, cfg.AlignTo, cfg.AlignWeight)
	rot := EulerAligning(dir)
	rot.X += uniformIn(rng, cfg.MinRotation.X, cfg.MaxRotation.X)
	rot.Y += uniformIn(rng, cfg.MinRotation.Y, cfg.MaxRotation.Y)
	rot.Z += uniformIn(rng, cfg.MinRotation.Z, cfg.MaxRotation.Z)

	factor := cfg.ScaleFactor
	if factor == 0 {
		factor = 1
	}
	var scale r3.Vec
	if cfg.UniformScale {
		s := uniformIn(rng, cfg.MinScale.X, cfg.MaxScale.X)
		scale = r3.Vec{X: s, Y: s, Z: s}
	} else {
		scale = r3.Vec{
			X: uniformIn(rng, cfg.MinScale.X, cfg.MaxScale.X),
			Y: uniformIn(rng, cfg.MinScale.Y, cfg.MaxScale.Y),
			Z: uniformIn(rng, cfg.MinScale.Z, cfg.MaxScale.Z),
		}
	}
	scale = r3.Scale(factor, scale)

	return Result{
		Rotation: rot,
		Scale:    scale,
		Offset:   uniformIn(rng, cfg.MinOffset, cfg.MaxOffset),
	}
}

// BlendDirection interpolates between the surface normal and the
// configured alignment vector by weight and normalizes the result.
func BlendDirection(normal, alignTo r3.Vec, weight float64) r3.Vec {
	if alignTo == (r3.Vec{}) {
		alignTo = r3.Vec{Y: 1}
	}
	w := clamp01(weight)
	d := r3.Add(r3.Scale(1-w, normal), r3.Scale(w, alignTo))
	if l := r3.Norm(d); l > 1e-12 {
		return r3.Scale(1/l, d)
	}
	return normal
}

// EulerAligning returns Euler angles in degrees that tilt the +Y axis
// onto the given unit direction: a rotation about X toward Z, then a
// rotation about Z toward X.
func EulerAligning(d r3.Vec) r3.Vec {
	const rad2deg = 180 / math.Pi
	return r3.Vec{
		X: math.Atan2(d.Z, d.Y) * rad2deg,
		Y: 0,
		Z: -math.Atan2(d.X, d.Y) * rad2deg,
	}
}

// Smooth pulls a scale toward the local neighborhood average by amount.
func Smooth(current, neighborhoodAvg r3.Vec, amount float64) r3.Vec {
	a := clamp01(amount)
	return r3.Add(r3.Scale(1-a, current), r3.Scale(a, neighborhoodAvg))
}

// Randomize increases per-point scale variance by amount: each axis is
// multiplied by a factor drawn in [1-amount, 1+amount].
func Randomize(current r3.Vec, rng *rand.Rand, amount float64) r3.Vec {
	return r3.Vec{
		X: current.X * (1 + uniformIn(rng, -amount, amount)),
		Y: current.Y * (1 + uniformIn(rng, -amount, amount)),
		Z: current.Z * (1 + uniformIn(rng, -amount, amount)),
	}
}

// LerpAngles interpolates Euler angle triples componentwise.
func LerpAngles(from, to r3.Vec, t float64) r3.Vec {
	a := clamp01(t)
	return r3.Add(r3.Scale(1-a, from), r3.Scale(a, to))
}

func uniformIn(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
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
