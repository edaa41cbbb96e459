// Package sampler produces candidate point sets on a mesh surface using
// one of four algorithms selected by configuration.
package sampler

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/scatter/geom"
)

// Algorithm selects the sampling strategy.
type Algorithm int32

const (
	Random Algorithm = iota
	JitterGrid
	PoissonDisk3D
	PoissonDiskUV
)

func (a Algorithm) String() string {
	switch a {
	case Random:
		return "random"
	case JitterGrid:
		return "jitter"
	case PoissonDisk3D:
		return "poisson3d"
	case PoissonDiskUV:
		return "poissonuv"
	default:
		return fmt.Sprintf("algorithm(%d)", int32(a))
	}
}

// ParseAlgorithm maps a config string to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "random":
		return Random, nil
	case "jitter":
		return JitterGrid, nil
	case "poisson3d":
		return PoissonDisk3D, nil
	case "poissonuv":
		return PoissonDiskUV, nil
	default:
		return 0, &ConfigError{Field: "algorithm", Reason: fmt.Sprintf("unknown algorithm %q", s)}
	}
}

// Batch is an ordered sequence of raw surface samples.
type Batch []geom.SurfaceHit

// Config holds the parameters for one sampling run. Fields not used by
// the selected algorithm are ignored.
type Config struct {
	Algorithm Algorithm

	// Count is the target point count. For JitterGrid it is the size of
	// the oversampled cloud before grid thinning.
	Count int

	// CellSize is the jitter-grid cell edge length in world units.
	CellSize float64

	// MinRadius is the Poisson-disk minimum point distance: world units
	// for PoissonDisk3D, UV units for PoissonDiskUV.
	MinRadius float64

	// MaxAttempts caps consecutive candidate rejections before a
	// Poisson-disk run gives up. Zero means DefaultMaxAttempts.
	MaxAttempts int

	Seed int64
}

// DefaultMaxAttempts is the consecutive-rejection cap used when a config
// does not set one.
const DefaultMaxAttempts = 1000

// ConfigError reports an invalid parameter combination. It is raised
// before any sampling work begins.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("sampler config: %s: %s", e.Field, e.Reason)
}

// ErrRejectionCap signals that a Poisson-disk run hit its rejection cap
// before reaching the target count. The partial batch is still returned
// and usable; callers detect the condition with errors.Is.
var ErrRejectionCap = errors.New("rejection cap reached")

// Validate checks the parameter combination for the selected algorithm.
func (c *Config) Validate() error {
	if c.Count <= 0 {
		return &ConfigError{Field: "count", Reason: "must be positive"}
	}
	switch c.Algorithm {
	case Random:
	case JitterGrid:
		if c.CellSize <= 0 {
			return &ConfigError{Field: "cellSize", Reason: "must be positive"}
		}
	case PoissonDisk3D:
		if c.MinRadius <= 0 {
			return &ConfigError{Field: "minRadius", Reason: "must be positive"}
		}
	case PoissonDiskUV:
		if c.MinRadius <= 0 {
			return &ConfigError{Field: "minRadius", Reason: "must be positive"}
		}
		if c.MinRadius >= 1 {
			// No packing with two points can exist in the unit square.
			return &ConfigError{Field: "minRadius", Reason: "must be below 1 in UV space"}
		}
	default:
		return &ConfigError{Field: "algorithm", Reason: fmt.Sprintf("unknown algorithm %d", c.Algorithm)}
	}
	return nil
}

// Sample runs the configured algorithm against the cache and returns the
// resulting batch. The cache is refreshed first when stale and is never
// mutated. A Poisson-disk run that trips its rejection cap returns the
// points accepted so far together with an ErrRejectionCap-wrapped error.
func Sample(cache *geom.Cache, cfg Config) (Batch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cache.InvalidateIfStale(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	switch cfg.Algorithm {
	case Random:
		return sampleRandom(cache, cfg, rng), nil
	case JitterGrid:
		return sampleJitterGrid(cache, cfg, rng), nil
	case PoissonDisk3D:
		return samplePoisson3D(cache, cfg, rng)
	case PoissonDiskUV:
		return samplePoissonUV(cache, cfg, rng)
	default:
		return nil, &ConfigError{Field: "algorithm", Reason: "unreachable"}
	}
}
