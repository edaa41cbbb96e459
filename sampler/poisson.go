package sampler

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/scatter/geom"
	"github.com/pthm-cable/scatter/logging"
)

// Poisson-disk sampling by dart throwing: propose random candidates,
// accept only those at least MinRadius from every accepted point. The
// acceptance grid uses cells of MinRadius edge length, so a distance
// check only visits the 3x3(x3) neighboring cells. Small MinRadius on a
// large surface sharply increases the candidate-rejection rate and thus
// runtime; that is a user-facing cost, not a correctness issue. The
// consecutive-rejection cap bounds termination on dense configurations.

// samplePoisson3D runs dart throwing in world space.
func samplePoisson3D(cache *geom.Cache, cfg Config, rng *rand.Rand) (Batch, error) {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	bounds := cache.Bounds()
	grid := make(map[cellKey][]r3.Vec)
	key := func(p r3.Vec) cellKey {
		return cellKey{
			X: int32((p.X - bounds.Min.X) / cfg.MinRadius),
			Y: int32((p.Y - bounds.Min.Y) / cfg.MinRadius),
			Z: int32((p.Z - bounds.Min.Z) / cfg.MinRadius),
		}
	}
	radiusSq := cfg.MinRadius * cfg.MinRadius

	batch := make(Batch, 0, cfg.Count)
	rejections := 0
	for len(batch) < cfg.Count {
		hit := cache.RandomSurfacePoint(rng)
		k := key(hit.Position)

		tooClose := false
	neighbors:
		for dx := int32(-1); dx <= 1; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				for dz := int32(-1); dz <= 1; dz++ {
					for _, q := range grid[cellKey{k.X + dx, k.Y + dy, k.Z + dz}] {
						if r3.Norm2(r3.Sub(hit.Position, q)) < radiusSq {
							tooClose = true
							break neighbors
						}
					}
				}
			}
		}
		if tooClose {
			rejections++
			if rejections >= maxAttempts {
				return batch, rejectionCapErr(cfg, len(batch))
			}
			continue
		}

		// First accepted wins; accepted points are never reordered.
		grid[k] = append(grid[k], hit.Position)
		batch = append(batch, hit)
		rejections = 0
	}
	return batch, nil
}

// uvKey addresses one cell of the UV acceptance grid.
type uvKey struct {
	U, V int32
}

// samplePoissonUV runs the same dart-throwing acceptance in the mesh's
// UV parameter space, constrained to the unit square, then maps accepted
// UV points back to the 3D surface.
func samplePoissonUV(cache *geom.Cache, cfg Config, rng *rand.Rand) (Batch, error) {
	if !cache.HasUVs() {
		return nil, &ConfigError{Field: "algorithm", Reason: "poissonuv requires a mesh with UV coordinates"}
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	grid := make(map[uvKey][][2]float64)
	radiusSq := cfg.MinRadius * cfg.MinRadius

	batch := make(Batch, 0, cfg.Count)
	rejections := 0
	for len(batch) < cfg.Count {
		u, v := rng.Float64(), rng.Float64()
		k := uvKey{U: int32(u / cfg.MinRadius), V: int32(v / cfg.MinRadius)}

		tooClose := false
	neighbors:
		for du := int32(-1); du <= 1; du++ {
			for dv := int32(-1); dv <= 1; dv++ {
				for _, q := range grid[uvKey{k.U + du, k.V + dv}] {
					dU, dV := u-q[0], v-q[1]
					if dU*dU+dV*dV < radiusSq {
						tooClose = true
						break neighbors
					}
				}
			}
		}

		// A candidate outside the mesh's UV layout counts as a
		// rejection too, so sparse layouts still terminate.
		hit, onSurface := cache.SurfaceAt(u, v)
		if tooClose || !onSurface {
			rejections++
			if rejections >= maxAttempts {
				return batch, rejectionCapErr(cfg, len(batch))
			}
			continue
		}

		grid[k] = append(grid[k], [2]float64{u, v})
		batch = append(batch, hit)
		rejections = 0
	}
	return batch, nil
}

func rejectionCapErr(cfg Config, accepted int) error {
	logging.Sugar.Warnw("poisson-disk rejection cap reached",
		"algorithm", cfg.Algorithm.String(),
		"accepted", accepted,
		"target", cfg.Count,
		"minRadius", cfg.MinRadius,
	)
	return fmt.Errorf("%s accepted %d of %d points: %w",
		cfg.Algorithm, accepted, cfg.Count, ErrRejectionCap)
}
