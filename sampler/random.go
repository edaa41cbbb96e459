package sampler

import (
	"math/rand"

	"github.com/pthm-cable/scatter/geom"
)

// sampleRandom draws Count area-weighted uniform surface points: a
// uniform value over [0, totalArea) locates the owning face through the
// cumulative-area table, then a square-root barycentric transform picks
// a uniform point inside that triangle. O(N log F).
func sampleRandom(cache *geom.Cache, cfg Config, rng *rand.Rand) Batch {
	batch := make(Batch, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		batch = append(batch, cache.RandomSurfacePoint(rng))
	}
	return batch
}
