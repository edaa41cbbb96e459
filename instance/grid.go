package instance

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// Neighbor holds a point found by a radius query with its precomputed
// squared distance from the query center.
type Neighbor struct {
	Entity ecs.Entity
	ID     int64
	DistSq float64
}

// cellKey addresses one cell of the sparse spatial grid.
type cellKey struct {
	X, Y, Z int32
}

// grid provides near-O(1) radius lookups over alive points using a
// sparse cell map. The mesh extent is unbounded from the dataset's
// perspective, so cells live in a map instead of a dense array.
type grid struct {
	cellSize float64
	cells    map[cellKey][]ecs.Entity
}

func newGrid(cellSize float64) *grid {
	return &grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]ecs.Entity),
	}
}

func (g *grid) key(p r3.Vec) cellKey {
	return cellKey{
		X: int32(floorDiv(p.X, g.cellSize)),
		Y: int32(floorDiv(p.Y, g.cellSize)),
		Z: int32(floorDiv(p.Z, g.cellSize)),
	}
}

func (g *grid) insert(e ecs.Entity, p r3.Vec) {
	k := g.key(p)
	g.cells[k] = append(g.cells[k], e)
}

// queryInto appends all entities within radius of center to dst and
// returns the updated slice. Reuse dst across calls to avoid
// allocations. sel restricts results to matching source-object indices.
func (g *grid) queryInto(dst []Neighbor, center r3.Vec, radius float64, sel Selection, surfMap *ecs.Map1[Surface], identMap *ecs.Map1[Ident]) []Neighbor {
	cellRadius := int32(radius/g.cellSize) + 1
	ck := g.key(center)
	radiusSq := radius * radius

	for dx := -cellRadius; dx <= cellRadius; dx++ {
		for dy := -cellRadius; dy <= cellRadius; dy++ {
			for dz := -cellRadius; dz <= cellRadius; dz++ {
				for _, e := range g.cells[cellKey{ck.X + dx, ck.Y + dy, ck.Z + dz}] {
					ident := identMap.Get(e)
					if ident == nil || !ident.Alive || !sel.Matches(ident.ObjectIndex) {
						continue
					}
					surf := surfMap.Get(e)
					distSq := r3.Norm2(r3.Sub(surf.Position, center))
					if distSq <= radiusSq {
						dst = append(dst, Neighbor{Entity: e, ID: ident.ID, DistSq: distSq})
					}
				}
			}
		}
	}
	return dst
}

func floorDiv(v, cell float64) int64 {
	q := v / cell
	i := int64(q)
	if q < 0 && float64(i) != q {
		i--
	}
	return i
}
