// Package geom provides the mesh model and the shared, sampling-ready
// mesh cache consumed by the samplers and the brush engine.
package geom

import (
	"hash/fnv"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is a triangle mesh snapshot handed over by the host.
// Normals and UVs are per vertex and indexed by the same face indices
// as Positions.
type Mesh struct {
	Positions []r3.Vec
	Faces     [][3]int32
	Normals   []r3.Vec
	UVs       [][2]float64
}

// MeshSource is the host-side collaborator that provides mesh geometry.
// Identity must be stable for the lifetime of the host object; Version
// must change whenever topology or deformation changes.
type MeshSource interface {
	Identity() string
	Version() uint64
	Mesh() *Mesh
}

// Signature detects topology/deformation changes without a full compare.
type Signature struct {
	Verts   int
	Faces   int
	Version uint64
	Hash    uint64
}

// SignatureOf computes the signature of a mesh at a given source version.
// The content hash covers vertex positions only; index or UV edits on a
// static point set are expected to bump the source version instead.
func SignatureOf(m *Mesh, version uint64) Signature {
	h := fnv.New64a()
	var buf [8]byte
	for _, p := range m.Positions {
		for _, c := range [3]float64{p.X, p.Y, p.Z} {
			bits := math.Float64bits(c)
			for i := range buf {
				buf[i] = byte(bits >> (8 * i))
			}
			h.Write(buf[:])
		}
	}
	return Signature{
		Verts:   len(m.Positions),
		Faces:   len(m.Faces),
		Version: version,
		Hash:    h.Sum64(),
	}
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max r3.Vec
}

// Height normalizes a world Y coordinate against the vertical extent,
// returning 0 at the bottom and 1 at the top of the box.
func (b AABB) Height(y float64) float64 {
	extent := b.Max.Y - b.Min.Y
	if extent <= 0 {
		return 0
	}
	return (y - b.Min.Y) / extent
}

// boundsOf computes the AABB of a point set.
func boundsOf(pts []r3.Vec) AABB {
	if len(pts) == 0 {
		return AABB{}
	}
	b := AABB{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Min.Z = math.Min(b.Min.Z, p.Z)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
		b.Max.Z = math.Max(b.Max.Z, p.Z)
	}
	return b
}
