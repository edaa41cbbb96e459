package geom

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// faceRef is a face centroid stored in the projection kd-tree.
type faceRef struct {
	c    r3.Vec
	face int32
}

func (f faceRef) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(faceRef)
	switch d {
	case 0:
		return f.c.X - q.c.X
	case 1:
		return f.c.Y - q.c.Y
	default:
		return f.c.Z - q.c.Z
	}
}

func (f faceRef) Dims() int { return 3 }

func (f faceRef) Distance(c kdtree.Comparable) float64 {
	q := c.(faceRef)
	return r3.Norm2(r3.Sub(f.c, q.c))
}

// faceRefs implements kdtree.Interface for tree construction.
type faceRefs []faceRef

func (p faceRefs) Index(i int) kdtree.Comparable        { return p[i] }
func (p faceRefs) Len() int                             { return len(p) }
func (p faceRefs) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p faceRefs) Pivot(d kdtree.Dim) int {
	return facePlane{Dim: d, faceRefs: p}.Pivot()
}

// facePlane sorts faceRefs along a single dimension for pivot selection.
type facePlane struct {
	kdtree.Dim
	faceRefs
}

func (p facePlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.faceRefs[i].c.X < p.faceRefs[j].c.X
	case 1:
		return p.faceRefs[i].c.Y < p.faceRefs[j].c.Y
	default:
		return p.faceRefs[i].c.Z < p.faceRefs[j].c.Z
	}
}

func (p facePlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfRandoms(p, 100))
}

func (p facePlane) Slice(start, end int) kdtree.SortSlicer {
	p.faceRefs = p.faceRefs[start:end]
	return p
}

func (p facePlane) Swap(i, j int) {
	p.faceRefs[i], p.faceRefs[j] = p.faceRefs[j], p.faceRefs[i]
}

// newFaceTree builds a kd-tree over the centroids of all mesh faces.
func newFaceTree(m *Mesh) *kdtree.Tree {
	refs := make(faceRefs, len(m.Faces))
	for i, f := range m.Faces {
		a := m.Positions[f[0]]
		b := m.Positions[f[1]]
		c := m.Positions[f[2]]
		refs[i] = faceRef{
			c:    r3.Scale(1.0/3.0, r3.Add(a, r3.Add(b, c))),
			face: int32(i),
		}
	}
	return kdtree.New(refs, true)
}

// nearestFaces returns the faces whose centroids are the n nearest to p.
func nearestFaces(tree *kdtree.Tree, p r3.Vec, n int) []int32 {
	keep := kdtree.NewNKeeper(n)
	tree.NearestSet(keep, faceRef{c: p})

	faces := make([]int32, 0, n)
	for _, cd := range keep.Heap {
		if cd.Comparable == nil {
			continue
		}
		faces = append(faces, cd.Comparable.(faceRef).face)
	}
	return faces
}
