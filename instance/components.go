// Package instance stores the mutable per-point attribute dataset
// consumed by a downstream particle-instancing renderer. Points live as
// ECS entities; the dataset keeps its own insertion order so the
// instancer sees a stable attribute layout across repeated pulls.
package instance

import "gonum.org/v1/gonum/spatial/r3"

// Surface anchors a point to the mesh: world position plus the surface
// attributes it was sampled with.
type Surface struct {
	Position r3.Vec
	Normal   r3.Vec
	U, V     float64
	Face     int32
}

// Orientation is the point's rotation as Euler angles in degrees.
type Orientation struct {
	X, Y, Z float64
}

// Scale is the point's per-axis scale.
type Scale struct {
	X, Y, Z float64
}

// Ident carries the point's stable id, its source-object index, and its
// liveness. IDs are unique within a dataset and never reused.
type Ident struct {
	ID          int64
	ObjectIndex int32
	Alive       bool
}

// Point is a full snapshot of one instance point. The brush engine's
// undo log stores these, and Revive writes them back verbatim.
type Point struct {
	ID          int64
	Position    r3.Vec
	Normal      r3.Vec
	U, V        float64
	Face        int32
	Rotation    r3.Vec
	Scale       r3.Vec
	ObjectIndex int32
	Alive       bool
}

// Selection is the Exclusive Mode id set. A nil or empty selection
// matches every point.
type Selection map[int32]struct{}

// NewSelection builds a selection from explicit ids.
func NewSelection(ids ...int32) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Matches reports whether a source-object index passes the selection.
func (s Selection) Matches(objectIndex int32) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[objectIndex]
	return ok
}
