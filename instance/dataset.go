package instance

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/scatter/geom"
)

// AssignFunc computes placement attributes for one new point from its
// surface normal. The dataset applies the offset along the normal and
// writes the rest verbatim.
type AssignFunc func(normal r3.Vec) (rotation, scale r3.Vec, offset float64)

// Dataset is an ordered, mutable collection of instance points. Written
// in bulk by sampling/filtering and point-by-point by the brush engine.
type Dataset struct {
	world    *ecs.World
	mapper   *ecs.Map4[Surface, Orientation, Scale, Ident]
	surfMap  *ecs.Map1[Surface]
	oriMap   *ecs.Map1[Orientation]
	scaleMap *ecs.Map1[Scale]
	identMap *ecs.Map1[Ident]

	order  []ecs.Entity
	byID   map[int64]ecs.Entity
	nextID int64

	spatial   *grid
	gridDirty bool
}

// New creates an empty dataset.
func New() *Dataset {
	world := ecs.NewWorld()
	return &Dataset{
		world:    world,
		mapper:   ecs.NewMap4[Surface, Orientation, Scale, Ident](world),
		surfMap:  ecs.NewMap1[Surface](world),
		oriMap:   ecs.NewMap1[Orientation](world),
		scaleMap: ecs.NewMap1[Scale](world),
		identMap: ecs.NewMap1[Ident](world),
		byID:     make(map[int64]ecs.Entity),
		nextID:   1,
	}
}

// Len returns the number of stored points, dead ones included.
func (d *Dataset) Len() int { return len(d.order) }

// AliveCount returns the number of alive points.
func (d *Dataset) AliveCount() int {
	n := 0
	for _, e := range d.order {
		if d.identMap.Get(e).Alive {
			n++
		}
	}
	return n
}

// Insert adds one point and returns its id. The offset displaces the
// position along the surface normal.
func (d *Dataset) Insert(hit geom.SurfaceHit, objectIndex int32, rotation, scale r3.Vec, offset float64) int64 {
	id := d.nextID
	d.nextID++

	surf := Surface{
		Position: r3.Add(hit.Position, r3.Scale(offset, hit.Normal)),
		Normal:   hit.Normal,
		U:        hit.U,
		V:        hit.V,
		Face:     hit.Face,
	}
	ori := Orientation{X: rotation.X, Y: rotation.Y, Z: rotation.Z}
	sc := Scale{X: scale.X, Y: scale.Y, Z: scale.Z}
	ident := Ident{ID: id, ObjectIndex: objectIndex, Alive: true}

	e := d.mapper.NewEntity(&surf, &ori, &sc, &ident)
	d.order = append(d.order, e)
	d.byID[id] = e
	d.gridDirty = true
	return id
}

// Append bulk-inserts a sampled batch, invoking assign per point.
// Returns the assigned ids in batch order.
func (d *Dataset) Append(hits []geom.SurfaceHit, objectIndex int32, assign AssignFunc) []int64 {
	ids := make([]int64, 0, len(hits))
	for _, hit := range hits {
		rot, scale, offset := assign(hit.Normal)
		ids = append(ids, d.Insert(hit, objectIndex, rot, scale, offset))
	}
	return ids
}

// Replace discards every stored point and bulk-inserts the batch. The id
// counter keeps running, so ids are never reused across a replace.
func (d *Dataset) Replace(hits []geom.SurfaceHit, objectIndex int32, assign AssignFunc) []int64 {
	d.Clear()
	return d.Append(hits, objectIndex, assign)
}

// Clear removes all points.
func (d *Dataset) Clear() {
	for _, e := range d.order {
		d.world.RemoveEntity(e)
	}
	d.order = d.order[:0]
	clear(d.byID)
	d.gridDirty = true
}

// Get returns a snapshot of the point with the given id.
func (d *Dataset) Get(id int64) (Point, bool) {
	e, ok := d.byID[id]
	if !ok {
		return Point{}, false
	}
	return d.snapshot(e), true
}

func (d *Dataset) snapshot(e ecs.Entity) Point {
	surf, ori, sc, ident := d.mapper.Get(e)
	return Point{
		ID:          ident.ID,
		Position:    surf.Position,
		Normal:      surf.Normal,
		U:           surf.U,
		V:           surf.V,
		Face:        surf.Face,
		Rotation:    r3.Vec{X: ori.X, Y: ori.Y, Z: ori.Z},
		Scale:       r3.Vec{X: sc.X, Y: sc.Y, Z: sc.Z},
		ObjectIndex: ident.ObjectIndex,
		Alive:       ident.Alive,
	}
}

// SetRotation overwrites a point's rotation.
func (d *Dataset) SetRotation(id int64, rotation r3.Vec) bool {
	e, ok := d.byID[id]
	if !ok {
		return false
	}
	ori := d.oriMap.Get(e)
	ori.X, ori.Y, ori.Z = rotation.X, rotation.Y, rotation.Z
	return true
}

// SetScale overwrites a point's scale.
func (d *Dataset) SetScale(id int64, scale r3.Vec) bool {
	e, ok := d.byID[id]
	if !ok {
		return false
	}
	sc := d.scaleMap.Get(e)
	sc.X, sc.Y, sc.Z = scale.X, scale.Y, scale.Z
	return true
}

// SetObjectIndex overwrites a point's source-object index.
func (d *Dataset) SetObjectIndex(id int64, objectIndex int32) bool {
	e, ok := d.byID[id]
	if !ok {
		return false
	}
	d.identMap.Get(e).ObjectIndex = objectIndex
	d.gridDirty = true // selection-filtered queries see the new index
	return true
}

// Move re-anchors a point to a new surface hit, keeping its other
// attributes.
func (d *Dataset) Move(id int64, hit geom.SurfaceHit) bool {
	e, ok := d.byID[id]
	if !ok {
		return false
	}
	surf := d.surfMap.Get(e)
	surf.Position = hit.Position
	surf.Normal = hit.Normal
	surf.U, surf.V = hit.U, hit.V
	surf.Face = hit.Face
	d.gridDirty = true
	return true
}

// Deactivate marks a point not-alive and returns its prior snapshot for
// undo logging. The entity is kept so Revive can restore it; Compact
// reclaims dead points outside strokes.
func (d *Dataset) Deactivate(id int64) (Point, bool) {
	e, ok := d.byID[id]
	if !ok {
		return Point{}, false
	}
	ident := d.identMap.Get(e)
	if !ident.Alive {
		return Point{}, false
	}
	snap := d.snapshot(e)
	ident.Alive = false
	d.gridDirty = true
	return snap, true
}

// Revive reinstates a deactivated point with its saved attributes.
func (d *Dataset) Revive(p Point) bool {
	e, ok := d.byID[p.ID]
	if !ok {
		return false
	}
	surf, ori, sc, ident := d.mapper.Get(e)
	surf.Position = p.Position
	surf.Normal = p.Normal
	surf.U, surf.V = p.U, p.V
	surf.Face = p.Face
	ori.X, ori.Y, ori.Z = p.Rotation.X, p.Rotation.Y, p.Rotation.Z
	sc.X, sc.Y, sc.Z = p.Scale.X, p.Scale.Y, p.Scale.Z
	ident.ObjectIndex = p.ObjectIndex
	ident.Alive = true
	d.gridDirty = true
	return true
}

// Compact physically removes dead points. Must not run while a stroke's
// undo log may still reference them.
func (d *Dataset) Compact() int {
	removed := 0
	kept := d.order[:0]
	for _, e := range d.order {
		ident := d.identMap.Get(e)
		if ident.Alive {
			kept = append(kept, e)
			continue
		}
		delete(d.byID, ident.ID)
		d.world.RemoveEntity(e)
		removed++
	}
	d.order = kept
	if removed > 0 {
		d.gridDirty = true
	}
	return removed
}

// ForEach visits every stored point in insertion order, dead ones
// included.
func (d *Dataset) ForEach(fn func(Point)) {
	for _, e := range d.order {
		fn(d.snapshot(e))
	}
}

// QueryRadiusInto appends all alive points within radius of center that
// pass the selection, reusing dst. Results carry squared distances for
// falloff weighting.
func (d *Dataset) QueryRadiusInto(dst []Neighbor, center r3.Vec, radius float64, sel Selection) []Neighbor {
	if radius <= 0 || len(d.order) == 0 {
		return dst
	}
	d.ensureGrid(radius)
	return d.spatial.queryInto(dst, center, radius, sel, d.surfMap, d.identMap)
}

// NeighborhoodScale averages the scale of alive points within radius of
// center. Returns the count averaged over; zero means no neighbors.
func (d *Dataset) NeighborhoodScale(center r3.Vec, radius float64, sel Selection) (r3.Vec, int) {
	neighbors := d.QueryRadiusInto(nil, center, radius, sel)
	if len(neighbors) == 0 {
		return r3.Vec{}, 0
	}
	var sum r3.Vec
	for _, n := range neighbors {
		sc := d.scaleMap.Get(n.Entity)
		sum = r3.Add(sum, r3.Vec{X: sc.X, Y: sc.Y, Z: sc.Z})
	}
	return r3.Scale(1/float64(len(neighbors)), sum), len(neighbors)
}

// ensureGrid rebuilds the spatial grid when point data changed or the
// query radius drifted far from the current cell size.
func (d *Dataset) ensureGrid(radius float64) {
	if d.spatial != nil && !d.gridDirty &&
		d.spatial.cellSize >= radius/4 && d.spatial.cellSize <= radius*4 {
		return
	}
	d.spatial = newGrid(radius)
	for _, e := range d.order {
		if !d.identMap.Get(e).Alive {
			continue
		}
		d.spatial.insert(e, d.surfMap.Get(e).Position)
	}
	d.gridDirty = false
}

// InstanceAttribute is the parallel-array shape the downstream
// particle-instancer consumes: one entry per alive point, index-aligned,
// in insertion order. The ordering is stable across repeated calls when
// the dataset has not changed.
type InstanceAttribute struct {
	Positions     []r3.Vec
	Rotations     []r3.Vec
	Scales        []r3.Vec
	ObjectIndices []int32
	IDs           []int64
}

// InstanceAttribute assembles the attribute arrays over alive points.
func (d *Dataset) InstanceAttribute() InstanceAttribute {
	n := d.AliveCount()
	attr := InstanceAttribute{
		Positions:     make([]r3.Vec, 0, n),
		Rotations:     make([]r3.Vec, 0, n),
		Scales:        make([]r3.Vec, 0, n),
		ObjectIndices: make([]int32, 0, n),
		IDs:           make([]int64, 0, n),
	}
	for _, e := range d.order {
		surf, ori, sc, ident := d.mapper.Get(e)
		if !ident.Alive {
			continue
		}
		attr.Positions = append(attr.Positions, surf.Position)
		attr.Rotations = append(attr.Rotations, r3.Vec{X: ori.X, Y: ori.Y, Z: ori.Z})
		attr.Scales = append(attr.Scales, r3.Vec{X: sc.X, Y: sc.Y, Z: sc.Z})
		attr.ObjectIndices = append(attr.ObjectIndices, ident.ObjectIndex)
		attr.IDs = append(attr.IDs, ident.ID)
	}
	return attr
}
