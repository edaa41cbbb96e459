package instance

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/scatter/geom"
)

func hitAt(x, y, z float64) geom.SurfaceHit {
	return geom.SurfaceHit{
		Position: r3.Vec{X: x, Y: y, Z: z},
		Normal:   r3.Vec{Y: 1},
	}
}

func neutralAssign(normal r3.Vec) (r3.Vec, r3.Vec, float64) {
	return r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0
}

func TestInsertAssignsMonotoneIDs(t *testing.T) {
	d := New()
	var prev int64
	for i := 0; i < 10; i++ {
		id := d.Insert(hitAt(float64(i), 0, 0), 0, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0)
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
	if d.Len() != 10 || d.AliveCount() != 10 {
		t.Errorf("Len=%d AliveCount=%d, want 10/10", d.Len(), d.AliveCount())
	}
}

func TestInsertAppliesNormalOffset(t *testing.T) {
	d := New()
	id := d.Insert(hitAt(1, 0, 1), 0, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0.5)
	pt, ok := d.Get(id)
	if !ok {
		t.Fatal("point not found")
	}
	if pt.Position.Y != 0.5 {
		t.Errorf("offset along +Y normal produced Y=%f, want 0.5", pt.Position.Y)
	}
}

func TestReplaceKeepsIDCounter(t *testing.T) {
	d := New()
	first := d.Append([]geom.SurfaceHit{hitAt(0, 0, 0), hitAt(1, 0, 0)}, 0, neutralAssign)
	second := d.Replace([]geom.SurfaceHit{hitAt(2, 0, 0)}, 0, neutralAssign)

	if d.Len() != 1 {
		t.Fatalf("replace left %d points, want 1", d.Len())
	}
	for _, old := range first {
		if _, ok := d.Get(old); ok {
			t.Fatalf("id %d survived a replace", old)
		}
		if old == second[0] {
			t.Fatalf("id %d reused across replace", old)
		}
	}
}

func TestDeactivateReviveRoundTrip(t *testing.T) {
	d := New()
	id := d.Insert(hitAt(3, 1, 2), 7, r3.Vec{X: 10, Y: 20, Z: 30}, r3.Vec{X: 2, Y: 2, Z: 2}, 0)

	snap, ok := d.Deactivate(id)
	if !ok {
		t.Fatal("Deactivate failed")
	}
	if !snap.Alive {
		t.Error("snapshot must carry the pre-deactivation state")
	}
	if d.AliveCount() != 0 {
		t.Errorf("AliveCount=%d after deactivate, want 0", d.AliveCount())
	}

	// Double deactivate is a no-op.
	if _, ok := d.Deactivate(id); ok {
		t.Error("second Deactivate must report failure")
	}

	if !d.Revive(snap) {
		t.Fatal("Revive failed")
	}
	got, _ := d.Get(id)
	if got != snap {
		t.Errorf("revived point %+v differs from snapshot %+v", got, snap)
	}
}

func TestCompactRemovesOnlyDead(t *testing.T) {
	d := New()
	ids := d.Append([]geom.SurfaceHit{
		hitAt(0, 0, 0), hitAt(1, 0, 0), hitAt(2, 0, 0), hitAt(3, 0, 0),
	}, 0, neutralAssign)

	d.Deactivate(ids[1])
	d.Deactivate(ids[3])

	if removed := d.Compact(); removed != 2 {
		t.Fatalf("Compact removed %d, want 2", removed)
	}
	if d.Len() != 2 || d.AliveCount() != 2 {
		t.Errorf("Len=%d AliveCount=%d after compact, want 2/2", d.Len(), d.AliveCount())
	}
	if _, ok := d.Get(ids[1]); ok {
		t.Error("compacted id still resolvable")
	}
	if _, ok := d.Get(ids[0]); !ok {
		t.Error("surviving id no longer resolvable")
	}

	// A revive of a compacted point must fail rather than resurrect.
	if d.Revive(Point{ID: ids[1]}) {
		t.Error("Revive succeeded for a compacted point")
	}
}

func TestInstanceAttributeAlignment(t *testing.T) {
	d := New()
	ids := d.Append([]geom.SurfaceHit{
		hitAt(0, 0, 0), hitAt(1, 0, 0), hitAt(2, 0, 0),
	}, 0, neutralAssign)
	d.SetScale(ids[1], r3.Vec{X: 5, Y: 5, Z: 5})
	d.SetObjectIndex(ids[2], 3)
	d.Deactivate(ids[0])

	attr := d.InstanceAttribute()
	n := len(attr.Positions)
	if n != 2 {
		t.Fatalf("got %d entries, want 2 alive", n)
	}
	if len(attr.Rotations) != n || len(attr.Scales) != n ||
		len(attr.ObjectIndices) != n || len(attr.IDs) != n {
		t.Fatal("attribute arrays are not index-aligned")
	}
	// Insertion order is preserved after the dead point drops out.
	if attr.IDs[0] != ids[1] || attr.IDs[1] != ids[2] {
		t.Errorf("alive order = %v, want [%d %d]", attr.IDs, ids[1], ids[2])
	}
	if attr.Scales[0] != (r3.Vec{X: 5, Y: 5, Z: 5}) {
		t.Errorf("scale edit lost: %+v", attr.Scales[0])
	}
	if attr.ObjectIndices[1] != 3 {
		t.Errorf("object index edit lost: %d", attr.ObjectIndices[1])
	}

	// Repeated calls with no edits return the same ordering.
	again := d.InstanceAttribute()
	for i := range attr.IDs {
		if attr.IDs[i] != again.IDs[i] {
			t.Fatal("attribute order unstable across calls")
		}
	}
}

func TestQueryRadius(t *testing.T) {
	d := New()
	var inside, outside []int64
	for i := 0; i < 5; i++ {
		inside = append(inside, d.Insert(hitAt(float64(i)*0.1, 0, 0), 0, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0))
	}
	for i := 0; i < 5; i++ {
		outside = append(outside, d.Insert(hitAt(10+float64(i), 0, 0), 0, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0))
	}

	got := d.QueryRadiusInto(nil, r3.Vec{}, 1.0, nil)
	if len(got) != len(inside) {
		t.Fatalf("query returned %d points, want %d", len(got), len(inside))
	}
	want := make(map[int64]struct{})
	for _, id := range inside {
		want[id] = struct{}{}
	}
	for _, n := range got {
		if _, ok := want[n.ID]; !ok {
			t.Fatalf("unexpected id %d in radius query", n.ID)
		}
		if n.DistSq > 1.0 {
			t.Fatalf("id %d at squared distance %f beyond radius", n.ID, n.DistSq)
		}
	}

	// Deactivated points never match.
	d.Deactivate(inside[0])
	got = d.QueryRadiusInto(got[:0], r3.Vec{}, 1.0, nil)
	if len(got) != len(inside)-1 {
		t.Errorf("query returned %d points after deactivate, want %d", len(got), len(inside)-1)
	}
	_ = outside
}

func TestQueryRadiusSelection(t *testing.T) {
	d := New()
	a := d.Insert(hitAt(0.1, 0, 0), 0, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0)
	b := d.Insert(hitAt(0.2, 0, 0), 1, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0)

	sel := NewSelection(1)
	got := d.QueryRadiusInto(nil, r3.Vec{}, 1.0, sel)
	if len(got) != 1 || got[0].ID != b {
		t.Fatalf("selection query = %v, want only id %d", got, b)
	}

	// Empty selection matches everything.
	got = d.QueryRadiusInto(nil, r3.Vec{}, 1.0, Selection{})
	if len(got) != 2 {
		t.Fatalf("empty selection matched %d points, want 2", len(got))
	}
	_ = a
}

func TestQueryRadiusAdaptsCellSize(t *testing.T) {
	d := New()
	for i := 0; i < 20; i++ {
		d.Insert(hitAt(float64(i), 0, 0), 0, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0)
	}
	// Query at widely different radii; both must be exact despite the
	// grid being rebuilt for a different cell size.
	small := d.QueryRadiusInto(nil, r3.Vec{X: 5}, 1.5, nil)
	if len(small) != 3 {
		t.Errorf("small radius matched %d points, want 3", len(small))
	}
	large := d.QueryRadiusInto(nil, r3.Vec{X: 5}, 100, nil)
	if len(large) != 20 {
		t.Errorf("large radius matched %d points, want 20", len(large))
	}
}

func TestNeighborhoodScale(t *testing.T) {
	d := New()
	a := d.Insert(hitAt(0, 0, 0), 0, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0)
	d.SetScale(a, r3.Vec{X: 2, Y: 2, Z: 2})
	b := d.Insert(hitAt(0.1, 0, 0), 0, r3.Vec{}, r3.Vec{X: 4, Y: 4, Z: 4}, 0)
	_ = b

	avg, n := d.NeighborhoodScale(r3.Vec{}, 1, nil)
	if n != 2 {
		t.Fatalf("averaged over %d points, want 2", n)
	}
	if math.Abs(avg.X-3) > 1e-12 || math.Abs(avg.Y-3) > 1e-12 || math.Abs(avg.Z-3) > 1e-12 {
		t.Errorf("average scale %+v, want (3,3,3)", avg)
	}

	_, n = d.NeighborhoodScale(r3.Vec{X: 50}, 1, nil)
	if n != 0 {
		t.Errorf("empty neighborhood averaged over %d points", n)
	}
}

func TestMoveUpdatesQueryResults(t *testing.T) {
	d := New()
	id := d.Insert(hitAt(0, 0, 0), 0, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0)

	if got := d.QueryRadiusInto(nil, r3.Vec{}, 0.5, nil); len(got) != 1 {
		t.Fatalf("point not found at origin: %d matches", len(got))
	}
	if !d.Move(id, hitAt(5, 0, 0)) {
		t.Fatal("Move failed")
	}
	if got := d.QueryRadiusInto(nil, r3.Vec{}, 0.5, nil); len(got) != 0 {
		t.Fatalf("stale grid: moved point still matches at origin")
	}
	if got := d.QueryRadiusInto(nil, r3.Vec{X: 5}, 0.5, nil); len(got) != 1 {
		t.Fatalf("moved point not found at destination: %d matches", len(got))
	}
}

func TestSelectionMatches(t *testing.T) {
	if !(Selection)(nil).Matches(4) {
		t.Error("nil selection must match everything")
	}
	sel := NewSelection(1, 3)
	if sel.Matches(2) {
		t.Error("selection matched an excluded index")
	}
	if !sel.Matches(3) {
		t.Error("selection rejected an included index")
	}
}
