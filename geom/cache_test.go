package geom

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// testSource is an in-memory MeshSource for tests.
type testSource struct {
	id      string
	version uint64
	mesh    *Mesh
}

func (s *testSource) Identity() string { return s.id }
func (s *testSource) Version() uint64  { return s.version }
func (s *testSource) Mesh() *Mesh      { return s.mesh }

var sourceSeq int

func newTestSource(m *Mesh) *testSource {
	sourceSeq++
	return &testSource{id: fmt.Sprintf("test-mesh-%d", sourceSeq), mesh: m}
}

// quadMesh returns a unit quad in the XZ plane, split into two
// triangles, with full UV coverage and +Y normals.
func quadMesh() *Mesh {
	return &Mesh{
		Positions: []r3.Vec{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 1},
			{X: 0, Y: 0, Z: 1},
		},
		Faces: [][3]int32{{0, 1, 2}, {0, 2, 3}},
		Normals: []r3.Vec{
			{Y: 1}, {Y: 1}, {Y: 1}, {Y: 1},
		},
		UVs: [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
	}
}

func TestCacheBuild(t *testing.T) {
	src := newTestSource(quadMesh())
	h, err := Acquire(src)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer h.Release()
	c := h.Cache()

	if got := c.FaceCount(); got != 2 {
		t.Errorf("expected 2 faces, got %d", got)
	}
	if math.Abs(c.TotalArea()-1.0) > 1e-12 {
		t.Errorf("expected total area 1.0, got %f", c.TotalArea())
	}

	// Cumulative table must be monotone with last entry == total area.
	prev := 0.0
	for i := 0; i < c.FaceCount(); i++ {
		if c.cumArea[i] < prev {
			t.Errorf("cumulative area not monotone at %d: %f < %f", i, c.cumArea[i], prev)
		}
		prev = c.cumArea[i]
	}
	if math.Abs(prev-c.TotalArea()) > 1e-12 {
		t.Errorf("last cumulative entry %f != total area %f", prev, c.TotalArea())
	}
}

func TestFaceForAreaCoversRange(t *testing.T) {
	src := newTestSource(quadMesh())
	h, err := Acquire(src)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer h.Release()
	c := h.Cache()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		face := c.FaceForArea(rng.Float64() * c.TotalArea())
		if face < 0 || int(face) >= c.FaceCount() {
			t.Fatalf("FaceForArea returned out-of-range face %d", face)
		}
	}
	if f := c.FaceForArea(0); f != 0 {
		t.Errorf("FaceForArea(0) = %d, want 0", f)
	}
}

func TestGeometryErrors(t *testing.T) {
	tests := []struct {
		name string
		mesh *Mesh
	}{
		{name: "no faces", mesh: &Mesh{Positions: []r3.Vec{{X: 1}}}},
		{
			name: "zero area",
			mesh: &Mesh{
				Positions: []r3.Vec{{}, {}, {}},
				Faces:     [][3]int32{{0, 1, 2}},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Acquire(newTestSource(tc.mesh))
			var gerr *GeometryError
			if !errors.As(err, &gerr) {
				t.Fatalf("expected GeometryError, got %v", err)
			}
		})
	}
}

func TestClosestPoint(t *testing.T) {
	src := newTestSource(quadMesh())
	h, err := Acquire(src)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer h.Release()
	c := h.Cache()

	tests := []struct {
		name  string
		query r3.Vec
		want  r3.Vec
	}{
		{name: "above center", query: r3.Vec{X: 0.5, Y: 2, Z: 0.5}, want: r3.Vec{X: 0.5, Z: 0.5}},
		{name: "below corner", query: r3.Vec{X: -1, Y: -1, Z: -1}, want: r3.Vec{}},
		{name: "on surface", query: r3.Vec{X: 0.25, Y: 0, Z: 0.75}, want: r3.Vec{X: 0.25, Z: 0.75}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hit, err := c.ClosestPoint(tc.query)
			if err != nil {
				t.Fatalf("ClosestPoint failed: %v", err)
			}
			if r3.Norm(r3.Sub(hit.Position, tc.want)) > 1e-9 {
				t.Errorf("closest point = %+v, want %+v", hit.Position, tc.want)
			}
			if math.Abs(hit.Normal.Y-1) > 1e-9 {
				t.Errorf("expected +Y normal, got %+v", hit.Normal)
			}
		})
	}
}

func TestSurfaceAt(t *testing.T) {
	src := newTestSource(quadMesh())
	h, err := Acquire(src)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer h.Release()
	c := h.Cache()

	hit, ok := c.SurfaceAt(0.5, 0.5)
	if !ok {
		t.Fatal("SurfaceAt(0.5, 0.5) found no face")
	}
	// The quad's UV layout matches its XZ layout.
	want := r3.Vec{X: 0.5, Z: 0.5}
	if r3.Norm(r3.Sub(hit.Position, want)) > 1e-9 {
		t.Errorf("SurfaceAt position = %+v, want %+v", hit.Position, want)
	}
	if hit.U != 0.5 || hit.V != 0.5 {
		t.Errorf("SurfaceAt UV = (%f, %f), want (0.5, 0.5)", hit.U, hit.V)
	}
}

func TestRebuildOnlyWhenStale(t *testing.T) {
	src := newTestSource(quadMesh())
	h, err := Acquire(src)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer h.Release()
	c := h.Cache()

	if got := c.RebuildCount(); got != 1 {
		t.Fatalf("expected 1 build, got %d", got)
	}

	// Unchanged mesh: no recomputation.
	if err := c.InvalidateIfStale(); err != nil {
		t.Fatalf("InvalidateIfStale failed: %v", err)
	}
	if got := c.RebuildCount(); got != 1 {
		t.Errorf("rebuild on unchanged mesh: count %d", got)
	}

	// Deform the mesh: signature changes, rebuild fires.
	src.mesh.Positions[0].Y = 0.5
	if err := c.InvalidateIfStale(); err != nil {
		t.Fatalf("InvalidateIfStale after edit failed: %v", err)
	}
	if got := c.RebuildCount(); got != 2 {
		t.Errorf("expected rebuild after deformation, count %d", got)
	}

	// Version bump alone also triggers a rebuild.
	src.version++
	if err := c.InvalidateIfStale(); err != nil {
		t.Fatalf("InvalidateIfStale after version bump failed: %v", err)
	}
	if got := c.RebuildCount(); got != 3 {
		t.Errorf("expected rebuild after version bump, count %d", got)
	}
}

func TestAcquireSharesByIdentity(t *testing.T) {
	src := newTestSource(quadMesh())
	h1, err := Acquire(src)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	h2, err := Acquire(src)
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if h1.Cache() != h2.Cache() {
		t.Error("same identity must share one cache")
	}
	if got := h1.Cache().RebuildCount(); got != 1 {
		t.Errorf("no-op re-acquire must not rebuild, count %d", got)
	}

	h1.Release()
	h3, err := Acquire(src)
	if err != nil {
		t.Fatalf("third Acquire failed: %v", err)
	}
	if h3.Cache() != h2.Cache() {
		t.Error("cache must survive while a reference remains")
	}
	h2.Release()
	h3.Release()

	// All references dropped: a new acquire builds a fresh cache.
	h4, err := Acquire(src)
	if err != nil {
		t.Fatalf("fourth Acquire failed: %v", err)
	}
	defer h4.Release()
	if h4.Cache() == h2.Cache() {
		t.Error("released cache must not be handed out again")
	}
}

func TestVertexNormalsFallback(t *testing.T) {
	m := quadMesh()
	m.Normals = nil
	src := newTestSource(m)
	h, err := Acquire(src)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer h.Release()

	for i, n := range h.Cache().Mesh().Normals {
		if math.Abs(n.Y-1) > 1e-9 {
			t.Errorf("vertex %d: computed normal %+v, want +Y", i, n)
		}
	}
}

func TestRandomSurfacePointOnSurface(t *testing.T) {
	src := newTestSource(quadMesh())
	h, err := Acquire(src)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer h.Release()
	c := h.Cache()

	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		hit := c.RandomSurfacePoint(rng)
		if hit.Position.Y != 0 {
			t.Fatalf("sample off the plane: %+v", hit.Position)
		}
		if hit.Position.X < 0 || hit.Position.X > 1 || hit.Position.Z < 0 || hit.Position.Z > 1 {
			t.Fatalf("sample outside the quad: %+v", hit.Position)
		}
	}
}
