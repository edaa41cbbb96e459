package geom

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/scatter/logging"
)

// GeometryError reports a mesh that cannot support surface sampling.
type GeometryError struct {
	Identity string
	Reason   string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry %q unusable: %s", e.Identity, e.Reason)
}

// SurfaceHit is a resolved point on the mesh surface with interpolated
// per-vertex attributes.
type SurfaceHit struct {
	Position r3.Vec
	Normal   r3.Vec
	U, V     float64
	Face     int32
}

// uvGridRes is the resolution of the UV lookup grid along each axis.
const uvGridRes = 64

// projectionCandidates is how many centroid-nearest faces are checked
// exactly during closest-point projection. Centroid distance is not the
// triangle distance, so a single nearest centroid can miss large skewed
// faces; checking a ring of candidates keeps projection robust without
// a full scan.
const projectionCandidates = 32

// Cache holds sampling-ready spatial data derived from one mesh.
// It is read-only once built; a rebuild runs to completion before any
// reader proceeds (the host drives the core single-threaded).
type Cache struct {
	src MeshSource

	mesh      *Mesh
	sig       Signature
	cumArea   []float64
	totalArea float64
	bounds    AABB
	tree      *kdtree.Tree
	uvGrid    [][]int32

	rebuilds int
}

func newCache(src MeshSource) (*Cache, error) {
	c := &Cache{src: src}
	if err := c.rebuild(); err != nil {
		return nil, err
	}
	return c, nil
}

// rebuild derives all spatial data from the current source mesh.
// On error the previous state is left untouched; no partial cache is
// ever published.
func (c *Cache) rebuild() error {
	m := c.src.Mesh()
	if m == nil || len(m.Faces) == 0 {
		return &GeometryError{Identity: c.src.Identity(), Reason: "mesh has no faces"}
	}

	cum := make([]float64, len(m.Faces))
	total := 0.0
	for i, f := range m.Faces {
		total += triangleArea(m.Positions[f[0]], m.Positions[f[1]], m.Positions[f[2]])
		cum[i] = total
	}
	if total <= 0 {
		return &GeometryError{Identity: c.src.Identity(), Reason: "total surface area is zero"}
	}

	snap := &Mesh{
		Positions: append([]r3.Vec(nil), m.Positions...),
		Faces:     append([][3]int32(nil), m.Faces...),
		Normals:   append([]r3.Vec(nil), m.Normals...),
		UVs:       append([][2]float64(nil), m.UVs...),
	}
	if len(snap.Normals) == 0 {
		snap.Normals = vertexNormals(snap)
	}

	c.mesh = snap
	c.sig = SignatureOf(m, c.src.Version())
	c.cumArea = cum
	c.totalArea = total
	c.bounds = boundsOf(snap.Positions)
	c.tree = newFaceTree(snap)
	c.uvGrid = buildUVGrid(snap)
	c.rebuilds++

	logging.Sugar.Debugw("mesh cache rebuilt",
		"identity", c.src.Identity(),
		"faces", len(snap.Faces),
		"area", total,
		"rebuilds", c.rebuilds,
	)
	return nil
}

// InvalidateIfStale recomputes the mesh signature and rebuilds the cache
// when it no longer matches. Called at the start of every sampler and
// brush operation, so callers never invalidate explicitly.
func (c *Cache) InvalidateIfStale() error {
	m := c.src.Mesh()
	if m == nil {
		return &GeometryError{Identity: c.src.Identity(), Reason: "mesh source returned nil"}
	}
	if SignatureOf(m, c.src.Version()) == c.sig {
		return nil
	}
	return c.rebuild()
}

// Mesh returns the cached mesh snapshot.
func (c *Cache) Mesh() *Mesh { return c.mesh }

// Bounds returns the mesh bounding box.
func (c *Cache) Bounds() AABB { return c.bounds }

// TotalArea returns the summed face area.
func (c *Cache) TotalArea() float64 { return c.totalArea }

// FaceCount returns the number of faces.
func (c *Cache) FaceCount() int { return len(c.mesh.Faces) }

// RebuildCount reports how many times this cache has been (re)built.
func (c *Cache) RebuildCount() int { return c.rebuilds }

// HasUVs reports whether the cached mesh carries UV coordinates.
func (c *Cache) HasUVs() bool { return len(c.mesh.UVs) > 0 }

// FaceForArea maps a value in [0, TotalArea) to the face owning that
// span of the cumulative-area table.
func (c *Cache) FaceForArea(t float64) int32 {
	idx := sort.Search(len(c.cumArea), func(i int) bool { return c.cumArea[i] > t })
	if idx >= len(c.cumArea) {
		idx = len(c.cumArea) - 1
	}
	return int32(idx)
}

// RandomFace draws an area-weighted random face.
func (c *Cache) RandomFace(rng *rand.Rand) int32 {
	return c.FaceForArea(rng.Float64() * c.totalArea)
}

// RandomSurfacePoint draws an area-weighted uniform random surface point.
func (c *Cache) RandomSurfacePoint(rng *rand.Rand) SurfaceHit {
	face := c.RandomFace(rng)
	f := c.mesh.Faces[face]
	p, u, v, w := samplePointInTriangle(rng,
		c.mesh.Positions[f[0]], c.mesh.Positions[f[1]], c.mesh.Positions[f[2]])
	return c.interpolate(face, p, u, v, w)
}

// ClosestPoint projects p onto the nearest point of the mesh surface.
func (c *Cache) ClosestPoint(p r3.Vec) (SurfaceHit, error) {
	n := projectionCandidates
	if n > len(c.mesh.Faces) {
		n = len(c.mesh.Faces)
	}
	candidates := nearestFaces(c.tree, p, n)

	best := SurfaceHit{Face: -1}
	bestDist := 0.0
	for _, face := range candidates {
		f := c.mesh.Faces[face]
		q := closestPointOnTriangle(p,
			c.mesh.Positions[f[0]], c.mesh.Positions[f[1]], c.mesh.Positions[f[2]])
		d := r3.Norm2(r3.Sub(p, q))
		if best.Face < 0 || d < bestDist {
			u, v, w := barycentric(q,
				c.mesh.Positions[f[0]], c.mesh.Positions[f[1]], c.mesh.Positions[f[2]])
			best = c.interpolate(face, q, u, v, w)
			bestDist = d
		}
	}
	if best.Face < 0 {
		return SurfaceHit{}, &GeometryError{Identity: c.src.Identity(), Reason: "projection found no faces"}
	}
	return best, nil
}

// SurfaceAt maps a UV coordinate in [0,1]x[0,1] back to the 3D surface.
// Returns false when no face covers the coordinate.
func (c *Cache) SurfaceAt(u, v float64) (SurfaceHit, bool) {
	if len(c.mesh.UVs) == 0 || c.uvGrid == nil {
		return SurfaceHit{}, false
	}
	cell := uvCell(u, v)
	const eps = 1e-9
	for _, face := range c.uvGrid[cell] {
		f := c.mesh.Faces[face]
		a, b, cc := c.mesh.UVs[f[0]], c.mesh.UVs[f[1]], c.mesh.UVs[f[2]]
		bu, bv, bw := barycentric2D(u, v, a, b, cc)
		if bu < -eps || bv < -eps || bw < -eps {
			continue
		}
		p := r3.Add(r3.Scale(bu, c.mesh.Positions[f[0]]),
			r3.Add(r3.Scale(bv, c.mesh.Positions[f[1]]), r3.Scale(bw, c.mesh.Positions[f[2]])))
		hit := c.interpolate(face, p, bu, bv, bw)
		hit.U, hit.V = u, v
		return hit, true
	}
	return SurfaceHit{}, false
}

// interpolate assembles a SurfaceHit from a face and barycentric weights.
func (c *Cache) interpolate(face int32, p r3.Vec, u, v, w float64) SurfaceHit {
	f := c.mesh.Faces[face]
	n := r3.Add(r3.Scale(u, c.mesh.Normals[f[0]]),
		r3.Add(r3.Scale(v, c.mesh.Normals[f[1]]), r3.Scale(w, c.mesh.Normals[f[2]])))
	if l := r3.Norm(n); l > 0 {
		n = r3.Scale(1/l, n)
	}
	hit := SurfaceHit{Position: p, Normal: n, Face: face}
	if len(c.mesh.UVs) > 0 {
		hit.U = u*c.mesh.UVs[f[0]][0] + v*c.mesh.UVs[f[1]][0] + w*c.mesh.UVs[f[2]][0]
		hit.V = u*c.mesh.UVs[f[0]][1] + v*c.mesh.UVs[f[1]][1] + w*c.mesh.UVs[f[2]][1]
	}
	return hit
}

// vertexNormals computes area-weighted per-vertex normals when the host
// did not provide any.
func vertexNormals(m *Mesh) []r3.Vec {
	normals := make([]r3.Vec, len(m.Positions))
	for _, f := range m.Faces {
		a, b, c := m.Positions[f[0]], m.Positions[f[1]], m.Positions[f[2]]
		fn := r3.Cross(r3.Sub(b, a), r3.Sub(c, a)) // length is 2x area
		for _, vi := range f {
			normals[vi] = r3.Add(normals[vi], fn)
		}
	}
	for i, n := range normals {
		if l := r3.Norm(n); l > 0 {
			normals[i] = r3.Scale(1/l, n)
		}
	}
	return normals
}

// buildUVGrid rasterizes each face's UV bounding box into a uniform
// lookup grid so SurfaceAt avoids scanning every face.
func buildUVGrid(m *Mesh) [][]int32 {
	if len(m.UVs) == 0 {
		return nil
	}
	grid := make([][]int32, uvGridRes*uvGridRes)
	for fi, f := range m.Faces {
		minU, minV := 1.0, 1.0
		maxU, maxV := 0.0, 0.0
		for _, vi := range f {
			uv := m.UVs[vi]
			minU = min(minU, uv[0])
			minV = min(minV, uv[1])
			maxU = max(maxU, uv[0])
			maxV = max(maxV, uv[1])
		}
		c0, r0 := uvIndex(minU), uvIndex(minV)
		c1, r1 := uvIndex(maxU), uvIndex(maxV)
		for r := r0; r <= r1; r++ {
			for col := c0; col <= c1; col++ {
				idx := r*uvGridRes + col
				grid[idx] = append(grid[idx], int32(fi))
			}
		}
	}
	return grid
}

func uvCell(u, v float64) int {
	return uvIndex(v)*uvGridRes + uvIndex(u)
}

func uvIndex(t float64) int {
	i := int(t * uvGridRes)
	if i < 0 {
		i = 0
	} else if i >= uvGridRes {
		i = uvGridRes - 1
	}
	return i
}

// cacheEntry is one reference-counted shared cache.
type cacheEntry struct {
	cache *Cache
	refs  int
}

var registry = struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}{entries: make(map[string]*cacheEntry)}

// Handle is a counted reference to a shared mesh cache.
type Handle struct {
	key      string
	cache    *Cache
	released bool
}

// Acquire returns the shared cache for the source's identity, building
// it on first request and rebuilding it when the signature is stale.
func Acquire(src MeshSource) (*Handle, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	key := src.Identity()
	if e, ok := registry.entries[key]; ok {
		if err := e.cache.InvalidateIfStale(); err != nil {
			return nil, err
		}
		e.refs++
		return &Handle{key: key, cache: e.cache}, nil
	}

	c, err := newCache(src)
	if err != nil {
		return nil, err
	}
	registry.entries[key] = &cacheEntry{cache: c, refs: 1}
	return &Handle{key: key, cache: c}, nil
}

// Cache returns the underlying cache.
func (h *Handle) Cache() *Cache { return h.cache }

// Release drops this reference; the cache is torn down when the last
// referencing consumer releases it. Release is idempotent.
func (h *Handle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true

	registry.mu.Lock()
	defer registry.mu.Unlock()
	e, ok := registry.entries[h.key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(registry.entries, h.key)
	}
}
