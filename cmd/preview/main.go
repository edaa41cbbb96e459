// Interactive scatter preview tool: generates a procedural terrain,
// scatters instance points over it, and lets you paint with the brush
// modes using the mouse.
//
// Usage: go run ./cmd/preview
//
// Left mouse paints with the selected brush mode. Hold Shift/Alt/Ctrl
// for the mode's modifier variants. Right mouse orbits the camera,
// mouse wheel zooms.
package main

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/scatter"
	"github.com/pthm-cable/scatter/brush"
	"github.com/pthm-cable/scatter/config"
	"github.com/pthm-cable/scatter/export"
	"github.com/pthm-cable/scatter/geom"
	"github.com/pthm-cable/scatter/logging"
)

const (
	windowWidth  = 1280
	windowHeight = 800
	panelWidth   = 280

	terrainCells  = 48
	terrainExtent = 10.0
	terrainHeight = 2.5
)

var brushModes = []brush.Mode{
	brush.Place, brush.Spray, brush.Scale, brush.Align,
	brush.Move, brush.ID, brush.Delete,
}

var objectColors = []rl.Color{
	rl.NewColor(240, 110, 80, 255),
	rl.NewColor(90, 200, 120, 255),
	rl.NewColor(90, 140, 240, 255),
}

// terrainSource feeds the procedural heightfield to the mesh cache.
// Regenerating bumps the version so the cache rebuilds on next use.
type terrainSource struct {
	seed    uint32
	version uint64
	mesh    *geom.Mesh
}

func (t *terrainSource) Identity() string { return "preview-terrain" }
func (t *terrainSource) Version() uint64  { return t.version }
func (t *terrainSource) Mesh() *geom.Mesh { return t.mesh }

func (t *terrainSource) regenerate(seed uint32) {
	t.seed = seed
	t.mesh = buildTerrain(seed)
	t.version++
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Logging.Level, cfg.Logging.File)

	cfg.Sampling.Count = 1500
	cfg.Sampling.CellSize = 0.4
	cfg.Sampling.MinRadius = 0.3
	cfg.Brush.Radius = 1.5
	cfg.Brush.Drag = true
	cfg.Transform.MinScale = [3]float64{0.6, 0.6, 0.6}
	cfg.Transform.MaxScale = [3]float64{1.4, 1.4, 1.4}

	src := &terrainSource{}
	src.regenerate(12345)

	node, err := scatter.NewNode(src, cfg)
	if err != nil {
		panic(err)
	}
	defer node.Release()
	node.SetSourceCount(int32(len(objectColors)))

	rl.InitWindow(windowWidth, windowHeight, "Scatter Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	camera := rl.Camera3D{
		Position:   rl.Vector3{X: 9, Y: 8, Z: 9},
		Target:     rl.Vector3{X: 0, Y: 0, Z: 0},
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}
	camAngle := float32(0.78)
	camPitch := float32(0.55)
	camDist := float32(15)

	algorithms := []string{"random", "jitter", "poisson3d", "poissonuv"}
	algIndex := 0
	modeIndex := 0
	slopeFilter := false
	strokeActive := false
	statusLine := ""

	if _, err := node.Sample(); err != nil {
		statusLine = err.Error()
	}

	for !rl.WindowShouldClose() {
		// Camera orbit on right mouse, wheel zoom.
		if rl.IsMouseButtonDown(rl.MouseRightButton) {
			delta := rl.GetMouseDelta()
			camAngle -= delta.X * 0.006
			camPitch += delta.Y * 0.006
			camPitch = clamp32(camPitch, 0.1, 1.5)
		}
		camDist -= rl.GetMouseWheelMove() * 0.8
		camDist = clamp32(camDist, 4, 40)
		camera.Position = rl.Vector3{
			X: camDist * float32(math.Cos(float64(camPitch))) * float32(math.Sin(float64(camAngle))),
			Y: camDist * float32(math.Sin(float64(camPitch))),
			Z: camDist * float32(math.Cos(float64(camPitch))) * float32(math.Cos(float64(camAngle))),
		}

		pick, picked := pickSurface(camera, node.Cache())

		// Brush strokes on left mouse over the viewport.
		overPanel := rl.GetMousePosition().X > windowWidth-panelWidth
		if rl.IsMouseButtonDown(rl.MouseLeftButton) && picked && !overPanel {
			if !strokeActive {
				if err := node.BeginStroke(brushModes[modeIndex]); err == nil {
					strokeActive = true
				}
			}
			if strokeActive {
				mods := brush.Modifiers{
					Shift: rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift),
					Meta:  rl.IsKeyDown(rl.KeyLeftAlt) || rl.IsKeyDown(rl.KeyRightAlt),
					Ctrl:  rl.IsKeyDown(rl.KeyLeftControl) || rl.IsKeyDown(rl.KeyRightControl),
				}
				node.Tick(pick, mods)
			}
		} else if strokeActive {
			node.EndStroke()
			strokeActive = false
		}

		attr := node.InstanceAttribute()

		rl.BeginDrawing()
		rl.ClearBackground(rl.NewColor(18, 20, 26, 255))

		rl.BeginMode3D(camera)
		drawTerrain(src.mesh)
		for i, p := range attr.Positions {
			size := float32(attr.Scales[i].X) * 0.12
			c := objectColors[int(attr.ObjectIndices[i])%len(objectColors)]
			rl.DrawCubeV(vec3(p), rl.Vector3{X: size, Y: size * 2, Z: size}, c)
		}
		if picked && !overPanel {
			rl.DrawCircle3D(vec3(pick), float32(cfg.Brush.Radius),
				rl.Vector3{X: 1}, 90, rl.NewColor(255, 255, 255, 120))
		}
		rl.EndMode3D()

		// Control panel.
		px := float32(windowWidth - panelWidth + 10)
		py := float32(10)
		rl.DrawRectangle(windowWidth-panelWidth, 0, panelWidth, windowHeight, rl.NewColor(28, 30, 38, 240))
		rl.DrawText("Scatter", int32(px), int32(py), 20, rl.RayWhite)
		py += 35

		rl.DrawText(fmt.Sprintf("points: %d", len(attr.Positions)), int32(px), int32(py), 14, rl.Gray)
		py += 25

		if gui.Button(rl.Rectangle{X: px, Y: py, Width: 120, Height: 26}, "Algorithm: "+algorithms[algIndex]) {
			algIndex = (algIndex + 1) % len(algorithms)
			cfg.Sampling.Algorithm = algorithms[algIndex]
		}
		py += 34

		rl.DrawText("count", int32(px), int32(py), 14, rl.Gray)
		py += 16
		count := gui.SliderBar(rl.Rectangle{X: px, Y: py, Width: 180, Height: 18},
			"100", "5000", float32(cfg.Sampling.Count), 100, 5000)
		cfg.Sampling.Count = int(count)
		rl.DrawText(fmt.Sprintf("%d", cfg.Sampling.Count), int32(px+190), int32(py), 14, rl.Gray)
		py += 28

		rl.DrawText("poisson min radius", int32(px), int32(py), 14, rl.Gray)
		py += 16
		minR := gui.SliderBar(rl.Rectangle{X: px, Y: py, Width: 180, Height: 18},
			"0.05", "0.9", float32(cfg.Sampling.MinRadius), 0.05, 0.9)
		cfg.Sampling.MinRadius = float64(minR)
		rl.DrawText(fmt.Sprintf("%.2f", cfg.Sampling.MinRadius), int32(px+190), int32(py), 14, rl.Gray)
		py += 28

		slopeFilter = gui.CheckBox(rl.Rectangle{X: px, Y: py, Width: 18, Height: 18},
			"slope filter (0-35 deg)", slopeFilter)
		cfg.Filters.Slope.Enabled = slopeFilter
		cfg.Filters.Slope.Min = 0
		cfg.Filters.Slope.Max = 35
		cfg.Filters.Slope.Fuzziness = 5
		py += 30

		if gui.Button(rl.Rectangle{X: px, Y: py, Width: 120, Height: 28}, "Resample") {
			if _, err := node.Sample(); err != nil {
				statusLine = err.Error()
			} else {
				statusLine = ""
			}
		}
		if gui.Button(rl.Rectangle{X: px + 130, Y: py, Width: 120, Height: 28}, "Refilter") {
			removed := node.Refilter()
			statusLine = fmt.Sprintf("refilter removed %d", removed)
		}
		py += 38

		if gui.Button(rl.Rectangle{X: px, Y: py, Width: 120, Height: 28}, "New Terrain") {
			src.regenerate(uint32(rl.GetRandomValue(0, 99999)))
		}
		if gui.Button(rl.Rectangle{X: px + 130, Y: py, Width: 120, Height: 28}, "Dump CSV") {
			if w, err := export.NewWriter("preview-out"); err == nil {
				w.WritePoints(node.Dataset())
				w.WriteConfig(cfg)
				statusLine = "wrote preview-out/points.csv"
			}
		}
		py += 45

		rl.DrawText("Brush", int32(px), int32(py), 18, rl.RayWhite)
		py += 28

		if gui.Button(rl.Rectangle{X: px, Y: py, Width: 120, Height: 26}, "Mode: "+brushModes[modeIndex].String()) {
			modeIndex = (modeIndex + 1) % len(brushModes)
		}
		py += 34

		rl.DrawText("radius", int32(px), int32(py), 14, rl.Gray)
		py += 16
		radius := gui.SliderBar(rl.Rectangle{X: px, Y: py, Width: 180, Height: 18},
			"0.2", "4.0", float32(cfg.Brush.Radius), 0.2, 4.0)
		cfg.Brush.Radius = float64(radius)
		rl.DrawText(fmt.Sprintf("%.2f", cfg.Brush.Radius), int32(px+190), int32(py), 14, rl.Gray)
		py += 28

		rl.DrawText("strength", int32(px), int32(py), 14, rl.Gray)
		py += 16
		strength := gui.SliderBar(rl.Rectangle{X: px, Y: py, Width: 180, Height: 18},
			"0.1", "1.0", float32(cfg.Brush.Strength), 0.1, 1.0)
		cfg.Brush.Strength = float64(strength)
		py += 28

		rl.DrawText("scale amount", int32(px), int32(py), 14, rl.Gray)
		py += 16
		amount := gui.SliderBar(rl.Rectangle{X: px, Y: py, Width: 180, Height: 18},
			"0.5", "2.0", float32(cfg.Brush.ScaleAmount), 0.5, 2.0)
		cfg.Brush.ScaleAmount = float64(amount)
		py += 34

		rl.DrawText("Shift/Alt/Ctrl change the mode's", int32(px), int32(py), 12, rl.LightGray)
		py += 16
		rl.DrawText("behavior while painting.", int32(px), int32(py), 12, rl.LightGray)

		if statusLine != "" {
			rl.DrawText(statusLine, 10, windowHeight-24, 14, rl.Orange)
		}
		rl.DrawFPS(10, 10)
		rl.EndDrawing()
	}
}

// pickSurface casts the mouse ray into the scene and returns the point
// where it meets the terrain surface. The coarse hit against the mesh
// bounds is refined by snapping onto the surface.
func pickSurface(camera rl.Camera3D, cache *geom.Cache) (r3.Vec, bool) {
	ray := rl.GetScreenToWorldRay(rl.GetMousePosition(), camera)
	origin := r3.Vec{X: float64(ray.Position.X), Y: float64(ray.Position.Y), Z: float64(ray.Position.Z)}
	dir := r3.Vec{X: float64(ray.Direction.X), Y: float64(ray.Direction.Y), Z: float64(ray.Direction.Z)}

	bounds := cache.Bounds()
	t, ok := rayBoxEntry(origin, dir, bounds)
	if !ok {
		return r3.Vec{}, false
	}
	coarse := r3.Add(origin, r3.Scale(t, dir))
	hit, err := cache.ClosestPoint(coarse)
	if err != nil {
		return r3.Vec{}, false
	}
	return hit.Position, true
}

// rayBoxEntry is a slab test returning the ray parameter where it
// enters the box.
func rayBoxEntry(origin, dir r3.Vec, box geom.AABB) (float64, bool) {
	tMin, tMax := 0.0, math.MaxFloat64
	for _, axis := range [3][3]float64{
		{origin.X, dir.X, 0}, {origin.Y, dir.Y, 1}, {origin.Z, dir.Z, 2},
	} {
		o, d := axis[0], axis[1]
		var lo, hi float64
		switch axis[2] {
		case 0:
			lo, hi = box.Min.X, box.Max.X
		case 1:
			lo, hi = box.Min.Y, box.Max.Y
		default:
			lo, hi = box.Min.Z, box.Max.Z
		}
		if math.Abs(d) < 1e-12 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t0 := (lo - o) / d
		t1 := (hi - o) / d
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tMin = math.Max(tMin, t0)
		tMax = math.Min(tMax, t1)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// buildTerrain generates a heightfield mesh over a square grid using
// tileable value-noise FBM.
func buildTerrain(seed uint32) *geom.Mesh {
	n := terrainCells
	verts := (n + 1) * (n + 1)
	m := &geom.Mesh{
		Positions: make([]r3.Vec, 0, verts),
		UVs:       make([][2]float64, 0, verts),
		Faces:     make([][3]int32, 0, n*n*2),
	}

	for z := 0; z <= n; z++ {
		for x := 0; x <= n; x++ {
			u := float32(x) / float32(n)
			v := float32(z) / float32(n)
			h := fbm2D(u, v, seed)
			m.Positions = append(m.Positions, r3.Vec{
				X: (float64(u) - 0.5) * terrainExtent,
				Y: float64(h) * terrainHeight,
				Z: (float64(v) - 0.5) * terrainExtent,
			})
			m.UVs = append(m.UVs, [2]float64{float64(u), float64(v)})
		}
	}
	stride := int32(n + 1)
	for z := int32(0); z < int32(n); z++ {
		for x := int32(0); x < int32(n); x++ {
			a := z*stride + x
			b := a + 1
			c := a + stride
			d := c + 1
			m.Faces = append(m.Faces, [3]int32{a, c, b}, [3]int32{b, c, d})
		}
	}
	return m
}

func fbm2D(u, v float32, seed uint32) float32 {
	sum := float32(0)
	amp := float32(0.5)
	freq := float32(3)
	for o := 0; o < 4; o++ {
		sum += amp * valueNoise2D(u, v, freq, seed)
		freq *= 2.1
		amp *= 0.5
	}
	return sum
}

// valueNoise2D generates tileable value noise at the given frequency.
func valueNoise2D(u, v, freq float32, seed uint32) float32 {
	x := u * freq
	y := v * freq

	ix := int(math.Floor(float64(x)))
	iy := int(math.Floor(float64(y)))
	fx := x - float32(ix)
	fy := y - float32(iy)

	f := int(freq)
	if f < 1 {
		f = 1
	}
	a := hash2D(modInt(ix, f), modInt(iy, f), seed)
	b := hash2D(modInt(ix+1, f), modInt(iy, f), seed)
	c := hash2D(modInt(ix, f), modInt(iy+1, f), seed)
	d := hash2D(modInt(ix+1, f), modInt(iy+1, f), seed)

	ux := smoothstep(fx)
	uy := smoothstep(fy)
	ab := a + (b-a)*ux
	cd := c + (d-c)*ux
	return ab + (cd-ab)*uy
}

func hash2D(ix, iy int, seed uint32) float32 {
	h := uint32(ix)*374761393 + uint32(iy)*668265263 + seed*1442695041
	h = (h ^ (h >> 13)) * 1274126177
	h ^= h >> 16
	return float32(h&0x00FFFFFF) / float32(0x01000000)
}

func modInt(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

func smoothstep(t float32) float32 {
	return t * t * (3 - 2*t)
}

// drawTerrain renders the heightfield as shaded triangles with a sparse
// wireframe overlay.
func drawTerrain(m *geom.Mesh) {
	for _, f := range m.Faces {
		a, b, c := m.Positions[f[0]], m.Positions[f[1]], m.Positions[f[2]]
		// Flat-shade by face height.
		h := (a.Y + b.Y + c.Y) / 3 / terrainHeight
		shade := uint8(60 + h*120)
		col := rl.NewColor(shade/2, shade, shade/2, 255)
		rl.DrawTriangle3D(vec3(a), vec3(b), vec3(c), col)
	}
	step := (terrainCells / 8) * 2
	for i := 0; i < len(m.Faces); i += step {
		f := m.Faces[i]
		a, b, c := m.Positions[f[0]], m.Positions[f[1]], m.Positions[f[2]]
		line := rl.NewColor(255, 255, 255, 25)
		rl.DrawLine3D(vec3(a), vec3(b), line)
		rl.DrawLine3D(vec3(b), vec3(c), line)
	}
}

func vec3(p r3.Vec) rl.Vector3 {
	return rl.Vector3{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
