package xform

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestAssignNeutralDefaults(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	res := Assign(r3.Vec{Y: 1}, rng, Default())

	if res.Rotation != (r3.Vec{}) {
		t.Errorf("flat normal with defaults must yield zero rotation, got %+v", res.Rotation)
	}
	if res.Scale != (r3.Vec{X: 1, Y: 1, Z: 1}) {
		t.Errorf("default scale must be unit, got %+v", res.Scale)
	}
	if res.Offset != 0 {
		t.Errorf("default offset must be zero, got %f", res.Offset)
	}
}

func TestAssignRespectsRanges(t *testing.T) {
	cfg := Default()
	cfg.MinRotation = r3.Vec{X: -10, Y: 0, Z: 5}
	cfg.MaxRotation = r3.Vec{X: 10, Y: 90, Z: 15}
	cfg.MinScale = r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	cfg.MaxScale = r3.Vec{X: 2, Y: 2, Z: 2}
	cfg.MinOffset = -0.1
	cfg.MaxOffset = 0.3

	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 500; i++ {
		res := Assign(r3.Vec{Y: 1}, rng, cfg)
		inRange := func(v, lo, hi float64) bool { return v >= lo && v <= hi }
		if !inRange(res.Rotation.X, -10, 10) || !inRange(res.Rotation.Y, 0, 90) || !inRange(res.Rotation.Z, 5, 15) {
			t.Fatalf("rotation %+v outside configured ranges", res.Rotation)
		}
		for _, s := range []float64{res.Scale.X, res.Scale.Y, res.Scale.Z} {
			if !inRange(s, 0.5, 2) {
				t.Fatalf("scale %+v outside configured range", res.Scale)
			}
		}
		if !inRange(res.Offset, -0.1, 0.3) {
			t.Fatalf("offset %f outside configured range", res.Offset)
		}
	}
}

func TestAssignUniformScale(t *testing.T) {
	cfg := Default()
	cfg.UniformScale = true
	cfg.MinScale = r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	cfg.MaxScale = r3.Vec{X: 3, Y: 3, Z: 3}

	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		res := Assign(r3.Vec{Y: 1}, rng, cfg)
		if res.Scale.X != res.Scale.Y || res.Scale.Y != res.Scale.Z {
			t.Fatalf("uniform scale produced unequal axes: %+v", res.Scale)
		}
	}
}

func TestAssignScaleFactor(t *testing.T) {
	cfg := Default()
	cfg.ScaleFactor = 2.5
	rng := rand.New(rand.NewSource(6))
	res := Assign(r3.Vec{Y: 1}, rng, cfg)
	want := r3.Vec{X: 2.5, Y: 2.5, Z: 2.5}
	if res.Scale != want {
		t.Errorf("scale = %+v, want %+v", res.Scale, want)
	}
}

func TestBlendDirection(t *testing.T) {
	n := r3.Vec{X: 1}
	tests := []struct {
		name   string
		weight float64
		want   r3.Vec
	}{
		{name: "weight zero keeps normal", weight: 0, want: n},
		{name: "weight one is world up", weight: 1, want: r3.Vec{Y: 1}},
		{name: "half blend splits the angle", weight: 0.5, want: r3.Vec{X: math.Sqrt2 / 2, Y: math.Sqrt2 / 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BlendDirection(n, r3.Vec{}, tc.weight)
			if r3.Norm(r3.Sub(got, tc.want)) > 1e-9 {
				t.Errorf("blend = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestEulerAligning(t *testing.T) {
	tests := []struct {
		name string
		dir  r3.Vec
		want r3.Vec
	}{
		{name: "up is identity", dir: r3.Vec{Y: 1}, want: r3.Vec{}},
		{name: "tilt toward z", dir: r3.Vec{Y: math.Sqrt2 / 2, Z: math.Sqrt2 / 2}, want: r3.Vec{X: 45}},
		{name: "tilt toward x", dir: r3.Vec{X: math.Sqrt2 / 2, Y: math.Sqrt2 / 2}, want: r3.Vec{Z: -45}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := EulerAligning(tc.dir)
			if r3.Norm(r3.Sub(got, tc.want)) > 1e-9 {
				t.Errorf("euler = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestSmooth(t *testing.T) {
	cur := r3.Vec{X: 2, Y: 2, Z: 2}
	avg := r3.Vec{X: 1, Y: 1, Z: 1}
	if got := Smooth(cur, avg, 0); got != cur {
		t.Errorf("amount 0 must keep current, got %+v", got)
	}
	if got := Smooth(cur, avg, 1); got != avg {
		t.Errorf("amount 1 must reach the average, got %+v", got)
	}
	half := Smooth(cur, avg, 0.5)
	if r3.Norm(r3.Sub(half, r3.Vec{X: 1.5, Y: 1.5, Z: 1.5})) > 1e-12 {
		t.Errorf("half smooth = %+v", half)
	}
}

func TestRandomizeStaysInBand(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	cur := r3.Vec{X: 2, Y: 2, Z: 2}
	for i := 0; i < 200; i++ {
		got := Randomize(cur, rng, 0.25)
		for _, s := range []float64{got.X, got.Y, got.Z} {
			if s < 2*0.75 || s > 2*1.25 {
				t.Fatalf("randomized scale %f outside [1.5, 2.5]", s)
			}
		}
	}
}

func TestLerpAnglesClamps(t *testing.T) {
	from := r3.Vec{X: 0, Y: 10, Z: 20}
	to := r3.Vec{X: 90, Y: 10, Z: -20}
	if got := LerpAngles(from, to, -1); got != from {
		t.Errorf("t below 0 must clamp to from, got %+v", got)
	}
	if got := LerpAngles(from, to, 2); got != to {
		t.Errorf("t above 1 must clamp to to, got %+v", got)
	}
	mid := LerpAngles(from, to, 0.5)
	if r3.Norm(r3.Sub(mid, r3.Vec{X: 45, Y: 10, Z: 0})) > 1e-12 {
		t.Errorf("midpoint = %+v", mid)
	}
}
