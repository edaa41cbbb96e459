package geom

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestClosestPointOnTriangle(t *testing.T) {
	a := r3.Vec{X: 0, Y: 0, Z: 0}
	b := r3.Vec{X: 2, Y: 0, Z: 0}
	c := r3.Vec{X: 0, Y: 0, Z: 2}

	tests := []struct {
		name  string
		query r3.Vec
		want  r3.Vec
	}{
		{name: "interior projects down", query: r3.Vec{X: 0.5, Y: 3, Z: 0.5}, want: r3.Vec{X: 0.5, Z: 0.5}},
		{name: "clamps to vertex a", query: r3.Vec{X: -1, Y: 0, Z: -1}, want: a},
		{name: "clamps to vertex b", query: r3.Vec{X: 5, Y: -1, Z: 0}, want: b},
		{name: "clamps to edge ab", query: r3.Vec{X: 1, Y: 1, Z: -2}, want: r3.Vec{X: 1}},
		{name: "clamps to edge ac", query: r3.Vec{X: -2, Y: 0, Z: 1}, want: r3.Vec{Z: 1}},
		{name: "on vertex stays put", query: c, want: c},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := closestPointOnTriangle(tc.query, a, b, c)
			if r3.Norm(r3.Sub(got, tc.want)) > 1e-9 {
				t.Errorf("closest = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestBarycentricRoundTrip(t *testing.T) {
	a := r3.Vec{X: 1, Y: 2, Z: 0}
	b := r3.Vec{X: 4, Y: 0, Z: 1}
	c := r3.Vec{X: 0, Y: 1, Z: 3}

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		p, u, v, w := samplePointInTriangle(rng, a, b, c)

		if u < 0 || v < 0 || w < 0 {
			t.Fatalf("negative weight: u=%f v=%f w=%f", u, v, w)
		}
		if math.Abs(u+v+w-1) > 1e-9 {
			t.Fatalf("weights do not sum to 1: %f", u+v+w)
		}

		// Recovering the weights from the point must agree.
		ru, rv, rw := barycentric(p, a, b, c)
		if math.Abs(ru-u) > 1e-6 || math.Abs(rv-v) > 1e-6 || math.Abs(rw-w) > 1e-6 {
			t.Fatalf("round trip mismatch: (%f,%f,%f) vs (%f,%f,%f)", u, v, w, ru, rv, rw)
		}
	}
}

func TestTriangleArea(t *testing.T) {
	got := triangleArea(r3.Vec{}, r3.Vec{X: 3}, r3.Vec{Z: 4})
	if math.Abs(got-6) > 1e-12 {
		t.Errorf("area = %f, want 6", got)
	}
	if a := triangleArea(r3.Vec{X: 1}, r3.Vec{X: 1}, r3.Vec{X: 1}); a != 0 {
		t.Errorf("degenerate triangle area = %f, want 0", a)
	}
}
