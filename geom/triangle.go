package geom

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// triangleArea returns the area of the triangle (a, b, c).
func triangleArea(a, b, c r3.Vec) float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
}

// samplePointInTriangle draws a uniformly distributed point inside the
// triangle using the square-root barycentric transform.
func samplePointInTriangle(rng *rand.Rand, a, b, c r3.Vec) (p r3.Vec, u, v, w float64) {
	r1 := math.Sqrt(rng.Float64())
	r2 := rng.Float64()
	u = 1 - r1
	v = r1 * (1 - r2)
	w = r1 * r2
	p = r3.Add(r3.Add(r3.Scale(u, a), r3.Scale(v, b)), r3.Scale(w, c))
	return p, u, v, w
}

// barycentric returns the barycentric coordinates of p with respect to
// the triangle (a, b, c). p is assumed to lie in the triangle's plane.
func barycentric(p, a, b, c r3.Vec) (u, v, w float64) {
	v0 := r3.Sub(b, a)
	v1 := r3.Sub(c, a)
	v2 := r3.Sub(p, a)
	d00 := r3.Dot(v0, v0)
	d01 := r3.Dot(v0, v1)
	d11 := r3.Dot(v1, v1)
	d20 := r3.Dot(v2, v0)
	d21 := r3.Dot(v2, v1)
	denom := d00*d11 - d01*d01
	if denom == 0 {
		return 1, 0, 0
	}
	v = (d11*d20 - d01*d21) / denom
	w = (d00*d21 - d01*d20) / denom
	u = 1 - v - w
	return u, v, w
}

// closestPointOnTriangle returns the point on triangle (a, b, c) closest
// to p. Ericson, Real-Time Collision Detection, 5.1.5.
func closestPointOnTriangle(p, a, b, c r3.Vec) r3.Vec {
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ap := r3.Sub(p, a)

	d1 := r3.Dot(ab, ap)
	d2 := r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := r3.Sub(p, b)
	d3 := r3.Dot(ab, bp)
	d4 := r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		t := d1 / (d1 - d3)
		return r3.Add(a, r3.Scale(t, ab))
	}

	cp := r3.Sub(p, c)
	d5 := r3.Dot(ab, cp)
	d6 := r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		t := d2 / (d2 - d6)
		return r3.Add(a, r3.Scale(t, ac))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		t := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(t, r3.Sub(c, b)))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}

// barycentric2D returns the barycentric coordinates of point (u, v) with
// respect to a triangle given in UV space.
func barycentric2D(u, v float64, a, b, c [2]float64) (bu, bv, bw float64) {
	v0 := [2]float64{b[0] - a[0], b[1] - a[1]}
	v1 := [2]float64{c[0] - a[0], c[1] - a[1]}
	v2 := [2]float64{u - a[0], v - a[1]}
	denom := v0[0]*v1[1] - v1[0]*v0[1]
	if denom == 0 {
		return -1, -1, -1
	}
	bv = (v2[0]*v1[1] - v1[0]*v2[1]) / denom
	bw = (v0[0]*v2[1] - v2[0]*v0[1]) / denom
	bu = 1 - bv - bw
	return bu, bv, bw
}
