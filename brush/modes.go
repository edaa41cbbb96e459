package brush

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/scatter/geom"
	"github.com/pthm-cable/scatter/xform"
)

// tickPlace inserts one new point at the tick position. Without Drag a
// stroke places exactly once, on its first tick; with Drag every tick
// that clears the min-distance throttle places another point. Stroke
// alignment overrides the rotation computed from the surface normal.
func (e *Engine) tickPlace(hit geom.SurfaceHit, mods Modifiers) {
	st := e.stroke
	if st.placed && !(e.settings.Drag || mods.Ctrl) {
		return
	}
	e.insertAt(hit)
	st.placed = true
}

// tickSpray inserts up to NumSamples new points randomly distributed
// within the brush radius, each snapped back onto the surface.
func (e *Engine) tickSpray(hit geom.SurfaceHit) {
	for i := 0; i < e.settings.NumSamples; i++ {
		offset := r3.Scale(e.settings.Radius*e.rng.Float64(), randomUnit(e.rng))
		snapped, err := e.cache.ClosestPoint(r3.Add(hit.Position, offset))
		if err != nil {
			continue
		}
		if r3.Norm2(r3.Sub(snapped.Position, hit.Position)) > e.settings.Radius*e.settings.Radius {
			continue
		}
		e.insertAt(snapped)
	}
}

// insertAt places one point with assigned transform attributes.
func (e *Engine) insertAt(hit geom.SurfaceHit) {
	res := xform.Assign(hit.Normal, e.rng, e.settings.Transform)
	if e.settings.AlignStroke && e.stroke.hasLast && e.stroke.strokeDir != (r3.Vec{}) {
		res.Rotation = xform.EulerAligning(e.stroke.strokeDir)
	}
	e.dataset.Insert(hit, e.settings.ObjectIndex, res.Rotation, res.Scale, res.Offset)
}

// tickScale rescales candidate points by a falloff-weighted amount.
// Shift smooths scale toward the neighborhood average; Meta increases
// random variance instead.
func (e *Engine) tickScale(hit geom.SurfaceHit, mods Modifiers) {
	candidates := e.gather(hit.Position)
	if len(candidates) == 0 {
		return
	}

	var avg r3.Vec
	if mods.Shift {
		var sum r3.Vec
		for _, n := range candidates {
			pt, _ := e.dataset.Get(n.ID)
			sum = r3.Add(sum, pt.Scale)
		}
		avg = r3.Scale(1/float64(len(candidates)), sum)
	}

	for _, n := range candidates {
		pt, ok := e.dataset.Get(n.ID)
		if !ok {
			continue
		}
		w := e.weight(n.DistSq) * e.settings.Strength
		var scaled r3.Vec
		switch {
		case mods.Shift:
			scaled = xform.Smooth(pt.Scale, avg, w)
		case mods.Meta:
			scaled = xform.Randomize(pt.Scale, e.rng, w)
		default:
			factor := 1 + (e.settings.ScaleAmount-1)*w
			scaled = r3.Scale(factor, pt.Scale)
		}
		e.dataset.SetScale(n.ID, scaled)
	}
}

// tickAlign rotates candidate points toward the configured axis,
// falloff-weighted. Shift aligns to each point's own surface normal
// instead; Meta randomizes rotation within the configured ranges.
func (e *Engine) tickAlign(hit geom.SurfaceHit, mods Modifiers) {
	cfg := e.settings.Transform
	for _, n := range e.gather(hit.Position) {
		pt, ok := e.dataset.Get(n.ID)
		if !ok {
			continue
		}
		w := e.weight(n.DistSq) * e.settings.Strength

		var target r3.Vec
		switch {
		case mods.Meta:
			target = r3.Vec{
				X: cfg.MinRotation.X + e.rng.Float64()*(cfg.MaxRotation.X-cfg.MinRotation.X),
				Y: cfg.MinRotation.Y + e.rng.Float64()*(cfg.MaxRotation.Y-cfg.MinRotation.Y),
				Z: cfg.MinRotation.Z + e.rng.Float64()*(cfg.MaxRotation.Z-cfg.MinRotation.Z),
			}
		case mods.Shift:
			target = xform.EulerAligning(pt.Normal)
		default:
			target = xform.EulerAligning(xform.BlendDirection(pt.Normal, cfg.AlignTo, 1))
		}
		e.dataset.SetRotation(n.ID, xform.LerpAngles(pt.Rotation, target, w))
	}
}

// tickMove pulls candidate points toward the tick position and snaps
// them back onto the surface, keeping their ids and attributes.
func (e *Engine) tickMove(hit geom.SurfaceHit) {
	for _, n := range e.gather(hit.Position) {
		pt, ok := e.dataset.Get(n.ID)
		if !ok {
			continue
		}
		w := e.weight(n.DistSq) * e.settings.Strength
		if w <= 0 {
			continue
		}
		toward := r3.Add(r3.Scale(1-w, pt.Position), r3.Scale(w, hit.Position))
		snapped, err := e.cache.ClosestPoint(toward)
		if err != nil {
			continue
		}
		e.dataset.Move(n.ID, snapped)
	}
}

// tickID sets candidate points' source-object index to the stroke's
// target id. Meta restricts the tick to a random subset of NumSamples
// candidates.
func (e *Engine) tickID(hit geom.SurfaceHit, mods Modifiers) {
	candidates := e.gather(hit.Position)
	if mods.Meta {
		candidates = e.randomSubset(candidates, e.settings.NumSamples)
	}
	for _, n := range candidates {
		e.dataset.SetObjectIndex(n.ID, e.settings.ObjectIndex)
	}
}

// tickDelete marks candidate points not-alive, logging their prior state
// for in-stroke restore. Meta restricts deletion to a random subset per
// tick. Shift restores the most recently deleted points found among the
// candidates by popping matching undo entries.
func (e *Engine) tickDelete(hit geom.SurfaceHit, mods Modifiers) {
	if mods.Shift {
		e.restoreAround(hit.Position)
		return
	}
	candidates := e.gather(hit.Position)
	if mods.Meta {
		candidates = e.randomSubset(candidates, e.settings.NumSamples)
	}
	for _, n := range candidates {
		if snap, ok := e.dataset.Deactivate(n.ID); ok {
			e.stroke.undo = append(e.stroke.undo, snap)
		}
	}
}

// restoreAround revives logged deletions whose saved position lies
// within the brush radius, most recent first.
func (e *Engine) restoreAround(center r3.Vec) {
	st := e.stroke
	radiusSq := e.settings.Radius * e.settings.Radius
	for i := len(st.undo) - 1; i >= 0; i-- {
		snap := st.undo[i]
		if r3.Norm2(r3.Sub(snap.Position, center)) > radiusSq {
			continue
		}
		if !e.settings.Selection.Matches(snap.ObjectIndex) {
			continue
		}
		if e.dataset.Revive(snap) {
			st.undo = append(st.undo[:i], st.undo[i+1:]...)
		}
	}
}

// randomUnit draws a uniformly distributed unit vector.
func randomUnit(rng *rand.Rand) r3.Vec {
	v := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
	if l := r3.Norm(v); l > 1e-12 {
		return r3.Scale(1/l, v)
	}
	return r3.Vec{Y: 1}
}
