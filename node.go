// Package scatter places and edits instance points across the surface
// of a triangle mesh, producing per-point attribute data for a
// downstream particle-instancing renderer.
//
// The Node type is the host-facing entry point: it binds a shared mesh
// cache, an instance dataset, and a configuration, and exposes the
// sampling, filtering, attribute-pull, and brush-stroke operations the
// host's evaluation and tool layers drive.
package scatter

import (
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/scatter/brush"
	"github.com/pthm-cable/scatter/config"
	"github.com/pthm-cable/scatter/filter"
	"github.com/pthm-cable/scatter/geom"
	"github.com/pthm-cable/scatter/instance"
	"github.com/pthm-cable/scatter/sampler"
	"github.com/pthm-cable/scatter/xform"
)

// Node ties one target mesh to one instance dataset. Multiple nodes
// targeting the same mesh share the underlying cache by identity.
type Node struct {
	handle  *geom.Handle
	dataset *instance.Dataset
	cfg     *config.Config
	engine  *brush.Engine

	texture   filter.TextureEvaluator
	selection instance.Selection

	// sources is the number of attached source objects; sampled points
	// get a random object index in [0, sources).
	sources int32
}

// NewNode acquires (or shares) the mesh cache for the source and binds
// a fresh dataset to it.
func NewNode(src geom.MeshSource, cfg *config.Config) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	handle, err := geom.Acquire(src)
	if err != nil {
		return nil, err
	}
	ds := instance.New()
	return &Node{
		handle:  handle,
		dataset: ds,
		cfg:     cfg,
		engine:  brush.NewEngine(handle.Cache(), ds),
		sources: 1,
	}, nil
}

// Release drops the node's reference to the shared mesh cache. The node
// must not be used afterwards.
func (n *Node) Release() { n.handle.Release() }

// Dataset exposes the live point store.
func (n *Node) Dataset() *instance.Dataset { return n.dataset }

// Cache exposes the shared mesh cache.
func (n *Node) Cache() *geom.Cache { return n.handle.Cache() }

// SetTextureEvaluator wires the host's shading collaborator consumed by
// the texture filter.
func (n *Node) SetTextureEvaluator(ev filter.TextureEvaluator) { n.texture = ev }

// SetSourceCount declares how many source objects are attached to the
// downstream instancer; sampling distributes object indices across them.
func (n *Node) SetSourceCount(count int32) {
	if count < 1 {
		count = 1
	}
	n.sources = count
}

// SetSelection sets the Exclusive Mode id set. A nil selection clears
// the restriction.
func (n *Node) SetSelection(sel instance.Selection) { n.selection = sel }

// Sample replaces the dataset with a freshly sampled and filtered point
// set and returns the number of points placed. A Poisson-disk run that
// hit its rejection cap still places its partial batch; the returned
// error then wraps sampler.ErrRejectionCap and the caller may treat it
// as a warning.
func (n *Node) Sample() (int, error) {
	scfg, err := n.cfg.Sampling.SamplerConfig()
	if err != nil {
		return 0, err
	}

	batch, err := sampler.Sample(n.Cache(), scfg)
	if err != nil && !errors.Is(err, sampler.ErrRejectionCap) {
		return 0, err
	}
	warning := err

	batch = filter.Apply(batch, n.cfg.Filters, n.filterEnv())

	rng := rand.New(rand.NewSource(scfg.Seed))
	xcfg := n.cfg.Transform.XformConfig()
	n.dataset.Clear()
	for _, hit := range batch {
		res := xform.Assign(hit.Normal, rng, xcfg)
		n.dataset.Insert(hit, rng.Int31n(n.sources), res.Rotation, res.Scale, res.Offset)
	}
	return len(batch), warning
}

// Refilter applies the configured filters to the existing dataset,
// removing points that no longer pass. Returns the number removed.
func (n *Node) Refilter() int {
	var alive []instance.Point
	n.dataset.ForEach(func(p instance.Point) {
		if p.Alive {
			alive = append(alive, p)
		}
	})

	batch := make(sampler.Batch, len(alive))
	for i, p := range alive {
		batch[i] = geom.SurfaceHit{Position: p.Position, Normal: p.Normal, U: p.U, V: p.V, Face: p.Face}
	}
	kept := filter.Apply(batch, n.cfg.Filters, n.filterEnv())

	// kept is an order-preserving subsequence of batch, so a single
	// two-pointer walk identifies the dropped points exactly.
	removed := 0
	ki := 0
	for i, p := range alive {
		if ki < len(kept) && kept[ki] == batch[i] {
			ki++
			continue
		}
		if _, ok := n.dataset.Deactivate(p.ID); ok {
			removed++
		}
	}
	if !n.engine.Active() {
		n.dataset.Compact()
	}
	return removed
}

// InstanceAttribute assembles the parallel attribute arrays consumed by
// the downstream instancer.
func (n *Node) InstanceAttribute() instance.InstanceAttribute {
	return n.dataset.InstanceAttribute()
}

// BeginStroke starts a brush stroke with the node's configured settings
// and active selection.
func (n *Node) BeginStroke(mode brush.Mode) error {
	settings := n.cfg.Brush.Settings(n.cfg.Transform)
	settings.Selection = n.selection
	return n.engine.BeginStroke(mode, settings)
}

// Tick forwards one input event to the active stroke.
func (n *Node) Tick(p r3.Vec, mods brush.Modifiers) error {
	return n.engine.Tick(p, mods)
}

// EndStroke ends the active stroke and reclaims points deleted by it.
func (n *Node) EndStroke() {
	n.engine.EndStroke()
	n.dataset.Compact()
}

func (n *Node) filterEnv() filter.Env {
	return filter.Env{Bounds: n.Cache().Bounds(), Texture: n.texture}
}
