// Package brush implements the interactive stroke engine that mutates
// the live instance dataset under six modes with modifier-key variants.
package brush

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/tanema/gween/ease"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/scatter/geom"
	"github.com/pthm-cable/scatter/instance"
	"github.com/pthm-cable/scatter/logging"
	"github.com/pthm-cable/scatter/xform"
)

// Mode selects the brush behavior applied per tick.
type Mode int32

const (
	Place Mode = iota
	Spray
	Scale
	Align
	Move
	ID
	Delete
)

func (m Mode) String() string {
	switch m {
	case Place:
		return "place"
	case Spray:
		return "spray"
	case Scale:
		return "scale"
	case Align:
		return "align"
	case Move:
		return "move"
	case ID:
		return "id"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("mode(%d)", int32(m))
	}
}

// Modifiers carries the keyboard state for one tick.
type Modifiers struct {
	Shift bool
	Meta  bool
	Ctrl  bool
}

// Settings configures a stroke. It is captured at BeginStroke; changing
// it mid-stroke has no effect on the active stroke.
type Settings struct {
	Radius      float64 `yaml:"radius"`
	MinDistance float64 `yaml:"min_distance"` // minimum pointer travel between ticks
	Strength    float64 `yaml:"strength"`     // per-tick effect strength in (0, 1]
	NumSamples  int     `yaml:"num_samples"`  // spray inserts / Meta subset size
	Falloff     string  `yaml:"falloff"`      // "linear", "smooth", "sharp", "none"
	ScaleAmount float64 `yaml:"scale_amount"` // Scale mode target multiplier
	Drag        bool    `yaml:"drag"`         // Place repeats while moving
	AlignStroke bool    `yaml:"align_stroke"` // Place aligns rotation to stroke direction
	ObjectIndex int32   `yaml:"object_index"` // source index for new points / ID target
	Seed        int64   `yaml:"seed"`

	Transform xform.Config       `yaml:"transform"`
	Selection instance.Selection `yaml:"-"` // Exclusive Mode id set
}

// DefaultSettings returns a usable brush configuration.
func DefaultSettings() Settings {
	return Settings{
		Radius:      1,
		MinDistance: 0.1,
		Strength:    1,
		NumSamples:  10,
		Falloff:     "linear",
		ScaleAmount: 1.1,
		Transform:   xform.Default(),
	}
}

var (
	// ErrStrokeActive is returned by BeginStroke during an active stroke.
	ErrStrokeActive = errors.New("brush: stroke already active")
	// ErrNoStroke is returned by Tick outside a stroke.
	ErrNoStroke = errors.New("brush: no active stroke")
)

// session is the transient per-stroke state. Its undo log becomes
// unreachable when the stroke ends; restoration is only possible during
// the active stroke.
type session struct {
	undo       []instance.Point // deleted-point snapshots in deletion order
	lastTick   r3.Vec
	hasLast    bool
	strokeDir  r3.Vec
	distance   float64
	ticks      int
	placed     bool
	projWarned bool
}

// Engine drives strokes against one dataset and its mesh cache. The
// engine persists across strokes; a stroke begins on initial contact
// and ends on release, with no nesting.
type Engine struct {
	cache   *geom.Cache
	dataset *instance.Dataset
	rng     *rand.Rand

	mode     Mode
	settings Settings
	falloff  ease.TweenFunc
	stroke   *session
}

// NewEngine creates a brush engine over a dataset and its mesh cache.
func NewEngine(cache *geom.Cache, dataset *instance.Dataset) *Engine {
	return &Engine{cache: cache, dataset: dataset}
}

// Active reports whether a stroke is in progress.
func (e *Engine) Active() bool { return e.stroke != nil }

// BeginStroke starts a stroke with the given mode and settings.
func (e *Engine) BeginStroke(mode Mode, s Settings) error {
	if e.stroke != nil {
		return ErrStrokeActive
	}
	if s.Radius <= 0 {
		return fmt.Errorf("brush: radius must be positive, got %v", s.Radius)
	}
	if s.Strength <= 0 || s.Strength > 1 {
		s.Strength = 1
	}
	e.mode = mode
	e.settings = s
	e.falloff = falloffFunc(s.Falloff)
	e.rng = rand.New(rand.NewSource(s.Seed))
	e.stroke = &session{}
	return nil
}

// EndStroke ends the active stroke and discards its undo log. Deleted
// points remain in the dataset as dead entries until Compact runs.
// Ending without an active stroke is a no-op.
func (e *Engine) EndStroke() {
	if e.stroke == nil {
		return
	}
	logging.Sugar.Debugw("stroke ended",
		"mode", e.mode.String(),
		"ticks", e.stroke.ticks,
		"distance", e.stroke.distance,
	)
	e.stroke = nil
}

// Tick processes one input event at a world position (a viewport
// ray-surface hit resolved by the host). The position is snapped to the
// mesh; ticks closer than MinDistance to the previous one are dropped,
// enforcing even spatial spacing of edits regardless of input rate.
// Each tick's mutations are atomic with respect to the dataset.
func (e *Engine) Tick(p r3.Vec, mods Modifiers) error {
	if e.stroke == nil {
		return ErrNoStroke
	}
	if err := e.cache.InvalidateIfStale(); err != nil {
		e.warnProjection(err)
		return nil
	}
	hit, err := e.cache.ClosestPoint(p)
	if err != nil {
		e.warnProjection(err)
		return nil
	}

	st := e.stroke
	if st.hasLast {
		delta := r3.Sub(hit.Position, st.lastTick)
		dist := r3.Norm(delta)
		if dist < e.settings.MinDistance {
			return nil
		}
		if dist > 0 {
			st.strokeDir = r3.Scale(1/dist, delta)
		}
		st.distance += dist
	}

	switch e.mode {
	case Place:
		e.tickPlace(hit, mods)
	case Spray:
		e.tickSpray(hit)
	case Scale:
		e.tickScale(hit, mods)
	case Align:
		e.tickAlign(hit, mods)
	case Move:
		e.tickMove(hit)
	case ID:
		e.tickID(hit, mods)
	case Delete:
		e.tickDelete(hit, mods)
	}

	st.lastTick = hit.Position
	st.hasLast = true
	st.ticks++
	return nil
}

// warnProjection reports a failed projection once per stroke; every
// affected tick is a no-op.
func (e *Engine) warnProjection(err error) {
	if e.stroke.projWarned {
		return
	}
	e.stroke.projWarned = true
	logging.Sugar.Warnw("brush tick projection failed; stroke is inert",
		"mode", e.mode.String(), "error", err)
}

// gather collects the falloff-weighted candidate set around the tick
// position, honoring the Exclusive Mode selection.
func (e *Engine) gather(center r3.Vec) []instance.Neighbor {
	return e.dataset.QueryRadiusInto(nil, center, e.settings.Radius, e.settings.Selection)
}

// weight evaluates the falloff at a squared distance from the brush
// center: 1 at the center tapering to 0 at the radius edge.
func (e *Engine) weight(distSq float64) float64 {
	if e.falloff == nil {
		return 1
	}
	d := math.Sqrt(distSq)
	w := float64(e.falloff(float32(d), 1, -1, float32(e.settings.Radius)))
	if w < 0 {
		return 0
	}
	return w
}

// falloffFunc maps a config name to an easing curve. "none" disables
// tapering.
func falloffFunc(name string) ease.TweenFunc {
	switch name {
	case "none":
		return nil
	case "smooth":
		return ease.InOutQuad
	case "sharp":
		return ease.InQuad
	default:
		return ease.Linear
	}
}

// randomSubset picks n distinct candidates.
func (e *Engine) randomSubset(src []instance.Neighbor, n int) []instance.Neighbor {
	if n <= 0 || n >= len(src) {
		return src
	}
	picked := make([]instance.Neighbor, 0, n)
	for _, idx := range e.rng.Perm(len(src)) {
		picked = append(picked, src[idx])
		if len(picked) == n {
			break
		}
	}
	return picked
}
