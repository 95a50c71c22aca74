package handle

import (
	"errors"
	"fmt"

	"mapworkbench/internal/geo"

	"github.com/paulmach/orb"
)

var (
	ErrGestureActive = errors.New("another handle is already being dragged")
	ErrNoGesture     = errors.New("no handle is being dragged")
	ErrUnknownHandle = errors.New("unknown handle")
)

// Target is the render layer the handles manipulate: an image overlay or a
// local-XY GeoJSON frame. The stored rectangle is never rotated; rotation is
// kept alongside it.
type Target interface {
	Bounds() geo.Bounds
	SetBounds(geo.Bounds)
	Rotation() float64
	SetRotation(float64)
	AspectRatio() float64
}

// State of the per-gesture state machine
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Positions holds the current handle locations as (lng, lat)
type Positions struct {
	Corners [4]orb.Point `json:"corners"` // NW, NE, SE, SW
	Edges   [4]orb.Point `json:"edges"`   // N, E, S, W
	Move    orb.Point    `json:"move"`
	Rotate  orb.Point    `json:"rotate"`
}

// At returns the position of a single handle
func (p Positions) At(id ID) orb.Point {
	switch id.Kind() {
	case KindCorner:
		return p.Corners[id]
	case KindEdge:
		return p.Edges[id-N]
	case KindMove:
		return p.Move
	default:
		return p.Rotate
	}
}

// snapshot is the gesture's start state; every drag tick is computed from it
type snapshot struct {
	handle   ID
	bounds   geo.Bounds
	center   orb.Point
	rotation float64
	pointer  orb.Point
	angle    float64
}

// Controller keeps the ten handles in sync with a Target and turns pointer
// gestures into new bounds and rotation. It is not safe for concurrent use;
// the owning editor session serialises access.
type Controller struct {
	target    Target
	state     State
	snap      *snapshot
	positions Positions
	panning   bool
}

// NewController attaches handles to a target
func NewController(t Target) *Controller {
	c := &Controller{target: t, panning: true}
	c.Refresh()
	return c
}

// Refresh recomputes every handle position from the target's current state
func (c *Controller) Refresh() {
	b := c.target.Bounds()
	rot := c.target.Rotation()

	corners, edges := geo.RotatedCorners(b, rot)
	c.positions = Positions{
		Corners: corners,
		Edges:   edges,
		Move:    b.Center(),
		Rotate:  geo.RotateHandlePosition(b, rot),
	}
}

func (c *Controller) Positions() Positions { return c.positions }
func (c *Controller) State() State         { return c.state }

// PanningEnabled is false for the duration of a drag
func (c *Controller) PanningEnabled() bool { return c.panning }

// Active returns the handle being dragged, if any
func (c *Controller) Active() (ID, bool) {
	if c.snap == nil {
		return 0, false
	}
	return c.snap.handle, true
}

// DragStart snapshots the target and disables map panning
func (c *Controller) DragStart(id ID, pointer orb.Point) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, int(id))
	}
	if c.state == Dragging {
		return ErrGestureActive
	}

	b := c.target.Bounds()
	c.snap = &snapshot{
		handle:   id,
		bounds:   b,
		center:   b.Center(),
		rotation: c.target.Rotation(),
		pointer:  pointer,
	}
	if id == Rotate {
		c.snap.angle = geo.PointerAngle(pointer, b)
	}

	c.state = Dragging
	c.panning = false
	return nil
}

// Drag recomputes the target from the start snapshot and the current pointer
func (c *Controller) Drag(pointer orb.Point) error {
	if c.state != Dragging {
		return ErrNoGesture
	}
	s := c.snap

	switch s.handle.Kind() {
	case KindCorner:
		p := geo.Unrotate(pointer, s.bounds, s.rotation)
		b := geo.ResizeFromCorner(s.bounds, geo.Corner(s.handle), p, c.target.AspectRatio())
		c.target.SetBounds(geo.Recenter(b, s.center))
	case KindEdge:
		p := geo.Unrotate(pointer, s.bounds, s.rotation)
		b := geo.ResizeFromEdge(s.bounds, geo.Edge(s.handle-N), p)
		c.target.SetBounds(geo.Recenter(b, s.center))
	case KindMove:
		c.target.SetBounds(geo.Move(s.bounds, s.pointer, pointer))
	case KindRotate:
		delta := geo.PointerAngle(pointer, s.bounds) - s.angle
		c.target.SetRotation(geo.NormalizeDegrees(s.rotation + delta))
	}

	c.Refresh()
	return nil
}

// DragEnd commits whatever the last drag tick produced; there is no cancel
func (c *Controller) DragEnd() error {
	if c.state != Dragging {
		return ErrNoGesture
	}
	c.snap = nil
	c.state = Idle
	c.panning = true
	c.Refresh()
	return nil
}

// Nudge moves the target one step with the keyboard
func (c *Controller) Nudge(dir geo.Direction) error {
	if c.state == Dragging {
		return ErrGestureActive
	}
	c.target.SetBounds(geo.Nudge(c.target.Bounds(), dir))
	c.Refresh()
	return nil
}

// FitCorners stores the rectangle whose rotated corners are the given
// points, keeping the current rotation
func (c *Controller) FitCorners(corners [4]orb.Point) error {
	if c.state == Dragging {
		return ErrGestureActive
	}
	b := geo.BoundsFromHandles(corners, c.target.Rotation())
	if !b.Valid() {
		return fmt.Errorf("corners do not form a rectangle: %+v", b)
	}
	c.target.SetBounds(b)
	c.Refresh()
	return nil
}
