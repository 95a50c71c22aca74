package annotation

import (
	"errors"

	"github.com/paulmach/orb"
)

var (
	ErrTooFewPoints = errors.New("Polygon needs at least 3 points. Keep clicking to add more points.")
	ErrNotDrawing   = errors.New("not drawing a polygon")
	ErrDrawing      = errors.New("already drawing a polygon")
)

// DrawState of the polygon drawing gesture
type DrawState int

const (
	DrawIdle DrawState = iota
	DrawActive
)

func (s DrawState) String() string {
	if s == DrawActive {
		return "drawing"
	}
	return "idle"
}

// Drawing accumulates clicked vertices until a double-click commits them
type Drawing struct {
	state  DrawState
	points []orb.Point
}

func (d *Drawing) State() DrawState { return d.state }

// Preview returns a copy of the in-progress vertices
func (d *Drawing) Preview() []orb.Point {
	return append([]orb.Point(nil), d.points...)
}

// Start enters drawing mode with an empty ring
func (d *Drawing) Start() error {
	if d.state == DrawActive {
		return ErrDrawing
	}
	d.state = DrawActive
	d.points = d.points[:0]
	return nil
}

// Click appends a vertex (lng, lat) and returns the vertex count
func (d *Drawing) Click(p orb.Point) (int, error) {
	if d.state != DrawActive {
		return 0, ErrNotDrawing
	}
	d.points = append(d.points, p)
	return len(d.points), nil
}

// DoubleClick commits the ring when it has at least three vertices and
// leaves drawing mode. With fewer it returns ErrTooFewPoints and keeps drawing.
func (d *Drawing) DoubleClick() ([]orb.Point, error) {
	if d.state != DrawActive {
		return nil, ErrNotDrawing
	}
	if len(d.points) < 3 {
		return nil, ErrTooFewPoints
	}

	ring := d.Preview()
	d.points = d.points[:0]
	d.state = DrawIdle
	return ring, nil
}

// Cancel abandons the ring in progress
func (d *Drawing) Cancel() {
	d.points = d.points[:0]
	d.state = DrawIdle
}
