package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	// MinSpan is the smallest width or height a rectangle may collapse to, in degrees
	MinSpan = 1e-9

	// NudgeStep is the arrow-key move distance in degrees
	NudgeStep = 0.0001

	// InitialWidth is the longitude span given to freshly placed overlays
	InitialWidth = 0.01
)

var ErrInvalidBounds = errors.New("invalid bounds")

// Bounds is an axis-aligned geographic rectangle in degrees.
// A valid rectangle always has West < East and South < North.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// NewBounds builds a rectangle from two opposite corners given in any order
func NewBounds(lat1, lng1, lat2, lng2 float64) Bounds {
	return Bounds{
		South: math.Min(lat1, lat2),
		West:  math.Min(lng1, lng2),
		North: math.Max(lat1, lat2),
		East:  math.Max(lng1, lng2),
	}.Normalize()
}

// FromBound converts an orb bound (x = lng, y = lat)
func FromBound(b orb.Bound) Bounds {
	return NewBounds(b.Min[1], b.Min[0], b.Max[1], b.Max[0])
}

// Bound returns the rectangle as an orb bound with lng on x and lat on y
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

func (b Bounds) Width() float64  { return b.East - b.West }
func (b Bounds) Height() float64 { return b.North - b.South }

// Center returns the geographic midpoint as (lng, lat)
func (b Bounds) Center() orb.Point {
	return orb.Point{(b.West + b.East) / 2, (b.South + b.North) / 2}
}

// AspectRatio is width over height in degrees
func (b Bounds) AspectRatio() float64 {
	return b.Width() / math.Max(b.Height(), MinSpan)
}

// Valid reports whether the rectangle is finite and not inverted
func (b Bounds) Valid() bool {
	for _, v := range []float64{b.South, b.West, b.North, b.East} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.West < b.East && b.South < b.North
}

// Validate returns a descriptive error for an unusable rectangle
func (b Bounds) Validate() error {
	if !b.Valid() {
		return fmt.Errorf("%w: south=%v west=%v north=%v east=%v", ErrInvalidBounds, b.South, b.West, b.North, b.East)
	}
	if b.South < -90 || b.North > 90 {
		return fmt.Errorf("%w: latitude outside [-90, 90]", ErrInvalidBounds)
	}
	return nil
}

// Normalize sorts the edges and widens any span below MinSpan about its midpoint
func (b Bounds) Normalize() Bounds {
	if b.West > b.East {
		b.West, b.East = b.East, b.West
	}
	if b.South > b.North {
		b.South, b.North = b.North, b.South
	}
	if b.East-b.West < MinSpan {
		mid := (b.West + b.East) / 2
		b.West, b.East = mid-MinSpan/2, mid+MinSpan/2
	}
	if b.North-b.South < MinSpan {
		mid := (b.South + b.North) / 2
		b.South, b.North = mid-MinSpan/2, mid+MinSpan/2
	}
	return b
}

// Translate shifts the rectangle without changing its size
func (b Bounds) Translate(dLat, dLng float64) Bounds {
	return Bounds{
		South: b.South + dLat,
		West:  b.West + dLng,
		North: b.North + dLat,
		East:  b.East + dLng,
	}
}

// CenteredAt moves the rectangle so its center is (lat, lng), preserving width and height
func (b Bounds) CenteredAt(lat, lng float64) Bounds {
	c := b.Center()
	return b.Translate(lat-c[1], lng-c[0])
}

// Corners returns the unrotated corners NW, NE, SE, SW as (lng, lat)
func (b Bounds) Corners() [4]orb.Point {
	return [4]orb.Point{
		{b.West, b.North},
		{b.East, b.North},
		{b.East, b.South},
		{b.West, b.South},
	}
}

// EdgeMidpoints returns the unrotated edge midpoints N, E, S, W as (lng, lat)
func (b Bounds) EdgeMidpoints() [4]orb.Point {
	c := b.Center()
	return [4]orb.Point{
		{c[0], b.North},
		{b.East, c[1]},
		{c[0], b.South},
		{b.West, c[1]},
	}
}

// Ring returns the closed outline of the rectangle
func (b Bounds) Ring() orb.Ring {
	c := b.Corners()
	return orb.Ring{c[3], c[2], c[1], c[0], c[3]}
}

// InitialBounds places a new overlay InitialWidth degrees wide at (0, 0).
// The height follows the aspect ratio (width / height); a non-positive ratio is treated as square.
func InitialBounds(aspect float64) Bounds {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}
	h := InitialWidth / aspect
	return Bounds{
		South: -h / 2,
		West:  -InitialWidth / 2,
		North: h / 2,
		East:  InitialWidth / 2,
	}
}
