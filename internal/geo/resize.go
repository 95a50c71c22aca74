package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// Corner indexes the rectangle corners in handle order
type Corner int

const (
	NorthWest Corner = iota
	NorthEast
	SouthEast
	SouthWest
)

func (c Corner) north() bool { return c == NorthWest || c == NorthEast }
func (c Corner) west() bool  { return c == NorthWest || c == SouthWest }

// Edge indexes the rectangle edges in handle order
type Edge int

const (
	North Edge = iota
	East
	South
	West
)

// Direction is an arrow-key nudge direction
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

var ErrUnknownDirection = errors.New("unknown direction")

// ParseDirection accepts up/down/left/right and the ArrowUp style key names
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimPrefix(s, "Arrow")) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownDirection, s)
}

// ResizeFromCorner moves the two edges meeting at the dragged corner to the
// pointer (lng, lat) and then grows the short dimension on that corner's side
// until width/height equals aspect. The opposite edges stay where they were.
func ResizeFromCorner(start Bounds, corner Corner, p orb.Point, aspect float64) Bounds {
	b := start
	lng, lat := p[0], p[1]

	if corner.north() {
		b.North = math.Max(lat, start.South+MinSpan)
	} else {
		b.South = math.Min(lat, start.North-MinSpan)
	}
	if corner.west() {
		b.West = math.Min(lng, start.East-MinSpan)
	} else {
		b.East = math.Max(lng, start.West+MinSpan)
	}

	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		return b
	}

	w, h := b.Width(), b.Height()
	if w/h > aspect {
		dh := w / aspect
		if corner.north() {
			b.North = b.South + dh
		} else {
			b.South = b.North - dh
		}
	} else {
		dw := h * aspect
		if corner.west() {
			b.West = b.East - dw
		} else {
			b.East = b.West + dw
		}
	}
	return b
}

// ResizeFromEdge moves only the dragged edge to the pointer; aspect is not enforced
func ResizeFromEdge(start Bounds, edge Edge, p orb.Point) Bounds {
	b := start
	lng, lat := p[0], p[1]

	switch edge {
	case North:
		b.North = math.Max(lat, start.South+MinSpan)
	case South:
		b.South = math.Min(lat, start.North-MinSpan)
	case East:
		b.East = math.Max(lng, start.West+MinSpan)
	case West:
		b.West = math.Min(lng, start.East-MinSpan)
	}
	return b
}

// Recenter keeps the size of b and moves its center onto center (lng, lat)
func Recenter(b Bounds, center orb.Point) Bounds {
	return b.CenteredAt(center[1], center[0])
}

// Move translates start by the pointer offset between from and to
func Move(start Bounds, from, to orb.Point) Bounds {
	return start.Translate(to[1]-from[1], to[0]-from[0])
}

// Nudge shifts the rectangle one NudgeStep in the given direction
func Nudge(b Bounds, dir Direction) Bounds {
	switch dir {
	case Up:
		return b.Translate(NudgeStep, 0)
	case Down:
		return b.Translate(-NudgeStep, 0)
	case Left:
		return b.Translate(0, -NudgeStep)
	case Right:
		return b.Translate(0, NudgeStep)
	}
	return b
}
