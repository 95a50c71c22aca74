package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// RotateHandleOffset places the rotate handle this fraction of the
// center-to-top distance beyond the top edge
const RotateHandleOffset = 0.25

// Extent is the bounding box of a local coordinate space.
// Width and Height are never below MinSpan so normalisation cannot divide by zero.
type Extent struct {
	MinX   float64 `json:"minX"`
	MinY   float64 `json:"minY"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ExtentOf measures the local extent of a set of points
func ExtentOf(points []orb.Point) Extent {
	if len(points) == 0 {
		return Extent{Width: 1, Height: 1}
	}
	b := orb.MultiPoint(points).Bound()
	return Extent{
		MinX:   b.Min[0],
		MinY:   b.Min[1],
		Width:  math.Max(b.Max[0]-b.Min[0], MinSpan),
		Height: math.Max(b.Max[1]-b.Min[1], MinSpan),
	}
}

// AspectRatio is width over height of the extent
func (e Extent) AspectRatio() float64 {
	return e.Width / e.Height
}

// toScreen projects (lng, lat) into a Web Mercator plane with y growing
// downward, so positive angles rotate clockwise like CSS rotate()
func toScreen(p orb.Point) orb.Point {
	m := project.WGS84.ToMercator(p)
	return orb.Point{m[0], -m[1]}
}

func fromScreen(p orb.Point) orb.Point {
	return project.Mercator.ToWGS84(orb.Point{p[0], -p[1]})
}

func rotate(p, center orb.Point, rad float64) orb.Point {
	if rad == 0 {
		return p
	}
	sin, cos := math.Sincos(rad)
	dx, dy := p[0]-center[0], p[1]-center[1]
	return orb.Point{
		center[0] + dx*cos - dy*sin,
		center[1] + dx*sin + dy*cos,
	}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// NormalizeDegrees folds an angle into (-180, 180]
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// screenCenter is the midpoint of the rectangle's projected corners.
// Both the forward and inverse rotations pivot on it.
func screenCenter(b Bounds) orb.Point {
	nw := toScreen(orb.Point{b.West, b.North})
	se := toScreen(orb.Point{b.East, b.South})
	return orb.Point{(nw[0] + se[0]) / 2, (nw[1] + se[1]) / 2}
}

// RotateAbout rotates a geographic point (lng, lat) about the rectangle's
// screen-space center by deg degrees
func RotateAbout(p orb.Point, b Bounds, deg float64) orb.Point {
	if deg == 0 {
		return p
	}
	return fromScreen(rotate(toScreen(p), screenCenter(b), radians(deg)))
}

// LocalToGeo maps a local coordinate into the rectangle, then applies the rotation
func LocalToGeo(x, y float64, ext Extent, b Bounds, rotationDeg float64) (lat, lng float64) {
	w := math.Max(ext.Width, MinSpan)
	h := math.Max(ext.Height, MinSpan)
	u := (x - ext.MinX) / w
	v := (y - ext.MinY) / h

	p := orb.Point{
		b.West + u*(b.East-b.West),
		b.South + v*(b.North-b.South),
	}
	p = RotateAbout(p, b, rotationDeg)
	return p[1], p[0]
}

// RotatedCorners returns the handle positions of a rotated rectangle:
// corners NW, NE, SE, SW and edge midpoints N, E, S, W, all as (lng, lat)
func RotatedCorners(b Bounds, rotationDeg float64) (corners [4]orb.Point, edges [4]orb.Point) {
	corners = b.Corners()
	edges = b.EdgeMidpoints()
	if rotationDeg == 0 {
		return corners, edges
	}

	c := screenCenter(b)
	rad := radians(rotationDeg)
	for i := range corners {
		corners[i] = fromScreen(rotate(toScreen(corners[i]), c, rad))
		edges[i] = fromScreen(rotate(toScreen(edges[i]), c, rad))
	}
	return corners, edges
}

// BoundsFromHandles recovers the stored (unrotated) rectangle from four
// rotated corner positions by rotating them back about their centroid
func BoundsFromHandles(corners [4]orb.Point, rotationDeg float64) Bounds {
	var pts [4]orb.Point
	var centroid orb.Point
	for i, p := range corners {
		pts[i] = toScreen(p)
		centroid[0] += pts[i][0] / 4
		centroid[1] += pts[i][1] / 4
	}

	rad := radians(-rotationDeg)
	bound := orb.Bound{Min: orb.Point{math.Inf(1), math.Inf(1)}, Max: orb.Point{math.Inf(-1), math.Inf(-1)}}
	for _, p := range pts {
		bound = bound.Extend(fromScreen(rotate(p, centroid, rad)))
	}
	return FromBound(bound)
}

// Unrotate maps a pointer position on a rotated rectangle back into the
// rectangle's unrotated frame
func Unrotate(p orb.Point, b Bounds, rotationDeg float64) orb.Point {
	return RotateAbout(p, b, -rotationDeg)
}

// RotateHandlePosition places the rotate handle on the rotated "up" axis,
// just beyond the top edge, so it orbits the rectangle as it turns
func RotateHandlePosition(b Bounds, rotationDeg float64) orb.Point {
	c := screenCenter(b)
	top := toScreen(orb.Point{b.Center()[0], b.North})
	up := orb.Point{top[0] - c[0], top[1] - c[1]}

	scale := 1 + RotateHandleOffset
	tip := orb.Point{c[0] + up[0]*scale, c[1] + up[1]*scale}
	return fromScreen(rotate(tip, c, radians(rotationDeg)))
}

// PointerAngle is the screen-space angle, in degrees, of p around the rectangle's center
func PointerAngle(p orb.Point, b Bounds) float64 {
	c := screenCenter(b)
	s := toScreen(p)
	return degrees(math.Atan2(s[1]-c[1], s[0]-c[0]))
}
