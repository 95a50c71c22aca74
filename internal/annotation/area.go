package annotation

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	// MetersPerDegree approximates one degree of arc at the equator
	MetersPerDegree = 111320.0

	// EarthRadiusMeters is the mean radius used for geodesic areas
	EarthRadiusMeters = 6371008.8

	hectare         = 10_000.0
	squareKilometer = 1_000_000.0
)

// Unit of a displayed area
type Unit string

const (
	SquareMeters     Unit = "m²"
	Hectares         Unit = "ha"
	SquareKilometers Unit = "km²"
)

// closed returns the ring with its first vertex repeated at the end
func closed(ring []orb.Point) orb.Ring {
	r := make(orb.Ring, len(ring), len(ring)+1)
	copy(r, ring)
	if len(r) > 0 && r[0] != r[len(r)-1] {
		r = append(r, r[0])
	}
	return r
}

// PlanarArea is the shoelace area of a (lng, lat) ring converted to square
// meters with a flat MetersPerDegree scale. It is a rough estimate that
// ignores convergence of meridians.
func PlanarArea(ring []orb.Point) float64 {
	if len(ring) < 3 {
		return 0
	}
	return math.Abs(planar.Area(closed(ring))) * MetersPerDegree * MetersPerDegree
}

// GeodesicArea is the area of the ring on the sphere in square meters
func GeodesicArea(ring []orb.Point) float64 {
	r := closed(ring)
	if len(r) < 4 {
		return 0
	}

	pts := make([]s2.Point, 0, len(r)-1)
	for _, p := range r[:len(r)-1] {
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(p[1], p[0])))
	}
	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop.Area() * EarthRadiusMeters * EarthRadiusMeters
}

// Measure buckets square meters into the unit used for display:
// m² below a hectare, hectares below ten square kilometers, km² above.
func Measure(m2 float64) (float64, Unit) {
	switch {
	case m2 < 10_000:
		return math.Round(m2), SquareMeters
	case m2 < 10_000_000:
		return math.Round(m2/hectare*100) / 100, Hectares
	default:
		return math.Round(m2/squareKilometer*100) / 100, SquareKilometers
	}
}

// MeasureRing is Measure(PlanarArea(ring))
func MeasureRing(ring []orb.Point) (float64, Unit) {
	return Measure(PlanarArea(ring))
}
