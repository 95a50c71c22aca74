package frame

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Kind is the coordinate system of an imported GeoJSON file
type Kind string

const (
	Auto  Kind = "auto"
	WGS84 Kind = "wgs84"
	Local Kind = "local"
)

const (
	// MaxSamples caps how many coordinates the range check inspects
	MaxSamples = 500

	// MinGeographicSpan is the bbox size, in degrees, below which a
	// lon/lat-looking file is still treated as local coordinates
	MinGeographicSpan = 0.5
)

// ParseKind reads the user's coordinate system choice; empty means Auto
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return Auto, nil
	case Auto, WGS84, Local:
		return k, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKind, s)
}

// eachPoint calls fn for every vertex of g until fn returns false
func eachPoint(g orb.Geometry, fn func(orb.Point) bool) bool {
	switch g := g.(type) {
	case orb.Point:
		return fn(g)
	case orb.MultiPoint:
		for _, p := range g {
			if !fn(p) {
				return false
			}
		}
	case orb.LineString:
		return eachPoint(orb.MultiPoint(g), fn)
	case orb.Ring:
		return eachPoint(orb.MultiPoint(g), fn)
	case orb.MultiLineString:
		for _, ls := range g {
			if !eachPoint(ls, fn) {
				return false
			}
		}
	case orb.Polygon:
		for _, r := range g {
			if !eachPoint(r, fn) {
				return false
			}
		}
	case orb.MultiPolygon:
		for _, p := range g {
			if !eachPoint(p, fn) {
				return false
			}
		}
	case orb.Collection:
		for _, c := range g {
			if !eachPoint(c, fn) {
				return false
			}
		}
	}
	return true
}

func forEachPoint(fc *geojson.FeatureCollection, fn func(orb.Point) bool) {
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if !eachPoint(f.Geometry, fn) {
			return
		}
	}
}

// points collects every vertex of the collection
func points(fc *geojson.FeatureCollection) []orb.Point {
	var pts []orb.Point
	forEachPoint(fc, func(p orb.Point) bool {
		pts = append(pts, p)
		return true
	})
	return pts
}

// Detect classifies a collection as WGS84 when the sampled coordinates all
// fall within lon/lat range and the bbox spans at least MinGeographicSpan
// degrees in some dimension. Everything else is Local.
func Detect(fc *geojson.FeatureCollection) Kind {
	looksLonLat := true
	samples := 0
	forEachPoint(fc, func(p orb.Point) bool {
		samples++
		if p[0] < -180 || p[0] > 180 || p[1] < -90 || p[1] > 90 {
			looksLonLat = false
			return false
		}
		return samples < MaxSamples
	})
	if samples == 0 || !looksLonLat {
		return Local
	}

	b := orb.MultiPoint(points(fc)).Bound()
	if b.Max[0]-b.Min[0] >= MinGeographicSpan || b.Max[1]-b.Min[1] >= MinGeographicSpan {
		return WGS84
	}
	return Local
}
