package frame

import (
	"encoding/json"
	"errors"
	"fmt"

	"mapworkbench/internal/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrMalformed   = errors.New("malformed GeoJSON")
	ErrEmpty       = errors.New("GeoJSON has no coordinates")
	ErrUnknownKind = errors.New("unknown coordinate system")
)

// Render colours, as simplestyle properties
const (
	PolygonColor = "#6b7280"
	LineColor    = "#22c55e"
	WGS84Color   = "#0ea5e9"
)

// LocalFrame maps a local-XY collection into a movable geographic rectangle
type LocalFrame struct {
	Collection *geojson.FeatureCollection
	Extent     geo.Extent
	Bounds     geo.Bounds
	Rotation   float64
}

// NewLocalFrame measures the collection and places it InitialWidth degrees
// wide at (0, 0), keeping the extent's aspect ratio
func NewLocalFrame(fc *geojson.FeatureCollection) *LocalFrame {
	ext := geo.ExtentOf(points(fc))
	return &LocalFrame{
		Collection: fc,
		Extent:     ext,
		Bounds:     geo.InitialBounds(ext.AspectRatio()),
	}
}

func (f *LocalFrame) AspectRatio() float64 { return f.Extent.AspectRatio() }

// ToGeo maps one local coordinate to (lng, lat)
func (f *LocalFrame) ToGeo(p orb.Point) orb.Point {
	lat, lng := geo.LocalToGeo(p[0], p[1], f.Extent, f.Bounds, f.Rotation)
	return orb.Point{lng, lat}
}

// Render maps every feature through the frame into a WGS84 collection.
// Original properties are kept and simplestyle stroke/fill are added.
func (f *LocalFrame) Render() *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, src := range f.Collection.Features {
		if src == nil || src.Geometry == nil {
			continue
		}
		g := mapGeometry(src.Geometry, f.ToGeo)
		if g == nil {
			continue
		}

		feat := geojson.NewFeature(g)
		feat.ID = src.ID
		for k, v := range src.Properties {
			feat.Properties[k] = v
		}
		style(feat)
		out.Append(feat)
	}
	return out
}

func style(f *geojson.Feature) {
	switch f.Geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
		f.Properties["stroke"] = PolygonColor
		f.Properties["fill"] = PolygonColor
		f.Properties["fill-opacity"] = 0.2
	case orb.LineString, orb.MultiLineString:
		f.Properties["stroke"] = LineColor
	}
	f.Properties["stroke-width"] = 2
}

func mapPoints(pts []orb.Point, fn func(orb.Point) orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[i] = fn(p)
	}
	return out
}

// mapGeometry rebuilds g with every vertex passed through fn
func mapGeometry(g orb.Geometry, fn func(orb.Point) orb.Point) orb.Geometry {
	switch g := g.(type) {
	case orb.Point:
		return fn(g)
	case orb.MultiPoint:
		return orb.MultiPoint(mapPoints(g, fn))
	case orb.LineString:
		return orb.LineString(mapPoints(g, fn))
	case orb.Ring:
		return orb.Ring(mapPoints(g, fn))
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(g))
		for i, ls := range g {
			out[i] = orb.LineString(mapPoints(ls, fn))
		}
		return out
	case orb.Polygon:
		out := make(orb.Polygon, len(g))
		for i, r := range g {
			out[i] = orb.Ring(mapPoints(r, fn))
		}
		return out
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = mapGeometry(p, fn).(orb.Polygon)
		}
		return out
	case orb.Collection:
		out := make(orb.Collection, 0, len(g))
		for _, c := range g {
			if m := mapGeometry(c, fn); m != nil {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// Result is an imported GeoJSON file
type Result struct {
	// Kind is the coordinate system used; Detected is what the heuristic chose
	Kind       Kind                       `json:"kind"`
	Detected   Kind                       `json:"detected"`
	Collection *geojson.FeatureCollection `json:"-"`
	Bounds     geo.Bounds                 `json:"bounds"`

	// Frame is set only for Local imports
	Frame *LocalFrame `json:"-"`
}

// Parse reads a FeatureCollection, a single Feature or a bare geometry
func Parse(data []byte) (*geojson.FeatureCollection, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return fc, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(f)
		return fc, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(geojson.NewFeature(g.Geometry()))
		return fc, nil
	}
}

// Import parses data and resolves its coordinate system. An explicit kind
// overrides the heuristic; Auto defers to Detect.
func Import(data []byte, kind Kind) (*Result, error) {
	fc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	pts := points(fc)
	if len(pts) == 0 {
		return nil, ErrEmpty
	}

	res := &Result{Detected: Detect(fc), Collection: fc}
	res.Kind = kind
	if kind == Auto || kind == "" {
		res.Kind = res.Detected
	}

	if res.Kind == WGS84 {
		for _, f := range fc.Features {
			if f.Geometry != nil {
				if f.Properties == nil {
					f.Properties = geojson.Properties{}
				}
				if _, ok := f.Properties["stroke"]; !ok {
					f.Properties["stroke"] = WGS84Color
				}
			}
		}
		res.Bounds = geo.FromBound(orb.MultiPoint(pts).Bound())
		return res, nil
	}

	res.Frame = NewLocalFrame(fc)
	res.Bounds = res.Frame.Bounds
	return res, nil
}
