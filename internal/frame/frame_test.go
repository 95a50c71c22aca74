package frame

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"mapworkbench/internal/annotation"
	"mapworkbench/internal/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const localPlan = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"room": "hall"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[200,0],[200,100],[0,100],[0,0]]]}},
    {"type": "Feature", "properties": null,
     "geometry": {"type": "LineString", "coordinates": [[10,10],[190,90]]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Point", "coordinates": [100,50]}}
  ]
}`

const londonBoroughs = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "area"},
     "geometry": {"type": "Polygon", "coordinates": [[[-0.5,51.2],[0.3,51.2],[0.3,51.7],[-0.5,51.7],[-0.5,51.2]]]}}
  ]
}`

// a building footprint in lon/lat, too small to pass the size check
const smallLonLat = `{"type": "Polygon", "coordinates": [[[-0.1,51.5],[-0.099,51.5],[-0.099,51.501],[-0.1,51.5]]]}`

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Kind
	}{
		{"local plan", localPlan, Local},
		{"wgs84 region", londonBoroughs, WGS84},
		{"small lon/lat footprint", smallLonLat, Local},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := Parse([]byte(tt.data))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := Detect(fc); got != tt.want {
				t.Errorf("Detect() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestImportOverride(t *testing.T) {
	res, err := Import([]byte(londonBoroughs), Local)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Kind != Local || res.Detected != WGS84 || res.Frame == nil {
		t.Errorf("Import(Local) = kind %v detected %v frame %v; want forced local frame", res.Kind, res.Detected, res.Frame)
	}

	res, err = Import([]byte(smallLonLat), WGS84)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Kind != WGS84 || res.Frame != nil {
		t.Errorf("Import(WGS84) = kind %v frame %v; want wgs84 without frame", res.Kind, res.Frame)
	}
	if !approx(res.Bounds.West, -0.1, 1e-12) || !approx(res.Bounds.North, 51.501, 1e-12) {
		t.Errorf("WGS84 bounds = %+v", res.Bounds)
	}
}

func TestImportMalformed(t *testing.T) {
	for _, data := range []string{`{"type": "FeatureCollection", "features": [`, `[]`, `{}`} {
		if _, err := Import([]byte(data), Auto); !errors.Is(err, ErrMalformed) {
			t.Errorf("Import(%q) = %v; want ErrMalformed", data, err)
		}
	}
	if _, err := Import([]byte(`{"type":"FeatureCollection","features":[]}`), Auto); !errors.Is(err, ErrEmpty) {
		t.Errorf("Import(empty collection) = %v; want ErrEmpty", err)
	}
}

func TestLocalFrameInitialPlacement(t *testing.T) {
	res, err := Import([]byte(localPlan), Auto)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	f := res.Frame

	want := geo.Extent{MinX: 0, MinY: 0, Width: 200, Height: 100}
	if f.Extent != want {
		t.Errorf("Extent = %+v; want %+v", f.Extent, want)
	}
	if !approx(f.Bounds.Width(), geo.InitialWidth, 1e-15) || !approx(f.Bounds.Height(), geo.InitialWidth/2, 1e-15) {
		t.Errorf("Bounds = %+v; want %v x %v", f.Bounds, geo.InitialWidth, geo.InitialWidth/2)
	}
}

func TestLocalFrameRender(t *testing.T) {
	res, _ := Import([]byte(localPlan), Auto)
	f := res.Frame
	f.Bounds = geo.Bounds{South: 51.5, West: -0.1, North: 51.501, East: -0.098}

	out := f.Render()
	if len(out.Features) != 3 {
		t.Fatalf("Render produced %d features; want 3", len(out.Features))
	}

	poly, ok := out.Features[0].Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("feature 0 is %T; want orb.Polygon", out.Features[0].Geometry)
	}
	sw := poly[0][0]
	ne := poly[0][2]
	if !approx(sw[0], -0.1, 1e-12) || !approx(sw[1], 51.5, 1e-12) {
		t.Errorf("local (0,0) -> %v; want [-0.1 51.5]", sw)
	}
	if !approx(ne[0], -0.098, 1e-12) || !approx(ne[1], 51.501, 1e-12) {
		t.Errorf("local (200,100) -> %v; want [-0.098 51.501]", ne)
	}
	if out.Features[0].Properties["room"] != "hall" || out.Features[0].Properties["stroke"] != PolygonColor {
		t.Errorf("polygon properties = %v", out.Features[0].Properties)
	}
	if out.Features[1].Properties["stroke"] != LineColor {
		t.Errorf("line properties = %v", out.Features[1].Properties)
	}

	pt := out.Features[2].Geometry.(orb.Point)
	c := f.Bounds.Center()
	if !approx(pt[0], c[0], 1e-12) || !approx(pt[1], c[1], 1e-12) {
		t.Errorf("local center -> %v; want %v", pt, c)
	}

	// rotating about the center leaves the center in place
	f.Rotation = 45
	pt = f.Render().Features[2].Geometry.(orb.Point)
	if !approx(pt[0], c[0], 1e-7) || !approx(pt[1], c[1], 1e-7) {
		t.Errorf("rotated center -> %v; want ~%v", pt, c)
	}
}

func TestExportPolygons(t *testing.T) {
	polygons := []*annotation.Polygon{
		{Name: "Kitchen", Area: 12, Unit: annotation.SquareMeters,
			Ring: []orb.Point{{-0.1, 51.5}, {-0.099, 51.5}, {-0.099, 51.501}}},
		{Name: "Too short", Ring: []orb.Point{{0, 0}, {1, 1}}},
	}
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	fc := ExportPolygons("Floor Plan #1", polygons, now)
	if len(fc.Features) != 1 {
		t.Fatalf("exported %d features; want 1", len(fc.Features))
	}

	data, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	f := back.Features[0]
	ring := f.Geometry.(orb.Polygon)[0]
	if len(ring) != 4 || ring[0] != ring[3] {
		t.Errorf("ring = %v; want closed 4-point ring", ring)
	}
	if ring[0] != (orb.Point{-0.1, 51.5}) {
		t.Errorf("first coordinate = %v; want [lng, lat] = [-0.1 51.5]", ring[0])
	}

	props := f.Properties
	if props["name"] != "Kitchen" || props["area"] != 12.0 || props["unit"] != "m²" ||
		props["imageName"] != "Floor Plan #1" || props["exportedAt"] != "2024-05-01T12:30:00.000Z" {
		t.Errorf("properties = %v", props)
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Floor Plan #1", "floor_plan__1_polygons.geojson"},
		{"site.png", "site_png_polygons.geojson"},
		{"ABC", "abc_polygons.geojson"},
	}
	for _, tt := range tests {
		if got := ExportFilename(tt.in); got != tt.want {
			t.Errorf("ExportFilename(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", Auto, false},
		{"AUTO", Auto, false},
		{"wgs84", WGS84, false},
		{" local ", Local, false},
		{"utm", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}
