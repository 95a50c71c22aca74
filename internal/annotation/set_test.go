package annotation

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

type palette map[string]string

func (p palette) ColorFor(category string) string {
	if c, ok := p[category]; ok {
		return c
	}
	return DefaultColor
}

func square(x0, y0, size float64) []orb.Point {
	return []orb.Point{{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}}
}

func TestSetAddAndDelete(t *testing.T) {
	var s Set
	a := s.Add(square(0, 0, 0.0001))
	b := s.Add(square(1, 1, 0.0002))
	c := s.Add(square(2, 2, 0.0003))

	if a.Name != "Polygon 1" || b.Name != "Polygon 2" || c.Name != "Polygon 3" {
		t.Fatalf("default names = %q, %q, %q", a.Name, b.Name, c.Name)
	}
	if a.Color != DefaultColor {
		t.Errorf("new polygon colour = %q; want %q", a.Color, DefaultColor)
	}

	if err := (NameRequest{Name: "Kitchen", Area: b.Area}).Apply(b, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if err := s.Delete(a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len after delete = %d; want 2", s.Len())
	}
	if b.Name != "Kitchen" {
		t.Errorf("named polygon renamed to %q", b.Name)
	}
	if c.Name != "Polygon 2" {
		t.Errorf("unnamed polygon after delete = %q; want Polygon 2", c.Name)
	}

	if err := s.Delete(a.ID); !errors.Is(err, ErrPolygonNotFound) {
		t.Errorf("Delete twice = %v; want ErrPolygonNotFound", err)
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d", s.Len())
	}
}

func TestDeleteKeepsOverriddenArea(t *testing.T) {
	var s Set
	a := s.Add(square(0, 0, 0.001))
	b := s.Add(square(0, 0, 0.001))

	if err := (NameRequest{Name: "Hall", Area: 99}).Apply(b, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s.Delete(a.ID)

	if b.Area != 99 || !b.AreaOverridden {
		t.Errorf("overridden area after delete = %v (overridden=%v); want 99", b.Area, b.AreaOverridden)
	}
}

func TestNameRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  NameRequest
		want error
	}{
		{"free text name", NameRequest{Name: "Office", Area: 12}, nil},
		{"category and type", NameRequest{RoomCategory: "Bedroom", RoomType: "Double", Area: 12}, nil},
		{"category only", NameRequest{RoomCategory: "Bedroom", Area: 12}, ErrNameRequired},
		{"nothing", NameRequest{Area: 12}, ErrNameRequired},
		{"blank name", NameRequest{Name: "   ", Area: 12}, ErrNameRequired},
		{"area too small", NameRequest{Name: "Cupboard", Area: 0.001}, ErrAreaTooSmall},
		{"NaN area", NameRequest{Name: "Cupboard", Area: math.NaN()}, ErrAreaTooSmall},
		{"infinite area", NameRequest{Name: "Cupboard", Area: math.Inf(1)}, ErrAreaTooSmall},
		{"minimum area", NameRequest{Name: "Cupboard", Area: MinArea}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate(%+v) = %v; want %v", tt.req, err, tt.want)
			}
		})
	}
}

func TestNameRequestApply(t *testing.T) {
	var s Set
	p := s.Add(square(0, 0, 0.0001))
	colors := palette{"Bedroom": "#112233"}

	req := NameRequest{RoomCategory: "Bedroom", RoomType: "Double", Area: p.Area}
	if err := req.Apply(p, colors); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if p.Name != "Bedroom" {
		t.Errorf("name = %q; want category fallback Bedroom", p.Name)
	}
	if p.Color != "#112233" {
		t.Errorf("colour = %q; want #112233", p.Color)
	}
	if p.AreaOverridden {
		t.Error("unchanged area marked as overridden")
	}

	label := p.Label()
	for _, want := range []string{"Bedroom", "Double", "Category: Bedroom", "Area: "} {
		if !strings.Contains(label, want) {
			t.Errorf("Label() = %q; missing %q", label, want)
		}
	}

	other := s.Add(square(1, 1, 0.0001))
	NameRequest{RoomCategory: "Garage", RoomType: "Single", Area: 5}.Apply(other, colors)
	if other.Color != DefaultColor {
		t.Errorf("unmapped category colour = %q; want %q", other.Color, DefaultColor)
	}
}

func TestRestore(t *testing.T) {
	ring := square(0, 0, 0.0001)
	area, unit := MeasureRing(ring)

	var s Set
	s.Restore([]*Polygon{
		{Ring: ring, Name: "Polygon 1", Area: area, Unit: unit},
		{Ring: ring, Name: "Lounge", Area: 40, Unit: SquareMeters, RoomCategory: "Living"},
	}, palette{"Living": "#00ff00"})

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("restored %d polygons; want 2", len(list))
	}
	if list[0].Named || list[0].AreaOverridden || list[0].ID == "" {
		t.Errorf("placeholder polygon restored as %+v", list[0])
	}
	if !list[1].Named || !list[1].AreaOverridden || list[1].Color != "#00ff00" {
		t.Errorf("named polygon restored as %+v", list[1])
	}
}

func TestPolygonGeodesicArea(t *testing.T) {
	ring := square(0, 0, 0.001)
	planarArea := PlanarArea(ring)

	var s Set
	added := s.Add(ring)
	restored := []*Polygon{{Ring: ring, Name: "Lounge", Area: 40, Unit: SquareMeters}}
	s.Restore(append([]*Polygon{added}, restored...), nil)

	for _, p := range s.List() {
		if p.GeodesicArea <= 0 || math.Abs(p.GeodesicArea-planarArea)/planarArea > 0.01 {
			t.Errorf("%s GeodesicArea = %v; want within 1%% of %v", p.Name, p.GeodesicArea, planarArea)
		}
	}
	// an overridden display area leaves the geodesic figure alone
	if p := s.List()[1]; !p.AreaOverridden || p.Area != 40 {
		t.Errorf("restored polygon = %+v; want overridden area 40", p)
	}
}
