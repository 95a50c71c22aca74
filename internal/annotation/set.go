package annotation

import (
	"errors"
	"fmt"
	"strings"

	"mapworkbench/internal/util"

	"github.com/paulmach/orb"
)

var ErrPolygonNotFound = errors.New("polygon not found")

// Set is the ordered list of polygons drawn on one overlay
type Set struct {
	polygons []*Polygon
}

// defaultName is the placeholder for the polygon at zero-based index i
func defaultName(i int) string {
	return fmt.Sprintf("Polygon %d", i+1)
}

// Add commits a drawn ring as a new unnamed polygon
func (s *Set) Add(ring []orb.Point) *Polygon {
	p := &Polygon{
		ID:    util.ShortUUID(),
		Ring:  append([]orb.Point(nil), ring...),
		Name:  defaultName(len(s.polygons)),
		Color: DefaultColor,
	}
	p.Recompute()
	s.polygons = append(s.polygons, p)
	return p
}

// Get finds a polygon by id
func (s *Set) Get(id string) (*Polygon, error) {
	for _, p := range s.polygons {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPolygonNotFound, id)
}

// Last returns the most recently added polygon
func (s *Set) Last() (*Polygon, bool) {
	if len(s.polygons) == 0 {
		return nil, false
	}
	return s.polygons[len(s.polygons)-1], true
}

// Delete removes a polygon by id, then renumbers unnamed polygons and
// recomputes areas that were not overridden
func (s *Set) Delete(id string) error {
	for i, p := range s.polygons {
		if p.ID != id {
			continue
		}
		s.polygons = append(s.polygons[:i], s.polygons[i+1:]...)
		s.reindex()
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPolygonNotFound, id)
}

func (s *Set) reindex() {
	for i, p := range s.polygons {
		if !p.Named {
			p.Name = defaultName(i)
		}
		p.Recompute()
	}
}

// Clear removes every polygon
func (s *Set) Clear() {
	s.polygons = nil
}

// List returns the polygons in drawing order
func (s *Set) List() []*Polygon {
	return append([]*Polygon(nil), s.polygons...)
}

func (s *Set) Len() int { return len(s.polygons) }

// Restore replaces the set with previously saved polygons. Polygons whose
// name matches the placeholder pattern are treated as unnamed.
func (s *Set) Restore(polygons []*Polygon, palette Palette) {
	s.polygons = s.polygons[:0]
	for i, p := range polygons {
		if p.ID == "" {
			p.ID = util.ShortUUID()
		}
		if p.Name == "" {
			p.Name = defaultName(i)
		}
		p.Named = p.Name != defaultName(i) || p.RoomCategory != ""
		if p.Unit != "" {
			computed, unit := MeasureRing(p.Ring)
			p.AreaOverridden = computed != p.Area || unit != p.Unit
		}
		p.Recompute()
		p.Color = DefaultColor
		if p.RoomCategory != "" && palette != nil {
			p.Color = palette.ColorFor(p.RoomCategory)
		}
		s.polygons = append(s.polygons, p)
	}
}

// TotalArea sums displayed areas when every polygon shares one unit
func (s *Set) TotalArea() (float64, Unit, bool) {
	if len(s.polygons) == 0 {
		return 0, SquareMeters, true
	}
	unit := s.polygons[0].Unit
	var total float64
	for _, p := range s.polygons {
		if p.Unit != unit {
			return 0, "", false
		}
		total += p.Area
	}
	return total, unit, true
}

// Summary is a one-line description of the set for logs
func (s *Set) Summary() string {
	names := make([]string, len(s.polygons))
	for i, p := range s.polygons {
		names[i] = p.Name
	}
	return fmt.Sprintf("%d polygons [%s]", len(s.polygons), strings.Join(names, ", "))
}
