package annotation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

const (
	// MinArea is the smallest area a user may assign to a polygon
	MinArea = 0.01

	// DefaultColor is used for polygons without a mapped room category
	DefaultColor = "#ff00ff"
)

var (
	ErrNameRequired = errors.New("a room category and type or a name is required")
	ErrAreaTooSmall = fmt.Errorf("area must be at least %v", MinArea)
)

// Palette resolves a room category to a hex colour
type Palette interface {
	ColorFor(category string) string
}

// Polygon is a closed ring drawn over the overlay, with its metadata
type Polygon struct {
	ID   string      `json:"id"`
	Ring []orb.Point `json:"ring"` // (lng, lat), not closed

	// Named is set once the user names the polygon; unnamed polygons
	// carry "Polygon N" and are renumbered when others are deleted
	Name  string `json:"name"`
	Named bool   `json:"named"`

	Area           float64 `json:"area"`
	Unit           Unit    `json:"unit"`
	AreaOverridden bool    `json:"areaOverridden"`

	// GeodesicArea is the ring's area on the sphere in m², shown next to
	// the displayed area for comparison
	GeodesicArea float64 `json:"geodesicArea"`

	RoomCategory string `json:"roomCategory,omitempty"`
	RoomType     string `json:"roomType,omitempty"`
	Color        string `json:"color"`
}

// Recompute refreshes the geodesic area and, unless the user has
// overridden it, the displayed area
func (p *Polygon) Recompute() {
	p.GeodesicArea = math.Round(GeodesicArea(p.Ring)*100) / 100
	if p.AreaOverridden {
		return
	}
	p.Area, p.Unit = MeasureRing(p.Ring)
}

// Label is the hover tooltip text: name, room type, category and area on separate lines
func (p *Polygon) Label() string {
	lines := []string{p.Name}
	if p.RoomType != "" {
		lines = append(lines, p.RoomType)
	}
	if p.RoomCategory != "" {
		lines = append(lines, "Category: "+p.RoomCategory)
	}
	lines = append(lines, fmt.Sprintf("Area: %v %s", p.Area, p.Unit))
	return strings.Join(lines, "\n")
}

// NameRequest is the naming dialog's submission
type NameRequest struct {
	Name         string  `json:"name"`
	RoomCategory string  `json:"roomCategory"`
	RoomType     string  `json:"roomType"`
	Area         float64 `json:"area"`
}

// Validate requires a category and type, or a free-text name, and a finite area of at least MinArea
func (r NameRequest) Validate() error {
	hasRoom := strings.TrimSpace(r.RoomCategory) != "" && strings.TrimSpace(r.RoomType) != ""
	if !hasRoom && strings.TrimSpace(r.Name) == "" {
		return ErrNameRequired
	}
	if math.IsNaN(r.Area) || math.IsInf(r.Area, 0) || r.Area < MinArea {
		return ErrAreaTooSmall
	}
	return nil
}

// Apply validates the request and writes it onto p. The name falls back to
// the room category; the colour comes from the palette.
func (r NameRequest) Apply(p *Polygon, palette Palette) error {
	if err := r.Validate(); err != nil {
		return err
	}

	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = strings.TrimSpace(r.RoomCategory)
	}
	p.Name = name
	p.Named = true
	p.RoomCategory = strings.TrimSpace(r.RoomCategory)
	p.RoomType = strings.TrimSpace(r.RoomType)

	if r.Area != p.Area {
		p.Area = r.Area
		p.AreaOverridden = true
	}

	p.Color = DefaultColor
	if p.RoomCategory != "" && palette != nil {
		p.Color = palette.ColorFor(p.RoomCategory)
	}
	return nil
}
