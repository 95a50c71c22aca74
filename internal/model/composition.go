package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"mapworkbench/internal/geo"

	"gorm.io/gorm"
)

const (
	// DefaultFloorLevel is assumed for records saved without a floor tag
	DefaultFloorLevel = "ground-floor"

	// SavedCompositionsKey holds the JSON array of saved compositions
	SavedCompositionsKey = "savedImages"

	// ActiveCompositionKey holds the id of the composition being edited
	ActiveCompositionKey = "activeImageId"
)

var (
	ErrInvalidComposition = errors.New("invalid composition")
	ErrInvalidPolygon     = errors.New("invalid polygon")
)

// LatLng is a serialised geographic point
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SerializedBounds is the stored form of a rectangle: explicit south-west and
// north-east corners
type SerializedBounds struct {
	SouthWest LatLng `json:"_southWest"`
	NorthEast LatLng `json:"_northEast"`
}

// SerializeBounds converts a rectangle to its stored form
func SerializeBounds(b geo.Bounds) SerializedBounds {
	return SerializedBounds{
		SouthWest: LatLng{Lat: b.South, Lng: b.West},
		NorthEast: LatLng{Lat: b.North, Lng: b.East},
	}
}

// Bounds rebuilds the rectangle, sorting the corners if they arrive swapped
func (s SerializedBounds) Bounds() geo.Bounds {
	return geo.NewBounds(s.SouthWest.Lat, s.SouthWest.Lng, s.NorthEast.Lat, s.NorthEast.Lng)
}

// PolygonRecord is a saved polygon annotation
type PolygonRecord struct {
	LatLngs      []LatLng `json:"latlngs"`
	Name         string   `json:"name"`
	Area         float64  `json:"area"`
	Unit         string   `json:"unit"`
	RoomCategory string   `json:"roomCategory,omitempty"`
	RoomType     string   `json:"roomType,omitempty"`
}

// Validate requires a ring of at least three finite points and a finite,
// non-negative area
func (r PolygonRecord) Validate() error {
	if len(r.LatLngs) < 3 {
		return fmt.Errorf("%w: %d points, need at least 3", ErrInvalidPolygon, len(r.LatLngs))
	}
	for _, ll := range r.LatLngs {
		if !finite(ll.Lat) || !finite(ll.Lng) {
			return fmt.Errorf("%w: non-finite point %v", ErrInvalidPolygon, ll)
		}
	}
	if !finite(r.Area) || r.Area < 0 {
		return fmt.Errorf("%w: area %v", ErrInvalidPolygon, r.Area)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Composition is a saved overlay: image, placement and polygons
type Composition struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	URL          string           `json:"url"`
	Bounds       SerializedBounds `json:"bounds"`
	Rotation     float64          `json:"rotation"`
	Transparency float64          `json:"transparency"`
	AspectRatio  float64          `json:"aspectRatio,omitempty"`
	FloorLevel   string           `json:"floorLevel"`
	Timestamp    int64            `json:"timestamp"` // unix milliseconds
	Polygons     []PolygonRecord  `json:"polygons,omitempty"`
}

// GeoBounds returns the composition's rectangle
func (c *Composition) GeoBounds() geo.Bounds {
	return c.Bounds.Bounds()
}

// UpdatedAt converts the timestamp
func (c *Composition) UpdatedAt() time.Time {
	return time.UnixMilli(c.Timestamp)
}

// ApplyDefaults fills fields older records may lack
func (c *Composition) ApplyDefaults() {
	if c.FloorLevel == "" {
		c.FloorLevel = DefaultFloorLevel
	}
}

// Clone returns a deep copy
func (c *Composition) Clone() *Composition {
	cp := *c
	cp.Polygons = make([]PolygonRecord, len(c.Polygons))
	for i, p := range c.Polygons {
		p.LatLngs = append([]LatLng(nil), p.LatLngs...)
		cp.Polygons[i] = p
	}
	if c.Polygons == nil {
		cp.Polygons = nil
	}
	return &cp
}

// Validate checks the fields a save needs
func (c *Composition) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidComposition)
	}
	if err := c.GeoBounds().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidComposition, err)
	}
	if c.Transparency < 0 || c.Transparency > 1 {
		return fmt.Errorf("%w: transparency %v outside [0, 1]", ErrInvalidComposition, c.Transparency)
	}
	if c.AspectRatio < 0 || !finite(c.AspectRatio) {
		return fmt.Errorf("%w: aspect ratio %v", ErrInvalidComposition, c.AspectRatio)
	}
	for i, p := range c.Polygons {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: polygon %d: %w", ErrInvalidComposition, i, err)
		}
	}
	return nil
}

// MarshalCompositions serialises the whole saved list, as stored under the savedImages key
func MarshalCompositions(list []*Composition) ([]byte, error) {
	if list == nil {
		list = []*Composition{}
	}
	return json.Marshal(list)
}

// UnmarshalCompositions parses a saved list and applies defaults
func UnmarshalCompositions(data []byte) ([]*Composition, error) {
	var list []*Composition
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	for _, c := range list {
		c.ApplyDefaults()
	}
	return list, nil
}

// CompositionPG model for PostgreSQL storage
type CompositionPG struct {
	ID           string  `gorm:"primaryKey"`
	Name         string  `gorm:"size:255;not null"`
	URL          string  `gorm:"size:512;not null;index"`
	South        float64 `gorm:"not null"`
	West         float64 `gorm:"not null"`
	North        float64 `gorm:"not null"`
	East         float64 `gorm:"not null"`
	Rotation     float64 `gorm:"not null"`
	Transparency float64 `gorm:"not null"`
	AspectRatio  float64 `gorm:"not null;default:0"`
	FloorLevel   string  `gorm:"size:64;not null"`
	Timestamp    int64   `gorm:"not null"`
	Polygons     string  `gorm:"type:text"` // JSON array of PolygonRecord

	UpdatedAt time.Time      `gorm:"column:updated_at"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// TableName overrides the table name
func (CompositionPG) TableName() string {
	return "compositions"
}

// ToPG converts to the PostgreSQL model
func (c *Composition) ToPG() (*CompositionPG, error) {
	polygons, err := json.Marshal(c.Polygons)
	if err != nil {
		return nil, fmt.Errorf("failed to encode polygons of %s: %w", c.ID, err)
	}
	b := c.GeoBounds()
	return &CompositionPG{
		ID:           c.ID,
		Name:         c.Name,
		URL:          c.URL,
		South:        b.South,
		West:         b.West,
		North:        b.North,
		East:         b.East,
		Rotation:     c.Rotation,
		Transparency: c.Transparency,
		AspectRatio:  c.AspectRatio,
		FloorLevel:   c.FloorLevel,
		Timestamp:    c.Timestamp,
		Polygons:     string(polygons),
	}, nil
}

// CompositionFromPG creates a Composition from CompositionPG
func CompositionFromPG(pg *CompositionPG) (*Composition, error) {
	c := &Composition{
		ID:           pg.ID,
		Name:         pg.Name,
		URL:          pg.URL,
		Bounds:       SerializeBounds(geo.Bounds{South: pg.South, West: pg.West, North: pg.North, East: pg.East}),
		Rotation:     pg.Rotation,
		Transparency: pg.Transparency,
		AspectRatio:  pg.AspectRatio,
		FloorLevel:   pg.FloorLevel,
		Timestamp:    pg.Timestamp,
	}
	if pg.Polygons != "" && pg.Polygons != "null" {
		if err := json.Unmarshal([]byte(pg.Polygons), &c.Polygons); err != nil {
			return nil, fmt.Errorf("failed to decode polygons of %s: %w", pg.ID, err)
		}
	}
	c.ApplyDefaults()
	return c, nil
}
