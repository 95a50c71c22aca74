package editor

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"mapworkbench/internal/annotation"
	"mapworkbench/internal/frame"
	"mapworkbench/internal/geo"
	"mapworkbench/internal/handle"
	"mapworkbench/internal/model"
	"mapworkbench/internal/util"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Mode is what the session's overlay shows
type Mode string

const (
	ModeImage   Mode = "image"
	ModeGeoJSON Mode = "geojson"
)

var (
	ErrNotGeoJSON = errors.New("session has no GeoJSON frame")
	ErrNotImage   = errors.New("only image overlays can be saved")
)

// Session is one user's editing state: the overlay, its handles, the
// polygon being drawn and the polygons already drawn. All methods are safe
// for concurrent use.
type Session struct {
	mu sync.Mutex

	id            string
	mode          Mode
	compositionID string

	overlay  *Overlay
	handles  *handle.Controller
	drawing  annotation.Drawing
	polygons annotation.Set
	palette  annotation.Palette
}

func newSession(mode Mode, o *Overlay, palette annotation.Palette) *Session {
	s := &Session{
		id:      util.SessionID(),
		mode:    mode,
		overlay: o,
		palette: palette,
	}
	s.handles = handle.NewController(o)
	return s
}

// NewImageSession places a new image overlay at the default size, centred
// on (0, 0) until the caller recentres it
func NewImageSession(url, name string, aspect float64, palette annotation.Palette) *Session {
	if aspect <= 0 {
		aspect = 1
	}
	o := &Overlay{
		URL:        url,
		Name:       name,
		FloorLevel: model.DefaultFloorLevel,
		Opacity:    1,
		bounds:     geo.InitialBounds(aspect),
		aspect:     aspect,
	}
	return newSession(ModeImage, o, palette)
}

// NewGeoJSONSession lets the handles place a local-XY frame
func NewGeoJSONSession(f *frame.LocalFrame, name string, palette annotation.Palette) *Session {
	o := &Overlay{
		Name:       name,
		FloorLevel: model.DefaultFloorLevel,
		Opacity:    1,
		bounds:     f.Bounds,
		rotation:   f.Rotation,
		aspect:     f.AspectRatio(),
		frame:      f,
	}
	return newSession(ModeGeoJSON, o, palette)
}

// NewSessionFromComposition reopens a saved composition
func NewSessionFromComposition(c *model.Composition, palette annotation.Palette) *Session {
	s := NewImageSession(c.URL, c.Name, c.GeoBounds().AspectRatio(), palette)
	s.LoadComposition(c)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Mode() Mode { return s.mode }

// CompositionID is the saved record this session edits, if any
func (s *Session) CompositionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compositionID
}

// LoadComposition restores placement, opacity and polygons from a record
func (s *Session) LoadComposition(c *model.Composition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := s.overlay
	o.URL = c.URL
	o.Name = c.Name
	o.FloorLevel = c.FloorLevel
	o.Opacity = clamp01(c.Transparency)
	o.aspect = c.AspectRatio
	if o.aspect <= 0 {
		// records saved before the image aspect was kept
		o.aspect = c.GeoBounds().AspectRatio()
	}
	o.SetBounds(c.GeoBounds())
	o.SetRotation(c.Rotation)

	s.compositionID = c.ID
	s.drawing.Cancel()
	s.polygons.Restore(model.RecordsToPolygons(c.Polygons), s.palette)
	s.handles.Refresh()

	log.Printf("[SESSION] %s loaded %s with %s", s.id, c.ID, s.polygons.Summary())
}

// Snapshot is the record a save writes
func (s *Session) Snapshot() (*model.Composition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeImage {
		return nil, ErrNotImage
	}
	o := s.overlay
	return &model.Composition{
		ID:           s.compositionID,
		Name:         o.Name,
		URL:          o.URL,
		Bounds:       model.SerializeBounds(o.Bounds()),
		Rotation:     o.Rotation(),
		Transparency: o.Opacity,
		AspectRatio:  o.AspectRatio(),
		FloorLevel:   o.FloorLevel,
		Polygons:     model.PolygonsToRecords(s.polygons.List()),
	}, nil
}

// MarkSaved records the id the composition was saved under
func (s *Session) MarkSaved(id string) {
	s.mu.Lock()
	s.compositionID = id
	s.mu.Unlock()
}

// Recenter moves the overlay so its centre is (lat, lng)
func (s *Session) Recenter(lat, lng float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handles.State() == handle.Dragging {
		return handle.ErrGestureActive
	}
	b := s.overlay.Bounds().CenteredAt(lat, lng)
	if err := b.Validate(); err != nil {
		return err
	}
	s.overlay.SetBounds(b)
	s.handles.Refresh()
	return nil
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// SetOpacity sets the overlay opacity, clamped to [0, 1]
func (s *Session) SetOpacity(v float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay.Opacity = clamp01(v)
	return s.overlay.Opacity
}

// SetFloorLevel tags the overlay with a floor
func (s *Session) SetFloorLevel(level string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if level == "" {
		level = model.DefaultFloorLevel
	}
	s.overlay.FloorLevel = level
}

// ResetRotation squares the overlay up with north
func (s *Session) ResetRotation() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handles.State() == handle.Dragging {
		return handle.ErrGestureActive
	}
	s.overlay.SetRotation(0)
	s.handles.Refresh()
	return nil
}

// Transform composes the renderer's CSS transform with the overlay rotation
func (s *Session) Transform(base string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return geo.ComposeRotation(base, s.overlay.Rotation())
}

// DragStart begins a handle gesture. Handles are inert while a polygon is
// being drawn.
func (s *Session) DragStart(id handle.ID, p orb.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drawing.State() == annotation.DrawActive {
		return annotation.ErrDrawing
	}
	return s.handles.DragStart(id, p)
}

func (s *Session) Drag(p orb.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles.Drag(p)
}

func (s *Session) DragEnd() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles.DragEnd()
}

// Nudge moves the overlay one keyboard step
func (s *Session) Nudge(dir geo.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles.Nudge(dir)
}

// FitCorners places the overlay from four dragged corner positions
func (s *Session) FitCorners(corners [4]orb.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles.FitCorners(corners)
}

// StartDrawing enters polygon drawing mode
func (s *Session) StartDrawing() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handles.State() == handle.Dragging {
		return handle.ErrGestureActive
	}
	return s.drawing.Start()
}

// Click adds a vertex to the polygon being drawn
func (s *Session) Click(p orb.Point) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawing.Click(p)
}

// FinishDrawing commits the ring as a new unnamed polygon
func (s *Session) FinishDrawing() (*annotation.Polygon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring, err := s.drawing.DoubleClick()
	if err != nil {
		return nil, err
	}
	p := s.polygons.Add(ring)
	log.Printf("[SESSION] %s added %s (%v %s)", s.id, p.Name, p.Area, p.Unit)
	return p, nil
}

func (s *Session) CancelDrawing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawing.Cancel()
}

// NamePolygon applies the naming dialog to a polygon
func (s *Session) NamePolygon(id string, req annotation.NameRequest) (*annotation.Polygon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.polygons.Get(id)
	if err != nil {
		return nil, err
	}
	if err := req.Apply(p, s.palette); err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (s *Session) DeletePolygon(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polygons.Delete(id)
}

func (s *Session) ClearPolygons() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polygons.Clear()
}

// Render maps the local frame through the current placement
func (s *Session) Render() (*geojson.FeatureCollection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.overlay.frame == nil {
		return nil, ErrNotGeoJSON
	}
	return s.overlay.frame.Render(), nil
}

// View is everything a client needs to draw the session
type View struct {
	ID             string                `json:"id"`
	Mode           Mode                  `json:"mode"`
	CompositionID  string                `json:"compositionId,omitempty"`
	URL            string                `json:"url,omitempty"`
	Name           string                `json:"name"`
	FloorLevel     string                `json:"floorLevel"`
	Bounds         geo.Bounds            `json:"bounds"`
	GroundSize     [2]float64            `json:"groundSize"`
	Rotation       float64               `json:"rotation"`
	Opacity        float64               `json:"opacity"`
	AspectRatio    float64               `json:"aspectRatio"`
	Transform      string                `json:"transform"`
	Handles        handle.Positions      `json:"handles"`
	Gesture        string                `json:"gesture"`
	ActiveHandle   string                `json:"activeHandle,omitempty"`
	PanningEnabled bool                  `json:"panningEnabled"`
	Drawing        string                `json:"drawing"`
	DrawingPoints  []orb.Point           `json:"drawingPoints"`
	Polygons       []*annotation.Polygon `json:"polygons"`
	TotalArea      *Area                 `json:"totalArea,omitempty"`
}

// Area is a displayed area with its unit
type Area struct {
	Value float64         `json:"value"`
	Unit  annotation.Unit `json:"unit"`
}

// View returns a copy of the session state
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := s.overlay
	v := View{
		ID:             s.id,
		Mode:           s.mode,
		CompositionID:  s.compositionID,
		URL:            o.URL,
		Name:           o.Name,
		FloorLevel:     o.FloorLevel,
		Bounds:         o.Bounds(),
		Rotation:       o.Rotation(),
		Opacity:        o.Opacity,
		AspectRatio:    o.AspectRatio(),
		Transform:      geo.ComposeRotation("", o.Rotation()),
		Handles:        s.handles.Positions(),
		Gesture:        s.handles.State().String(),
		PanningEnabled: s.handles.PanningEnabled(),
		Drawing:        s.drawing.State().String(),
		DrawingPoints:  s.drawing.Preview(),
	}
	b := v.Bounds
	v.GroundSize[0], v.GroundSize[1] = util.RectangleSize(b.South, b.West, b.North, b.East)
	if id, ok := s.handles.Active(); ok {
		v.ActiveHandle = id.String()
	}

	list := s.polygons.List()
	v.Polygons = make([]*annotation.Polygon, len(list))
	for i, p := range list {
		cp := *p
		v.Polygons[i] = &cp
	}
	if total, unit, ok := s.polygons.TotalArea(); ok && len(list) > 0 {
		v.TotalArea = &Area{Value: total, Unit: unit}
	}
	return v
}

func (s *Session) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("session %s (%s, %s)", s.id, s.mode, s.polygons.Summary())
}
