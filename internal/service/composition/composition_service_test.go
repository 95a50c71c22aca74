package composition

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"mapworkbench/internal/geo"
	"mapworkbench/internal/model"
)

type fakeFiles struct {
	deleted []string
	err     error
}

func (f *fakeFiles) Delete(name string) error {
	f.deleted = append(f.deleted, name)
	return f.err
}

type fakeArchive struct {
	rows    map[string]*model.Composition
	deleted []string
}

func (a *fakeArchive) LoadAll(context.Context) ([]*model.Composition, error) {
	var out []*model.Composition
	for _, c := range a.rows {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (a *fakeArchive) Save(_ context.Context, list []*model.Composition) error {
	for _, c := range list {
		a.rows[c.ID] = c.Clone()
	}
	return nil
}

func (a *fakeArchive) Delete(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(a.rows, id)
	}
	a.deleted = append(a.deleted, ids...)
	return nil
}

// flakyBackend fails every write while down is set
type flakyBackend struct {
	*MemoryBackend
	down bool
}

var errBackendDown = errors.New("backend down")

func (b *flakyBackend) SaveCompositions(ctx context.Context, list []*model.Composition) error {
	if b.down {
		return errBackendDown
	}
	return b.MemoryBackend.SaveCompositions(ctx, list)
}

func (b *flakyBackend) SaveActiveID(ctx context.Context, id string) error {
	if b.down {
		return errBackendDown
	}
	return b.MemoryBackend.SaveActiveID(ctx, id)
}

var london = geo.Bounds{South: 51.50, West: -0.13, North: 51.51, East: -0.11}

func newComposition(url, name string, b geo.Bounds) *model.Composition {
	return &model.Composition{
		Name:         name,
		URL:          url,
		Bounds:       model.SerializeBounds(b),
		Transparency: 0.7,
	}
}

// newTestService returns a service whose clock advances 1s per call
func newTestService(t *testing.T, backend Backend, files FileRemover, archive Archive) *Service {
	t.Helper()
	s := NewService(backend, files, archive)
	clock := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func TestSaveCreatesAndActivates(t *testing.T) {
	backend := NewMemoryBackend()
	s := newTestService(t, backend, nil, nil)
	ctx := context.Background()

	c, err := s.Save(ctx, newComposition("/uploads/a.png", "Ground plan", london))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if c.ID != "img_1700000001000" {
		t.Errorf("Save id = %q; want img_1700000001000", c.ID)
	}
	if c.FloorLevel != model.DefaultFloorLevel {
		t.Errorf("FloorLevel = %q; want %q", c.FloorLevel, model.DefaultFloorLevel)
	}

	active, ok := s.Active()
	if !ok || active.ID != c.ID {
		t.Errorf("Active() = %v, %v; want %s", active, ok, c.ID)
	}

	saved, _ := backend.LoadCompositions(ctx)
	if len(saved) != 1 || saved[0].ID != c.ID {
		t.Errorf("backend holds %v; want the saved record", saved)
	}
	if id, _ := backend.LoadActiveID(ctx); id != c.ID {
		t.Errorf("backend active id = %q; want %q", id, c.ID)
	}
}

func TestSaveSameURLUpdates(t *testing.T) {
	s := newTestService(t, NewMemoryBackend(), nil, nil)
	ctx := context.Background()

	first, _ := s.Save(ctx, newComposition("/uploads/a.png", "v1", london))
	ring := []model.LatLng{{Lat: 51.501, Lng: -0.12}, {Lat: 51.502, Lng: -0.12}, {Lat: 51.502, Lng: -0.119}}
	if _, err := s.SavePolygons(ctx, first.ID, []model.PolygonRecord{{LatLngs: ring, Name: "Kitchen", Area: 12, Unit: "m²"}}); err != nil {
		t.Fatalf("SavePolygons: %v", err)
	}

	moved := london.Translate(0.001, 0.001)
	second, err := s.Save(ctx, newComposition("/uploads/a.png", "v2", moved))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("second save id = %q; want %q", second.ID, first.ID)
	}
	if got := len(s.List()); got != 1 {
		t.Errorf("List() has %d records; want 1", got)
	}
	if second.Name != "v2" || second.GeoBounds() != moved {
		t.Errorf("second save = %+v; want updated name and bounds", second)
	}
	if len(second.Polygons) != 1 || second.Polygons[0].Name != "Kitchen" {
		t.Errorf("polygons = %+v; want the kitchen kept", second.Polygons)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	s := newTestService(t, NewMemoryBackend(), nil, nil)

	tests := []struct {
		name string
		c    *model.Composition
	}{
		{"missing url", newComposition("", "x", london)},
		{"latitude out of range", newComposition("/uploads/b.png", "x", geo.Bounds{South: 80, West: 0, North: 95, East: 1})},
		{"transparency above one", &model.Composition{URL: "/uploads/c.png", Bounds: model.SerializeBounds(london), Transparency: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Save(context.Background(), tt.c); err == nil {
				t.Error("Save succeeded; want error")
			}
		})
	}
}

func TestDeleteClearsActiveAndRemovesFile(t *testing.T) {
	files := &fakeFiles{err: errors.New("gone already")}
	s := newTestService(t, NewMemoryBackend(), files, nil)
	ctx := context.Background()

	a, _ := s.Save(ctx, newComposition("/uploads/a.png", "a", london))
	b, _ := s.Save(ctx, newComposition("/uploads/b.png", "b", london))

	// deleting a non-active record keeps the active one
	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete(%s): %v", a.ID, err)
	}
	if active, ok := s.Active(); !ok || active.ID != b.ID {
		t.Errorf("Active() after deleting other = %v, %v; want %s", active, ok, b.ID)
	}

	// file deletion failures are not reported
	if err := s.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete(%s): %v", b.ID, err)
	}
	if _, ok := s.Active(); ok {
		t.Error("Active() still set after deleting the active record")
	}
	if !slices.Equal(files.deleted, []string{"a.png", "b.png"}) {
		t.Errorf("deleted files = %v; want [a.png b.png]", files.deleted)
	}

	if err := s.Delete(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete of missing record = %v; want ErrNotFound", err)
	}
}

func TestInBounds(t *testing.T) {
	s := newTestService(t, NewMemoryBackend(), nil, nil)
	ctx := context.Background()

	paris := geo.Bounds{South: 48.85, West: 2.34, North: 48.86, East: 2.36}
	l, _ := s.Save(ctx, newComposition("/uploads/l.png", "london", london))
	s.Save(ctx, newComposition("/uploads/p.png", "paris", paris))

	got := s.InBounds(geo.Bounds{South: 51, West: -1, North: 52, East: 0})
	if len(got) != 1 || got[0].ID != l.ID {
		t.Errorf("InBounds(london viewport) = %v; want [%s]", got, l.ID)
	}
	if got := s.InBounds(geo.Bounds{South: 40, West: -10, North: 60, East: 10}); len(got) != 2 {
		t.Errorf("InBounds(europe) returned %d; want 2", len(got))
	}
	if got := s.InBounds(geo.Bounds{South: 0, West: 100, North: 1, East: 101}); len(got) != 0 {
		t.Errorf("InBounds(elsewhere) returned %d; want 0", len(got))
	}
}

func TestExport(t *testing.T) {
	s := newTestService(t, NewMemoryBackend(), nil, nil)
	ctx := context.Background()

	c, _ := s.Save(ctx, newComposition("/uploads/a.png", "Ground Plan", london))
	if _, _, err := s.Export(c.ID, time.Now()); !errors.Is(err, ErrNoPolygons) {
		t.Errorf("Export without polygons = %v; want ErrNoPolygons", err)
	}

	ring := []model.LatLng{{Lat: 51.501, Lng: -0.12}, {Lat: 51.502, Lng: -0.12}, {Lat: 51.502, Lng: -0.119}}
	s.SavePolygons(ctx, c.ID, []model.PolygonRecord{{LatLngs: ring, Name: "Hall", Area: 5, Unit: "m²"}})

	fc, name, err := s.Export(c.ID, time.Now())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if name != "ground_plan_polygons.geojson" {
		t.Errorf("Export filename = %q", name)
	}
	if len(fc.Features) != 1 || fc.Features[0].Properties["name"] != "Hall" {
		t.Errorf("Export features = %+v", fc.Features)
	}
}

func TestInitMergesNewerBackendRecords(t *testing.T) {
	ctx := context.Background()
	old := newComposition("/uploads/a.png", "archived", london)
	old.ID, old.Timestamp = "img_1", 100
	onlyArchived := newComposition("/uploads/z.png", "only archived", london)
	onlyArchived.ID, onlyArchived.Timestamp = "img_0", 50

	newer := old.Clone()
	newer.Name, newer.Timestamp = "edited", 200

	archive := &fakeArchive{rows: map[string]*model.Composition{"img_1": old, "img_0": onlyArchived}}
	backend := NewMemoryBackend()
	backend.SaveCompositions(ctx, []*model.Composition{newer})
	backend.SaveActiveID(ctx, "img_missing")

	s := newTestService(t, backend, nil, archive)

	got, err := s.Get("img_1")
	if err != nil || got.Name != "edited" {
		t.Errorf("Get(img_1) = %v, %v; want the newer saved record", got, err)
	}
	if _, ok := s.Active(); ok {
		t.Error("Active() set to a record that does not exist")
	}
	if saved, _ := backend.LoadCompositions(ctx); len(saved) != 2 {
		t.Errorf("backend has %d records after init; want 2", len(saved))
	}

	// only the newer saved record needs archiving
	changed, deleted := s.DirtyForArchive()
	if len(changed) != 1 || changed[0].ID != "img_1" || len(deleted) != 0 {
		t.Errorf("DirtyForArchive() = %v, %v; want [img_1], []", changed, deleted)
	}

	if err := s.FlushArchive(ctx); err != nil {
		t.Fatalf("FlushArchive: %v", err)
	}
	if archive.rows["img_1"].Name != "edited" {
		t.Errorf("archive img_1 = %q; want edited", archive.rows["img_1"].Name)
	}

	s.Delete(ctx, "img_0")
	if err := s.FlushArchive(ctx); err != nil {
		t.Fatalf("FlushArchive: %v", err)
	}
	if _, ok := archive.rows["img_0"]; ok || !slices.Equal(archive.deleted, []string{"img_0"}) {
		t.Errorf("archive deletions = %v; want [img_0]", archive.deleted)
	}
	if changed, deleted := s.DirtyForArchive(); len(changed)+len(deleted) != 0 {
		t.Errorf("DirtyForArchive() after flush = %v, %v; want nothing", changed, deleted)
	}
}

func TestSetActive(t *testing.T) {
	s := newTestService(t, NewMemoryBackend(), nil, nil)
	ctx := context.Background()

	c, _ := s.Save(ctx, newComposition("/uploads/a.png", "a", london))
	if err := s.SetActive(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetActive(nope) = %v; want ErrNotFound", err)
	}
	if err := s.SetActive(ctx, ""); err != nil {
		t.Fatalf("SetActive(\"\"): %v", err)
	}
	if _, ok := s.Active(); ok {
		t.Error("Active() set after clearing")
	}
	if err := s.SetActive(ctx, c.ID); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if a, ok := s.Active(); !ok || a.ID != c.ID {
		t.Errorf("Active() = %v; want %s", a, c.ID)
	}
}

func TestFailedWriteLeavesMemoryUnchanged(t *testing.T) {
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend()}
	s := newTestService(t, backend, nil, nil)
	ctx := context.Background()

	first, err := s.Save(ctx, newComposition("/uploads/a.png", "v1", london))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	backend.down = true

	ring := []model.LatLng{{Lat: 51.501, Lng: -0.12}, {Lat: 51.502, Lng: -0.12}, {Lat: 51.502, Lng: -0.119}}
	tests := []struct {
		name string
		op   func() error
	}{
		{"save new", func() error {
			_, err := s.Save(ctx, newComposition("/uploads/b.png", "other", london))
			return err
		}},
		{"save same url", func() error {
			_, err := s.Save(ctx, newComposition("/uploads/a.png", "v2", london.Translate(1, 1)))
			return err
		}},
		{"update", func() error {
			_, err := s.Update(ctx, first.ID, newComposition("/uploads/a.png", "v3", london))
			return err
		}},
		{"save polygons", func() error {
			_, err := s.SavePolygons(ctx, first.ID, []model.PolygonRecord{{LatLngs: ring, Name: "Hall", Area: 5}})
			return err
		}},
		{"set active", func() error { return s.SetActive(ctx, "") }},
		{"delete", func() error { return s.Delete(ctx, first.ID) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, errBackendDown) {
				t.Fatalf("err = %v; want errBackendDown", err)
			}
			list := s.List()
			if len(list) != 1 || list[0].Name != "v1" || list[0].GeoBounds() != first.GeoBounds() || len(list[0].Polygons) != 0 {
				t.Errorf("List() = %+v; want only the first save", list)
			}
			if a, ok := s.Active(); !ok || a.ID != first.ID {
				t.Errorf("Active() = %v, %v; want %s", a, ok, first.ID)
			}
			if got := s.InBounds(london); len(got) != 1 {
				t.Errorf("InBounds() = %d records; want 1", len(got))
			}
		})
	}
}

func TestSavePolygonsRejectsInvalid(t *testing.T) {
	s := newTestService(t, NewMemoryBackend(), nil, nil)
	ctx := context.Background()
	c, _ := s.Save(ctx, newComposition("/uploads/a.png", "a", london))

	ring := []model.LatLng{{Lat: 51.501, Lng: -0.12}, {Lat: 51.502, Lng: -0.12}, {Lat: 51.502, Lng: -0.119}}
	tests := []struct {
		name    string
		polygon model.PolygonRecord
	}{
		{"two points", model.PolygonRecord{LatLngs: ring[:2], Name: "Line", Area: 1}},
		{"NaN area", model.PolygonRecord{LatLngs: ring, Name: "Hall", Area: math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SavePolygons(ctx, c.ID, []model.PolygonRecord{tt.polygon})
			if !errors.Is(err, model.ErrInvalidPolygon) {
				t.Errorf("SavePolygons = %v; want ErrInvalidPolygon", err)
			}
		})
	}
	if got, _ := s.Get(c.ID); len(got.Polygons) != 0 {
		t.Errorf("polygons stored after rejection: %+v", got.Polygons)
	}
}
