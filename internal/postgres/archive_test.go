package postgres

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"mapworkbench/internal/geo"
	"mapworkbench/internal/model"
)

// testDBEnv names a disposable PostgreSQL database for the archive tests
const testDBEnv = "MAPWORKBENCH_TEST_DB_URL"

const testIDPrefix = "archive_test_"

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	url := os.Getenv(testDBEnv)
	if url == "" {
		t.Skipf("%s not set", testDBEnv)
	}

	db := Init(url)
	purge := func() {
		db.Unscoped().Where("id LIKE ?", testIDPrefix+"%").Delete(&model.CompositionPG{})
	}
	purge()
	t.Cleanup(func() {
		purge()
		Close()
	})
	return NewArchive(db)
}

func testComposition(i int) *model.Composition {
	b := geo.Bounds{South: 51.5, West: -0.12, North: 51.51, East: -0.1}
	return &model.Composition{
		ID:           fmt.Sprintf("%s%03d", testIDPrefix, i),
		Name:         fmt.Sprintf("plan %d", i),
		URL:          fmt.Sprintf("/uploads/%03d.png", i),
		Bounds:       model.SerializeBounds(b.Translate(float64(i)*0.001, 0)),
		Transparency: 0.5,
		AspectRatio:  1.5,
		FloorLevel:   model.DefaultFloorLevel,
		Timestamp:    int64(1_700_000_000_000 + i),
		Polygons: []model.PolygonRecord{{
			LatLngs: []model.LatLng{{Lat: 51.501, Lng: -0.12}, {Lat: 51.502, Lng: -0.12}, {Lat: 51.502, Lng: -0.119}},
			Name:    "Hall", Area: 5, Unit: "m²",
		}},
	}
}

// loadTestRows returns the archived test compositions by id
func loadTestRows(t *testing.T, a *Archive) map[string]*model.Composition {
	t.Helper()
	list, err := a.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	rows := make(map[string]*model.Composition)
	for _, c := range list {
		if strings.HasPrefix(c.ID, testIDPrefix) {
			rows[c.ID] = c
		}
	}
	return rows
}

func TestArchiveSaveAcrossBatches(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	n := archiveBatchSize + archiveBatchSize/2
	list := make([]*model.Composition, n)
	for i := range list {
		list[i] = testComposition(i)
	}
	if err := a.Save(ctx, list); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rows := loadTestRows(t, a)
	if len(rows) != n {
		t.Fatalf("archived %d test rows; want %d", len(rows), n)
	}
	got := rows[list[0].ID]
	if got.GeoBounds() != list[0].GeoBounds() || got.AspectRatio != 1.5 || len(got.Polygons) != 1 {
		t.Errorf("archived row = %+v", got)
	}

	// re-saving updates in place
	list[0].Name = "renamed"
	if err := a.Save(ctx, list[:1]); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rows := loadTestRows(t, a); len(rows) != n || rows[list[0].ID].Name != "renamed" {
		t.Errorf("after re-save: %d rows, name %q", len(rows), rows[list[0].ID].Name)
	}
}

func TestArchiveDeleteAndRevive(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	list := []*model.Composition{testComposition(1), testComposition(2)}
	if err := a.Save(ctx, list); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := a.Delete(ctx, []string{list[0].ID}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := a.Delete(ctx, nil); err != nil {
		t.Errorf("Delete(nil) = %v; want nil", err)
	}

	rows := loadTestRows(t, a)
	if _, ok := rows[list[0].ID]; ok || len(rows) != 1 {
		t.Errorf("after delete rows = %v; want only %s", rows, list[1].ID)
	}

	// a soft-deleted id saved again comes back
	if err := a.Save(ctx, list[:1]); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rows := loadTestRows(t, a); len(rows) != 2 {
		t.Errorf("after revive %d rows; want 2", len(rows))
	}
}
