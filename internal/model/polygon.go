package model

import (
	"mapworkbench/internal/annotation"

	"github.com/paulmach/orb"
)

// PolygonToRecord converts an annotation to its saved form
func PolygonToRecord(p *annotation.Polygon) PolygonRecord {
	latlngs := make([]LatLng, len(p.Ring))
	for i, pt := range p.Ring {
		latlngs[i] = LatLng{Lat: pt[1], Lng: pt[0]}
	}
	return PolygonRecord{
		LatLngs:      latlngs,
		Name:         p.Name,
		Area:         p.Area,
		Unit:         string(p.Unit),
		RoomCategory: p.RoomCategory,
		RoomType:     p.RoomType,
	}
}

// RecordToPolygon restores an annotation from its saved form
func RecordToPolygon(r PolygonRecord) *annotation.Polygon {
	ring := make([]orb.Point, len(r.LatLngs))
	for i, ll := range r.LatLngs {
		ring[i] = orb.Point{ll.Lng, ll.Lat}
	}
	return &annotation.Polygon{
		Ring:         ring,
		Name:         r.Name,
		Area:         r.Area,
		Unit:         annotation.Unit(r.Unit),
		RoomCategory: r.RoomCategory,
		RoomType:     r.RoomType,
	}
}

// PolygonsToRecords converts a polygon list
func PolygonsToRecords(polygons []*annotation.Polygon) []PolygonRecord {
	out := make([]PolygonRecord, len(polygons))
	for i, p := range polygons {
		out[i] = PolygonToRecord(p)
	}
	return out
}

// RecordsToPolygons converts saved records back to annotations
func RecordsToPolygons(records []PolygonRecord) []*annotation.Polygon {
	out := make([]*annotation.Polygon, len(records))
	for i, r := range records {
		out[i] = RecordToPolygon(r)
	}
	return out
}
