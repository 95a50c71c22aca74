package frame

import (
	"regexp"
	"strings"
	"time"

	"mapworkbench/internal/annotation"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ExportPolygons writes annotated polygons as a FeatureCollection with
// [lng, lat] rings and the composition name and export time on every feature
func ExportPolygons(imageName string, polygons []*annotation.Polygon, now time.Time) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	exportedAt := now.UTC().Format("2006-01-02T15:04:05.000Z")

	for _, p := range polygons {
		if len(p.Ring) < 3 {
			continue
		}
		ring := make(orb.Ring, 0, len(p.Ring)+1)
		ring = append(ring, p.Ring...)
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}

		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties["name"] = p.Name
		f.Properties["area"] = p.Area
		f.Properties["unit"] = string(p.Unit)
		f.Properties["imageName"] = imageName
		f.Properties["exportedAt"] = exportedAt
		fc.Append(f)
	}
	return fc
}

// ExportFilename derives the download name from the composition name
func ExportFilename(imageName string) string {
	return strings.ToLower(nonAlnum.ReplaceAllString(imageName, "_")) + "_polygons.geojson"
}
