package util

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const earthRadiusMeters = 6371000.0

// HaversineDistance returns the great-circle distance in meters
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	point1 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat1, lng1))
	point2 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat2, lng2))

	angle := s1.Angle(s2.ChordAngleBetweenPoints(point1, point2).Angle())
	return angle.Radians() * earthRadiusMeters
}

// RectangleSize returns the ground width (along the center latitude) and
// height of a lat/lng rectangle in meters
func RectangleSize(south, west, north, east float64) (width, height float64) {
	midLat := (south + north) / 2
	width = HaversineDistance(midLat, west, midLat, east)
	height = HaversineDistance(south, west, north, west)
	return width, height
}
