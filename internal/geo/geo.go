// Package geo provides great-circle helpers shared by the track pipeline.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for every distance.
const EarthRadiusMeters = 6371000.0

// LatLng is a position in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Distance returns the great-circle distance between a and b in meters.
//
// s2 evaluates the haversine term with atan2, so identical points give 0 and
// near-antipodal pairs stay finite.
func Distance(a, b LatLng) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Destination returns the point reached by travelling meters from start
// along the initial bearing (degrees clockwise from north).
func Destination(start LatLng, bearingDeg, meters float64) LatLng {
	p := s2.LatLngFromDegrees(start.Lat, start.Lng)
	brg := bearingDeg * math.Pi / 180
	ang := meters / EarthRadiusMeters

	lat1 := p.Lat.Radians()
	lng1 := p.Lng.Radians()

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) +
		math.Cos(lat1)*math.Sin(ang)*math.Cos(brg))
	lng2 := lng1 + math.Atan2(
		math.Sin(brg)*math.Sin(ang)*math.Cos(lat1),
		math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))

	return LatLng{Lat: lat2 * 180 / math.Pi, Lng: lng2 * 180 / math.Pi}
}
