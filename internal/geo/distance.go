// Package geo provides geographic primitives for proximity-aware ranking.
package geo

import (
	"errors"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distance.
const EarthRadiusKm = 6371.0

// Coordinate validation errors.
var (
	ErrInvalidLatitude  = errors.New("invalid latitude: must be between -90 and 90")
	ErrInvalidLongitude = errors.New("invalid longitude: must be between -180 and 180")
)

// Point is a WGS84 coordinate pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the point lies within valid WGS84 bounds.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 || math.IsNaN(p.Lat) {
		return ErrInvalidLatitude
	}
	if p.Lng < -180 || p.Lng > 180 || math.IsNaN(p.Lng) {
		return ErrInvalidLongitude
	}
	return nil
}

// DistanceKm computes the great-circle distance between two points in
// kilometers using the Haversine formula.
//
// Parameters:
//   - a, b: the two coordinates in WGS84 degrees
//
// Returns the distance along the surface of a sphere with radius
// EarthRadiusKm. Accuracy is within ~0.5% of true geodesic distance,
// which is more than enough for proximity scoring.
func DistanceKm(a, b Point) float64 {
	latA := degToRad(a.Lat)
	latB := degToRad(b.Lat)
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLng*sinLng
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// degToRad converts degrees to radians.
func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
