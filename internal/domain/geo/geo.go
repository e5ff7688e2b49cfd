// Package geo holds coordinate validation and great-circle distance helpers
// shared by the matcher, its tests, and request validation.
package geo

import (
	"errors"
	"math"

	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used by MongoDB's spherical
// geometry, so distances computed here agree with $geoNear results.
const EarthRadiusMeters = 6371008.8

// ErrInvalidPoint is returned for coordinates outside the valid lng/lat ranges.
var ErrInvalidPoint = errors.New("coordinates must be [longitude, latitude] within valid ranges")

// ValidLngLat reports whether lng is in [-180,180] and lat in [-90,90].
func ValidLngLat(lng, lat float64) bool {
	if math.IsNaN(lng) || math.IsNaN(lat) {
		return false
	}
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// Point builds a GeoJSON point from a longitude and latitude.
func Point(lng, lat float64) models.GeoPoint {
	return models.GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// FromPair builds a point from a [lng, lat] pair, validating both the pair
// length and the coordinate ranges.
func FromPair(pair []float64) (models.GeoPoint, error) {
	if len(pair) != 2 || !ValidLngLat(pair[0], pair[1]) {
		return models.GeoPoint{}, ErrInvalidPoint
	}
	return Point(pair[0], pair[1]), nil
}

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(a, b models.GeoPoint) float64 {
	from := s2.LatLngFromDegrees(a.Lat(), a.Lng())
	to := s2.LatLngFromDegrees(b.Lat(), b.Lng())
	return from.Distance(to).Radians() * EarthRadiusMeters
}
