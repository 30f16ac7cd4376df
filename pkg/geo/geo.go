// Package geo implements the great-circle distance check used for
// geofenced check-ins. Campus radii are tens to low hundreds of meters,
// so a spherical-earth haversine is accurate enough at any latitude;
// a flat-plane approximation is not.
package geo

import (
	"math"

	"github.com/campuskit/checkin/domain"
)

const earthRadiusMeters = 6371000.0

// Result reports a single geofence validation. It is a value computed per
// call and never stored beyond the request that produced it.
type Result struct {
	DistanceMeters      float64 `json:"distance_meters"`
	AllowedRadiusMeters float64 `json:"allowed_radius_meters"`
	Valid               bool    `json:"valid"`
}

// Validate computes the haversine distance between center and point and
// compares it against radiusMeters. Out-of-range coordinates are rejected,
// not clamped.
func Validate(center, point domain.Location, radiusMeters float64) (Result, error) {
	if err := checkCoordinates(center); err != nil {
		return Result{}, err
	}
	if err := checkCoordinates(point); err != nil {
		return Result{}, err
	}

	distance := Distance(center, point)
	return Result{
		DistanceMeters:      distance,
		AllowedRadiusMeters: radiusMeters,
		Valid:               distance <= radiusMeters,
	}, nil
}

// Distance returns the great-circle distance in meters between two points.
func Distance(a, b domain.Location) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

func checkCoordinates(loc domain.Location) error {
	if math.IsNaN(loc.Latitude) || math.IsNaN(loc.Longitude) {
		return domain.ErrInvalidCoordinates
	}
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return domain.ErrInvalidCoordinates
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return domain.ErrInvalidCoordinates
	}
	return nil
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
