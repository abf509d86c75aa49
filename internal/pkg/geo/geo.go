package geo

import (
	"math"

	"github.com/pharmacore-hq/attendance-gate-go/internal/domain/attendance"
)

const earthRadiusMeters = 6371000 // mean Earth radius

// DistanceMeters computes the great-circle distance between two coordinates
// using the haversine formula on a spherical Earth. NaN inputs propagate;
// callers must treat a NaN distance as unknown.
func DistanceMeters(a, b attendance.Coordinates) float64 {
	dLat := (b.Latitude - a.Latitude) * (math.Pi / 180.0)
	dLon := (b.Longitude - a.Longitude) * (math.Pi / 180.0)

	lat1Rad := a.Latitude * (math.Pi / 180.0)
	lat2Rad := b.Latitude * (math.Pi / 180.0)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// WithinRadius classifies a distance against a geofence radius. A NaN
// distance is never inside the fence.
func WithinRadius(distanceMeters, radiusMeters float64) bool {
	if math.IsNaN(distanceMeters) {
		return false
	}
	return distanceMeters <= radiusMeters
}
