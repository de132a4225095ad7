// Package geo provides great-circle math for APRS station positions.
// All coordinates are WGS84 decimal degrees.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusKM is the mean earth radius used for distance conversion.
const EarthRadiusKM = 6371.0

// DistanceKM returns the great-circle distance in kilometers between
// two lat/lon points.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusKM
}

// BearingDeg returns the initial great-circle bearing in degrees (0-360,
// 0 = North) from point 1 toward point 2.
func BearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// ValidLatLon reports whether the pair is inside the valid coordinate
// ranges [-90,90] x [-180,180].
func ValidLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
