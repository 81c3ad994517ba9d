// Package geo provides great-circle distance, travel speed and zone checks.
package geo

import (
	"errors"
	"math"
	"time"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// ErrUndefinedVelocity is returned by Speed when the elapsed time between
// two fixes is zero or negative.
var ErrUndefinedVelocity = errors.New("geo: undefined velocity")

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within latitude and longitude bounds.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Fix is a point observed at a moment in time.
type Fix struct {
	Point Point     `json:"point"`
	At    time.Time `json:"at"`
}

// Distance returns the haversine distance in kilometers.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push a just past 1 for antipodal points
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// DistanceBetween is Distance for two points.
func DistanceBetween(a, b Point) float64 {
	return Distance(a.Lat, a.Lng, b.Lat, b.Lng)
}

// Speed returns the travel speed in km/h needed to get from a to b.
// It returns ErrUndefinedVelocity when b is not strictly after a.
func Speed(a, b Fix) (float64, error) {
	elapsed := b.At.Sub(a.At)
	if elapsed <= 0 {
		return 0, ErrUndefinedVelocity
	}
	return DistanceBetween(a.Point, b.Point) / elapsed.Hours(), nil
}
